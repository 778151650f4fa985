// Package middleware provides connection-preparation steps for the courier:
// STARTTLS upgrade and the common SMTP AUTH flavors. Each runs once per
// opened connection, in registration order, so security upgrades should be
// registered before authentication.
//
// The helpers discover what a connection can do through the capability
// interfaces in the transport package and fail with a sentinel error when
// the capability is missing.
package middleware
