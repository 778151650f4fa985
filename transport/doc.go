// Package transport defines the connection capability consumed by the
// delivery agent and provides the SMTP implementation of it.
//
// The agent and the middleware chain work against the small Client and
// Dialer interfaces; the concrete wire protocol lives entirely in this
// package. Optional capabilities (STARTTLS upgrade, SMTP AUTH) are modeled
// as separate interfaces so middleware can upgrade a connection without the
// core ever depending on them.
package transport
