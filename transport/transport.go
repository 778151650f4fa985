package transport

import (
	"context"
	"crypto/tls"

	"github.com/wneessen/go-mail/smtp"
)

// Status is the server reply captured by a liveness probe: a protocol reply
// code plus its human-readable text.
type Status struct {
	// Code is the protocol reply code (250 for a healthy SMTP session).
	Code int
	// Message is the reply text that accompanied the code.
	Message string
}

// Client is a live, stateful connection to a mail relay.
//
// A Client is produced by a Dialer, prepared by the greeting and the
// middleware chain, used for one or more deliveries, and closed exactly once
// by whoever opened it. Using a Client after Close is undefined.
type Client interface {
	// Greet introduces the session (EHLO/HELO for SMTP). It must be called
	// once, before any delivery or middleware runs.
	Greet(ctx context.Context) error

	// Send delivers one fully-encoded message from sender to the given
	// receivers, in order. Receivers the relay declined are returned as a
	// map from address to decline reason; a declined receiver is not an
	// error. The error is non-nil only when the relay refused the send
	// attempt itself or the session broke mid-transfer.
	Send(ctx context.Context, from string, receivers []string, payload []byte) (rejected map[string]string, err error)

	// Probe confirms the session is still healthy and returns the relay's
	// reply. For SMTP this is a NOOP round trip.
	Probe(ctx context.Context) (Status, error)

	// Close terminates the session.
	Close() error
}

// Dialer opens new Client connections. Each Dial call must return an
// independent connection; connections are never pooled or reused.
type Dialer interface {
	Dial(ctx context.Context, host string, port int) (Client, error)
}

// DialFunc adapts a plain function to the Dialer interface.
type DialFunc func(ctx context.Context, host string, port int) (Client, error)

// Dial calls f.
func (f DialFunc) Dial(ctx context.Context, host string, port int) (Client, error) {
	return f(ctx, host, port)
}

// StartTLSer is implemented by clients whose session can be upgraded to TLS
// in place. Middleware discovers it via type assertion.
type StartTLSer interface {
	StartTLS(cfg *tls.Config) error
}

// Authenticator is implemented by clients that accept SMTP AUTH. Middleware
// discovers it via type assertion.
type Authenticator interface {
	Auth(a smtp.Auth) error
}
