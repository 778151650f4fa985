package courier

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/shandysiswandi/courier/transport"
)

const tracerName = "github.com/shandysiswandi/courier"

// ErrNoHost is returned by New when the relay host is empty.
var ErrNoHost = errors.New("courier: host is required")

// Envelope is a fully-prepared message ready for transmission. The envelope
// package provides the standard implementation; the Courier only reads it.
type Envelope interface {
	// Sender is the envelope sender address.
	Sender() string
	// Receivers lists the receiver addresses in delivery order. Duplicates
	// are permitted and delivered as given.
	Receivers() []string
	// Bytes renders the fully-encoded message.
	Bytes() ([]byte, error)
}

// Middleware prepares a live connection before any delivery happens, for
// example upgrading the session to TLS or authenticating. Middleware runs
// once per opened connection, in registration order; later middleware may
// depend on what earlier middleware set up. Returning an error aborts the
// connection setup and the whole call.
type Middleware func(ctx context.Context, conn transport.Client) error

// Courier is the delivery agent. It holds the relay address and the ordered
// middleware list, and opens one connection per Send/SendMany call.
//
// After setup a Courier is safe for concurrent Send/SendMany calls; Use must
// not be called concurrently with sends.
type Courier struct {
	host        string
	port        int
	middlewares []Middleware
	dialer      transport.Dialer
	newResponse ResponseFunc
	tracer      trace.Tracer
}

// Option customizes a Courier.
type Option func(*Courier)

// WithDialer replaces the default SMTP dialer.
func WithDialer(d transport.Dialer) Option {
	return func(c *Courier) { c.dialer = d }
}

// WithMiddleware registers middleware at construction time, in the given
// order, equivalent to calling Use for each.
func WithMiddleware(mws ...Middleware) Option {
	return func(c *Courier) { c.middlewares = append(c.middlewares, mws...) }
}

// WithResponseFunc replaces the default Response constructor.
func WithResponseFunc(f ResponseFunc) Option {
	return func(c *Courier) { c.newResponse = f }
}

// New constructs a Courier for the given relay host and port. Without
// options it dials plain SMTP with default transport settings.
func New(host string, port int, opts ...Option) (*Courier, error) {
	if host == "" {
		return nil, ErrNoHost
	}

	c := &Courier{
		host:        host,
		port:        port,
		dialer:      transport.NewSMTP(transport.Options{}),
		newResponse: NewResponse,
		tracer:      otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Use appends mw to the middleware list and returns mw unchanged, so a
// registration can be chained or wrapped. No deduplication: registering the
// same middleware twice runs it twice per connection.
func (c *Courier) Use(mw Middleware) Middleware {
	c.middlewares = append(c.middlewares, mw)
	return mw
}

// Deliver sends one envelope over an already-prepared connection and probes
// the session afterwards, bundling the probe status and any rejected
// receivers into the Response. It never closes the connection; that is the
// opening scope's job. A send or probe failure propagates with no Response.
func (c *Courier) Deliver(ctx context.Context, conn transport.Client, env Envelope) (Response, error) {
	payload, err := env.Bytes()
	if err != nil {
		return Response{}, err
	}

	rejected, err := conn.Send(ctx, env.Sender(), env.Receivers(), payload)
	if err != nil {
		return Response{}, err
	}

	status, err := conn.Probe(ctx)
	if err != nil {
		return Response{}, err
	}

	metricDeliveries.Inc()
	metricRejectedReceivers.Add(float64(len(rejected)))

	return c.newResponse(status, rejected), nil
}

// SendMany delivers the envelopes sequentially, in order, over a single
// connection and returns one Response per envelope, positionally aligned
// with the input. The first delivery failure aborts the remaining
// envelopes; the connection still closes and the error is returned with no
// responses.
//
// An empty batch still opens and closes a connection. A close failure after
// an otherwise successful batch is returned as the call's error.
func (c *Courier) SendMany(ctx context.Context, envelopes []Envelope) ([]Response, error) {
	ctx, span := c.tracer.Start(ctx, "courier.SendMany", trace.WithAttributes(
		attribute.String("courier.server", c.host),
		attribute.Int("courier.envelopes", len(envelopes)),
	))
	defer span.End()

	responses := make([]Response, 0, len(envelopes))
	err := c.withConnection(ctx, func(conn transport.Client) error {
		for _, env := range envelopes {
			resp, err := c.Deliver(ctx, conn, env)
			if err != nil {
				return err
			}
			responses = append(responses, resp)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return responses, nil
}

// Send delivers a single envelope over its own connection. It is SendMany
// with a one-element batch, returning the sole Response.
func (c *Courier) Send(ctx context.Context, env Envelope) (Response, error) {
	responses, err := c.SendMany(ctx, []Envelope{env})
	if err != nil {
		return Response{}, err
	}
	return responses[0], nil
}
