package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/wneessen/go-mail/smtp"
)

const (
	// DefaultHELO is the hostname announced in the session greeting when
	// Options.HELO is empty.
	DefaultHELO = "localhost"

	// DefaultDialTimeout bounds a single TCP dial attempt when
	// Options.DialTimeout is zero.
	DefaultDialTimeout = 15 * time.Second

	// dialBackoffBase seeds the fibonacci backoff between dial attempts.
	dialBackoffBase = 200 * time.Millisecond
)

// ErrNoReceivers is returned by Send when the receiver list is empty.
var ErrNoReceivers = errors.New("transport: no receivers provided")

// Options configures the SMTP dialer.
//
// Timeouts and dial retries are properties of this transport; callers above
// this package never retry and never see these knobs.
type Options struct {
	// HELO is the hostname announced in the EHLO/HELO greeting.
	// Defaults to DefaultHELO.
	HELO string
	// DialTimeout bounds each TCP dial attempt. Defaults to DefaultDialTimeout.
	DialTimeout time.Duration
	// DialAttempts is the total number of TCP dial attempts before giving
	// up, with fibonacci backoff between attempts. Values below 1 mean a
	// single attempt.
	DialAttempts uint64
	// SSL dials an implicit TLS session (SMTPS) instead of plaintext.
	SSL bool
	// TLSConfig is used for SSL sessions and as the default for a later
	// STARTTLS upgrade. When nil a minimal config with the dialed hostname
	// is used.
	TLSConfig *tls.Config
}

// SMTP is a Dialer that opens SMTP sessions over TCP, optionally wrapped in
// implicit TLS.
type SMTP struct {
	opts Options
}

// NewSMTP constructs an SMTP dialer, filling unset options with defaults.
func NewSMTP(opts Options) *SMTP {
	if opts.HELO == "" {
		opts.HELO = DefaultHELO
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = DefaultDialTimeout
	}
	return &SMTP{opts: opts}
}

// Dial opens a TCP connection to host:port and performs the SMTP banner
// exchange. The returned Client has not been greeted yet.
func (s *SMTP) Dial(ctx context.Context, host string, port int) (Client, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	conn, err := s.dialTCP(ctx, addr, host)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}

	cl, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("transport: smtp banner from %s: %w", addr, err)
	}

	return &smtpSession{cl: cl, helo: s.opts.HELO, host: host, tlsConfig: s.opts.TLSConfig}, nil
}

func (s *SMTP) dialTCP(ctx context.Context, addr, host string) (net.Conn, error) {
	attempts := s.opts.DialAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := retry.WithMaxRetries(attempts-1, retry.NewFibonacci(dialBackoffBase))

	var conn net.Conn
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		d := net.Dialer{Timeout: s.opts.DialTimeout}
		c, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return retry.RetryableError(err)
		}
		if s.opts.SSL {
			c = tls.Client(c, s.tlsFor(host))
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (s *SMTP) tlsFor(host string) *tls.Config {
	if s.opts.TLSConfig != nil {
		return s.opts.TLSConfig
	}
	return &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
}

// smtpSession adapts *smtp.Client to the Client interface plus the
// StartTLSer and Authenticator capabilities.
type smtpSession struct {
	cl        *smtp.Client
	helo      string
	host      string
	tlsConfig *tls.Config
}

// Greet sends EHLO (falling back to HELO) with the configured hostname.
func (c *smtpSession) Greet(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.cl.Hello(c.helo)
}

// Send runs one MAIL/RCPT/DATA transaction. Receivers the relay declines at
// RCPT time are collected instead of failing the transaction; when every
// receiver is declined the transaction is rolled back with RSET and the full
// rejection map is returned without an error.
func (c *smtpSession) Send(ctx context.Context, from string, receivers []string, payload []byte) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(receivers) == 0 {
		return nil, ErrNoReceivers
	}

	if err := c.cl.Mail(from); err != nil {
		return nil, fmt.Errorf("transport: MAIL FROM %s: %w", from, err)
	}

	rejected := make(map[string]string)
	accepted := 0
	for _, rcpt := range receivers {
		if err := c.cl.Rcpt(rcpt); err != nil {
			rejected[rcpt] = err.Error()
			continue
		}
		accepted++
	}

	if accepted == 0 {
		// No receiver to carry the payload; abort the transaction and
		// report the rejections as a normal outcome.
		if err := c.cl.Reset(); err != nil {
			return nil, fmt.Errorf("transport: RSET: %w", err)
		}
		return rejected, nil
	}

	wc, err := c.cl.Data()
	if err != nil {
		return nil, fmt.Errorf("transport: DATA: %w", err)
	}
	if _, err := wc.Write(payload); err != nil {
		wc.Close()
		return nil, fmt.Errorf("transport: write payload: %w", err)
	}
	if err := wc.Close(); err != nil {
		return nil, fmt.Errorf("transport: close payload: %w", err)
	}

	return rejected, nil
}

// Probe performs a NOOP round trip and returns the relay's reply verbatim.
func (c *smtpSession) Probe(ctx context.Context) (Status, error) {
	if err := ctx.Err(); err != nil {
		return Status{}, err
	}

	id, err := c.cl.Text.Cmd("NOOP")
	if err != nil {
		return Status{}, fmt.Errorf("transport: NOOP: %w", err)
	}
	c.cl.Text.StartResponse(id)
	defer c.cl.Text.EndResponse(id)

	code, msg, err := c.cl.Text.ReadResponse(250)
	if err != nil {
		return Status{}, fmt.Errorf("transport: NOOP: %w", err)
	}
	return Status{Code: code, Message: msg}, nil
}

// Close ends the session with QUIT.
func (c *smtpSession) Close() error {
	return c.cl.Quit()
}

// StartTLS upgrades the session in place. A nil cfg falls back to the
// dialer's TLSConfig, then to a minimal config for the dialed hostname.
func (c *smtpSession) StartTLS(cfg *tls.Config) error {
	if cfg == nil {
		cfg = c.tlsConfig
	}
	if cfg == nil {
		cfg = &tls.Config{ServerName: c.host, MinVersion: tls.VersionTLS12}
	}
	return c.cl.StartTLS(cfg)
}

// Auth authenticates the session.
func (c *smtpSession) Auth(a smtp.Auth) error {
	return c.cl.Auth(a)
}
