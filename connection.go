package courier

import (
	"context"
	"fmt"
	"log/slog"

	"go.uber.org/atomic"

	"github.com/shandysiswandi/courier/transport"
)

// withConnection runs fn against a freshly dialed, greeted and
// middleware-prepared connection. Whatever happens inside the scope, the
// connection is closed exactly once before control returns.
//
// When the scope already failed, a close failure must not mask that
// failure: the in-flight error stays the reported cause and the close error
// is only logged. When the scope succeeded, a close failure becomes the
// returned error.
func (c *Courier) withConnection(ctx context.Context, fn func(conn transport.Client) error) (err error) {
	conn, err := c.dialer.Dial(ctx, c.host, c.port)
	if err != nil {
		return err
	}

	var released atomic.Bool
	defer func() {
		if !released.CompareAndSwap(false, true) {
			return
		}
		cerr := conn.Close()
		if cerr == nil {
			return
		}
		metricCloseFailures.Inc()
		if err != nil {
			slog.WarnContext(ctx, "connection close failed after earlier error",
				"server", c.host, "port", c.port, "error", cerr)
			return
		}
		err = fmt.Errorf("courier: close connection: %w", cerr)
	}()

	if err = conn.Greet(ctx); err != nil {
		return err
	}

	for _, mw := range c.middlewares {
		if err = mw(ctx, conn); err != nil {
			return err
		}
	}

	return fn(conn)
}
