// Package courier delivers pre-built mail messages over a mail relay.
//
// A Courier owns a relay address and an ordered list of middleware. Each
// Send or SendMany call opens exactly one connection, greets the relay,
// applies every middleware in registration order, delivers the envelopes
// sequentially over that single connection, and closes it again. Per
// envelope the caller gets back a Response carrying the relay status
// observed right after the send plus any receivers the relay declined;
// declined receivers are a normal outcome, not an error.
//
// Connections are never pooled or reused across calls, and this layer never
// retries: the first failure aborts the batch and surfaces to the caller.
//
//	c, err := courier.New("mail.example.com", 587)
//	if err != nil {
//		// ...
//	}
//	c.Use(middleware.StartTLS(nil))
//	c.Use(middleware.Plain("", "user", "secret", "mail.example.com"))
//
//	resp, err := c.Send(ctx, msg)
package courier
