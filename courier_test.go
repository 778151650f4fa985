package courier_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/courier"
	"github.com/shandysiswandi/courier/transport"
)

type fakeEnvelope struct {
	sender    string
	receivers []string
	payload   []byte
	renderErr error
}

func (e *fakeEnvelope) Sender() string      { return e.sender }
func (e *fakeEnvelope) Receivers() []string { return e.receivers }
func (e *fakeEnvelope) Bytes() ([]byte, error) {
	if e.renderErr != nil {
		return nil, e.renderErr
	}
	return e.payload, nil
}

type sendCall struct {
	from      string
	receivers []string
	payload   []byte
}

// fakeClient counts every lifecycle call so tests can assert the scope
// contract: greet once, close exactly once, sends in order.
type fakeClient struct {
	greetErr   error
	sendErrs   []error              // indexed by send call, nil entries succeed
	rejections []map[string]string  // indexed by send call, nil entries accept all
	probeErr   error
	closeErr   error
	status     transport.Status

	greets int
	probes int
	closes int
	sends  []sendCall
	events *[]string
}

func (c *fakeClient) event(name string) {
	if c.events != nil {
		*c.events = append(*c.events, name)
	}
}

func (c *fakeClient) Greet(context.Context) error {
	c.greets++
	c.event("greet")
	return c.greetErr
}

func (c *fakeClient) Send(_ context.Context, from string, receivers []string, payload []byte) (map[string]string, error) {
	i := len(c.sends)
	c.sends = append(c.sends, sendCall{from: from, receivers: receivers, payload: payload})
	c.event("send")
	if i < len(c.sendErrs) && c.sendErrs[i] != nil {
		return nil, c.sendErrs[i]
	}
	if i < len(c.rejections) {
		return c.rejections[i], nil
	}
	return nil, nil
}

func (c *fakeClient) Probe(context.Context) (transport.Status, error) {
	c.probes++
	c.event("probe")
	if c.probeErr != nil {
		return transport.Status{}, c.probeErr
	}
	if c.status == (transport.Status{}) {
		return transport.Status{Code: 250, Message: "2.0.0 OK"}, nil
	}
	return c.status, nil
}

func (c *fakeClient) Close() error {
	c.closes++
	c.event("close")
	return c.closeErr
}

type fakeDialer struct {
	client *fakeClient
	err    error

	dials int
	host  string
	port  int
}

func (d *fakeDialer) Dial(_ context.Context, host string, port int) (transport.Client, error) {
	d.dials++
	d.host = host
	d.port = port
	if d.err != nil {
		return nil, d.err
	}
	return d.client, nil
}

func newTestCourier(t *testing.T, d *fakeDialer, opts ...courier.Option) *courier.Courier {
	t.Helper()
	c, err := courier.New("mail.example.com", 587, append([]courier.Option{courier.WithDialer(d)}, opts...)...)
	require.NoError(t, err)
	return c
}

func TestNew_RequiresHost(t *testing.T) {
	_, err := courier.New("", 587)
	require.ErrorIs(t, err, courier.ErrNoHost)
}

func TestSend_Success(t *testing.T) {
	cl := &fakeClient{}
	d := &fakeDialer{client: cl}
	c := newTestCourier(t, d)

	resp, err := c.Send(context.Background(), &fakeEnvelope{
		sender:    "a@x.com",
		receivers: []string{"b@y.com"},
		payload:   []byte("hello"),
	})
	require.NoError(t, err)

	assert.Empty(t, resp.Rejected)
	assert.Equal(t, 250, resp.Status.Code)
	assert.True(t, resp.OK())

	assert.Equal(t, 1, d.dials)
	assert.Equal(t, "mail.example.com", d.host)
	assert.Equal(t, 587, d.port)
	assert.Equal(t, 1, cl.greets)
	assert.Equal(t, 1, cl.probes)
	assert.Equal(t, 1, cl.closes)

	require.Len(t, cl.sends, 1)
	assert.Equal(t, "a@x.com", cl.sends[0].from)
	assert.Equal(t, []string{"b@y.com"}, cl.sends[0].receivers)
	assert.Equal(t, []byte("hello"), cl.sends[0].payload)
}

func TestUse_ReturnsArgumentAndAppendsOne(t *testing.T) {
	cl := &fakeClient{}
	d := &fakeDialer{client: cl}
	c := newTestCourier(t, d)

	calls := 0
	mw := courier.Middleware(func(context.Context, transport.Client) error {
		calls++
		return nil
	})

	got := c.Use(mw)
	require.NotNil(t, got)

	// The returned value is the registered middleware itself.
	require.NoError(t, got(context.Background(), cl))
	assert.Equal(t, 1, calls)
	calls = 0

	_, err := c.Send(context.Background(), &fakeEnvelope{sender: "a@x.com", receivers: []string{"b@y.com"}})
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "a single registration runs once per connection")

	// Registering the same middleware again runs it twice.
	c.Use(mw)
	calls = 0
	_, err = c.Send(context.Background(), &fakeEnvelope{sender: "a@x.com", receivers: []string{"b@y.com"}})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestMiddleware_AppliedInRegistrationOrder(t *testing.T) {
	var events []string
	cl := &fakeClient{events: &events}
	d := &fakeDialer{client: cl}
	c := newTestCourier(t, d)

	c.Use(func(context.Context, transport.Client) error {
		events = append(events, "mw-a")
		return nil
	})
	c.Use(func(context.Context, transport.Client) error {
		events = append(events, "mw-b")
		return nil
	})

	_, err := c.Send(context.Background(), &fakeEnvelope{sender: "a@x.com", receivers: []string{"b@y.com"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"greet", "mw-a", "mw-b", "send", "probe", "close"}, events)
}

func TestMiddleware_FailureAbortsAndCloses(t *testing.T) {
	cl := &fakeClient{}
	d := &fakeDialer{client: cl}
	c := newTestCourier(t, d)

	errMW := errors.New("auth refused")
	c.Use(func(context.Context, transport.Client) error { return nil })
	c.Use(func(context.Context, transport.Client) error { return errMW })

	ran := false
	c.Use(func(context.Context, transport.Client) error {
		ran = true
		return nil
	})

	_, err := c.Send(context.Background(), &fakeEnvelope{sender: "a@x.com", receivers: []string{"b@y.com"}})
	require.ErrorIs(t, err, errMW)

	assert.False(t, ran, "middleware after the failing one must not run")
	assert.Empty(t, cl.sends, "no delivery after middleware failure")
	assert.Equal(t, 1, cl.closes)
}

func TestGreet_FailureCloses(t *testing.T) {
	errGreet := errors.New("greeting refused")
	cl := &fakeClient{greetErr: errGreet}
	d := &fakeDialer{client: cl}
	c := newTestCourier(t, d)

	applied := false
	c.Use(func(context.Context, transport.Client) error {
		applied = true
		return nil
	})

	_, err := c.Send(context.Background(), &fakeEnvelope{sender: "a@x.com", receivers: []string{"b@y.com"}})
	require.ErrorIs(t, err, errGreet)

	assert.False(t, applied)
	assert.Equal(t, 1, cl.closes)
}

func TestSend_DialFailure(t *testing.T) {
	errDial := errors.New("connection refused")
	d := &fakeDialer{err: errDial}
	c := newTestCourier(t, d)

	_, err := c.Send(context.Background(), &fakeEnvelope{sender: "a@x.com", receivers: []string{"b@y.com"}})
	require.ErrorIs(t, err, errDial)
	assert.Equal(t, 1, d.dials)
}

func TestSendMany_PositionallyAligned(t *testing.T) {
	cl := &fakeClient{
		rejections: []map[string]string{
			nil,
			{"second@y.com": "550 5.1.1 no such user"},
			nil,
		},
	}
	d := &fakeDialer{client: cl}
	c := newTestCourier(t, d)

	envs := []courier.Envelope{
		&fakeEnvelope{sender: "a@x.com", receivers: []string{"first@y.com"}},
		&fakeEnvelope{sender: "a@x.com", receivers: []string{"second@y.com", "other@y.com"}},
		&fakeEnvelope{sender: "a@x.com", receivers: []string{"third@y.com"}},
	}

	responses, err := c.SendMany(context.Background(), envs)
	require.NoError(t, err)
	require.Len(t, responses, len(envs))

	assert.Empty(t, responses[0].Rejected)
	assert.Equal(t, map[string]string{"second@y.com": "550 5.1.1 no such user"}, responses[1].Rejected)
	assert.Empty(t, responses[2].Rejected)

	// Rejected keys are always a subset of the envelope's receivers.
	for i, env := range envs {
		for rcpt := range responses[i].Rejected {
			assert.Contains(t, env.Receivers(), rcpt)
		}
	}

	assert.Equal(t, 1, d.dials, "one connection for the whole batch")
	assert.Equal(t, 1, cl.closes)
}

func TestSendMany_MidBatchFailureAbortsAndCloses(t *testing.T) {
	errSend := errors.New("connection dropped")
	cl := &fakeClient{sendErrs: []error{nil, errSend}}
	d := &fakeDialer{client: cl}
	c := newTestCourier(t, d)

	responses, err := c.SendMany(context.Background(), []courier.Envelope{
		&fakeEnvelope{sender: "a@x.com", receivers: []string{"one@y.com"}},
		&fakeEnvelope{sender: "a@x.com", receivers: []string{"two@y.com"}},
		&fakeEnvelope{sender: "a@x.com", receivers: []string{"three@y.com"}},
	})
	require.ErrorIs(t, err, errSend)

	assert.Nil(t, responses, "a failed batch yields no responses")
	assert.Len(t, cl.sends, 2, "third envelope never attempted")
	assert.Equal(t, 1, cl.closes)
}

func TestSendMany_EmptyBatchStillConnects(t *testing.T) {
	cl := &fakeClient{}
	d := &fakeDialer{client: cl}
	c := newTestCourier(t, d)

	responses, err := c.SendMany(context.Background(), nil)
	require.NoError(t, err)

	assert.Empty(t, responses)
	assert.Equal(t, 1, d.dials)
	assert.Equal(t, 1, cl.greets)
	assert.Equal(t, 1, cl.closes)
	assert.Empty(t, cl.sends)
}

func TestSend_FullRejectionIsSuccess(t *testing.T) {
	rejected := map[string]string{
		"one@y.com": "550 5.1.1 no such user",
		"two@y.com": "550 5.1.1 no such user",
	}
	cl := &fakeClient{rejections: []map[string]string{rejected}}
	d := &fakeDialer{client: cl}
	c := newTestCourier(t, d)

	resp, err := c.Send(context.Background(), &fakeEnvelope{
		sender:    "a@x.com",
		receivers: []string{"one@y.com", "two@y.com"},
	})
	require.NoError(t, err, "full rejection is a normal outcome, not an error")

	assert.Equal(t, rejected, resp.Rejected)
	assert.False(t, resp.OK())
	assert.Equal(t, 1, cl.closes)
}

func TestSendMany_ProbeFailurePropagates(t *testing.T) {
	errProbe := errors.New("session degraded")
	cl := &fakeClient{probeErr: errProbe}
	d := &fakeDialer{client: cl}
	c := newTestCourier(t, d)

	responses, err := c.SendMany(context.Background(), []courier.Envelope{
		&fakeEnvelope{sender: "a@x.com", receivers: []string{"b@y.com"}},
	})
	require.ErrorIs(t, err, errProbe)
	assert.Nil(t, responses)
	assert.Equal(t, 1, cl.closes)
}

func TestSendMany_CloseFailureAfterSuccessIsReturned(t *testing.T) {
	errClose := errors.New("lost connection during QUIT")
	cl := &fakeClient{closeErr: errClose}
	d := &fakeDialer{client: cl}
	c := newTestCourier(t, d)

	_, err := c.SendMany(context.Background(), []courier.Envelope{
		&fakeEnvelope{sender: "a@x.com", receivers: []string{"b@y.com"}},
	})
	require.ErrorIs(t, err, errClose)
	assert.Equal(t, 1, cl.closes)
}

func TestSendMany_CloseFailureDoesNotMaskDeliveryError(t *testing.T) {
	errSend := errors.New("connection dropped")
	errClose := errors.New("lost connection during QUIT")
	cl := &fakeClient{sendErrs: []error{errSend}, closeErr: errClose}
	d := &fakeDialer{client: cl}
	c := newTestCourier(t, d)

	_, err := c.SendMany(context.Background(), []courier.Envelope{
		&fakeEnvelope{sender: "a@x.com", receivers: []string{"b@y.com"}},
	})
	require.ErrorIs(t, err, errSend, "the in-flight failure stays the reported cause")
	assert.NotErrorIs(t, err, errClose)
	assert.Equal(t, 1, cl.closes)
}

func TestSend_EnvelopeRenderFailure(t *testing.T) {
	errRender := errors.New("broken attachment")
	cl := &fakeClient{}
	d := &fakeDialer{client: cl}
	c := newTestCourier(t, d)

	_, err := c.Send(context.Background(), &fakeEnvelope{
		sender:    "a@x.com",
		receivers: []string{"b@y.com"},
		renderErr: errRender,
	})
	require.ErrorIs(t, err, errRender)

	assert.Empty(t, cl.sends)
	assert.Equal(t, 1, cl.closes)
}

func TestWithResponseFunc(t *testing.T) {
	cl := &fakeClient{rejections: []map[string]string{{"b@y.com": "550"}}}
	d := &fakeDialer{client: cl}

	c := newTestCourier(t, d, courier.WithResponseFunc(func(st transport.Status, rejected map[string]string) courier.Response {
		st.Message = "rewritten"
		return courier.Response{Status: st, Rejected: rejected}
	}))

	resp, err := c.Send(context.Background(), &fakeEnvelope{sender: "a@x.com", receivers: []string{"b@y.com"}})
	require.NoError(t, err)

	assert.Equal(t, "rewritten", resp.Status.Message)
	assert.Equal(t, map[string]string{"b@y.com": "550"}, resp.Rejected)
}

func TestWithMiddleware_RunsBeforeBody(t *testing.T) {
	var events []string
	cl := &fakeClient{events: &events}
	d := &fakeDialer{client: cl}

	c := newTestCourier(t, d, courier.WithMiddleware(
		func(context.Context, transport.Client) error {
			events = append(events, "opt-mw")
			return nil
		},
	))

	_, err := c.Send(context.Background(), &fakeEnvelope{sender: "a@x.com", receivers: []string{"b@y.com"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"greet", "opt-mw", "send", "probe", "close"}, events)
}
