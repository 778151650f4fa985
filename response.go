package courier

import "github.com/shandysiswandi/courier/transport"

// Response is the per-envelope delivery outcome: the relay status observed
// right after the send, plus any receivers the relay declined. It is built
// once at delivery time and never mutated afterwards.
type Response struct {
	// Status is the relay's reply to the post-send liveness probe.
	Status transport.Status
	// Rejected maps each declined receiver address to the relay's decline
	// reason. Empty when every receiver was accepted. Its keys are always a
	// subset of the delivered envelope's receivers.
	Rejected map[string]string
}

// OK reports whether the relay stayed healthy after the send (reply code
// 250) and every receiver was accepted.
func (r Response) OK() bool {
	return r.Status.Code == 250 && len(r.Rejected) == 0
}

// ResponseFunc builds the Response for a delivered envelope. Injecting one
// via WithResponseFunc changes the produced shape without subclassing.
type ResponseFunc func(status transport.Status, rejected map[string]string) Response

// NewResponse is the default ResponseFunc.
func NewResponse(status transport.Status, rejected map[string]string) Response {
	if rejected == nil {
		rejected = map[string]string{}
	}
	return Response{Status: status, Rejected: rejected}
}
