package envelope

import (
	"net/mail"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/shandysiswandi/courier"
	"github.com/shandysiswandi/courier/internal/clock"
	"github.com/shandysiswandi/courier/internal/uid"
	"github.com/shandysiswandi/courier/internal/validator"
)

// Attachment is a file enclosed with a message.
type Attachment struct {
	// Filename names the attachment as presented to the receiver.
	Filename string
	// ContentType overrides the detected media type. When empty it is
	// derived from the filename extension, falling back to
	// application/octet-stream.
	ContentType string
	// Data is the raw attachment content.
	Data []byte
}

// Message is a fully-prepared mail message.
//
// Addresses may carry a display name ("Ann <ann@example.com>"); the bare
// address is extracted for the transmission envelope. Receivers are
// delivered in To, Cc, Bcc order, duplicates included.
type Message struct {
	// From is the sender address.
	From string `validate:"required,address"`
	// To lists the primary receivers.
	To []string `validate:"min=1,dive,required,address"`
	// Cc lists carbon copy receivers.
	Cc []string `validate:"omitempty,dive,required,address"`
	// Bcc lists blind carbon copy receivers. They receive the message but
	// never appear in its headers.
	Bcc []string `validate:"omitempty,dive,required,address"`
	// Subject is the message subject line.
	Subject string
	// TextBody is the plain-text body.
	TextBody string
	// HTMLBody is the optional HTML body. When both bodies are set the
	// message renders as multipart/alternative.
	HTMLBody string
	// Headers holds extra headers stamped onto the message, in addition to
	// the standard ones this package always writes.
	Headers map[string]string
	// Attachments are enclosed files.
	Attachments []Attachment

	clocker clock.Clocker
	gen     uid.Generator
}

var _ courier.Envelope = (*Message)(nil)

var (
	v10     *validator.V10
	v10Err  error
	v10Once sync.Once
)

// Validate checks the message is deliverable: a parseable sender, at least
// one receiver, every address well-formed.
func (m *Message) Validate() error {
	v10Once.Do(func() {
		v10, v10Err = validator.NewV10()
	})
	if v10Err != nil {
		return v10Err
	}
	return v10.Validate(m)
}

// Sender returns the bare sender address for the transmission envelope.
func (m *Message) Sender() string {
	return bareAddress(m.From)
}

// Receivers returns the bare receiver addresses in To, Cc, Bcc order.
// Duplicates are kept and delivered as given.
func (m *Message) Receivers() []string {
	all := make([]string, 0, len(m.To)+len(m.Cc)+len(m.Bcc))
	all = append(all, m.To...)
	all = append(all, m.Cc...)
	all = append(all, m.Bcc...)

	return lo.Map(all, func(addr string, _ int) string {
		return bareAddress(addr)
	})
}

func bareAddress(s string) string {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return s
	}
	return addr.Address
}

var (
	defaultClock = clock.New()
	defaultUID   = uid.NewUUID()
)

func (m *Message) now() time.Time {
	if m.clocker != nil {
		return m.clocker.Now()
	}
	return defaultClock.Now()
}

func (m *Message) newID() string {
	if m.gen != nil {
		return m.gen.Generate()
	}
	return defaultUID.Generate()
}
