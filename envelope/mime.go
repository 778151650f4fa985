package envelope

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
)

const (
	contentTypeText = "text/plain; charset=UTF-8"
	contentTypeHTML = "text/html; charset=UTF-8"

	// base64LineLength is the RFC 2045 maximum encoded line length.
	base64LineLength = 76
)

// Bytes renders the message into a complete MIME document. The message is
// validated first; an invalid message renders nothing.
func (m *Message) Bytes() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	m.writeHeaders(&buf)

	if err := m.writeContent(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *Message) writeHeaders(buf *bytes.Buffer) {
	writeHeader(buf, "From", m.From)
	writeHeader(buf, "To", strings.Join(m.To, ", "))
	if len(m.Cc) > 0 {
		writeHeader(buf, "Cc", strings.Join(m.Cc, ", "))
	}
	writeHeader(buf, "Subject", mime.QEncoding.Encode("UTF-8", m.Subject))
	writeHeader(buf, "Date", m.now().Format(time.RFC1123Z))
	writeHeader(buf, "Message-ID", fmt.Sprintf("<%s@%s>", m.newID(), m.senderDomain()))

	keys := lo.Keys(m.Headers)
	sort.Strings(keys)
	for _, k := range keys {
		writeHeader(buf, k, m.Headers[k])
	}

	writeHeader(buf, "MIME-Version", "1.0")
}

func (m *Message) senderDomain() string {
	if _, domain, found := strings.Cut(m.Sender(), "@"); found && domain != "" {
		return domain
	}
	return "localhost"
}

func writeHeader(buf *bytes.Buffer, key, value string) {
	buf.WriteString(key)
	buf.WriteString(": ")
	buf.WriteString(value)
	buf.WriteString("\r\n")
}

func (m *Message) writeContent(buf *bytes.Buffer) error {
	if len(m.Attachments) == 0 {
		return m.writeInlineBody(buf)
	}

	mw := multipart.NewWriter(buf)
	fmt.Fprintf(buf, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", mw.Boundary())

	if err := m.writeBodyPart(mw); err != nil {
		return err
	}
	for _, a := range m.Attachments {
		if err := writeAttachment(mw, a); err != nil {
			return err
		}
	}
	return mw.Close()
}

// writeInlineBody writes the body directly under the top-level headers:
// multipart/alternative when both bodies are set, a single text part
// otherwise.
func (m *Message) writeInlineBody(buf *bytes.Buffer) error {
	if m.TextBody != "" && m.HTMLBody != "" {
		mw := multipart.NewWriter(buf)
		fmt.Fprintf(buf, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", mw.Boundary())
		buf.WriteString("This is a multipart message in MIME format.\r\n")
		if err := writeAlternative(mw, m.TextBody, m.HTMLBody); err != nil {
			return err
		}
		return mw.Close()
	}

	ctype, body := contentTypeText, m.TextBody
	if m.HTMLBody != "" {
		ctype, body = contentTypeHTML, m.HTMLBody
	}
	fmt.Fprintf(buf, "Content-Type: %s\r\n\r\n", ctype)
	buf.WriteString(body)
	return nil
}

// writeBodyPart writes the message body as the first part of a
// multipart/mixed document, nesting an alternative part when both bodies
// are set.
func (m *Message) writeBodyPart(mw *multipart.Writer) error {
	if m.TextBody != "" && m.HTMLBody != "" {
		boundary := "alt-" + m.newID()
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type": {fmt.Sprintf("multipart/alternative; boundary=%s", boundary)},
		})
		if err != nil {
			return err
		}

		inner := multipart.NewWriter(part)
		if err := inner.SetBoundary(boundary); err != nil {
			return err
		}
		if err := writeAlternative(inner, m.TextBody, m.HTMLBody); err != nil {
			return err
		}
		return inner.Close()
	}

	ctype, body := contentTypeText, m.TextBody
	if m.HTMLBody != "" {
		ctype, body = contentTypeHTML, m.HTMLBody
	}
	part, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {ctype}})
	if err != nil {
		return err
	}
	_, err = io.WriteString(part, body)
	return err
}

func writeAlternative(mw *multipart.Writer, textBody, htmlBody string) error {
	part, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {contentTypeText}})
	if err != nil {
		return err
	}
	if _, err := io.WriteString(part, textBody); err != nil {
		return err
	}

	part, err = mw.CreatePart(textproto.MIMEHeader{"Content-Type": {contentTypeHTML}})
	if err != nil {
		return err
	}
	_, err = io.WriteString(part, htmlBody)
	return err
}

func writeAttachment(mw *multipart.Writer, a Attachment) error {
	ctype := a.ContentType
	if ctype == "" {
		ctype = mime.TypeByExtension(filepath.Ext(a.Filename))
	}
	if ctype == "" {
		ctype = "application/octet-stream"
	}

	h := textproto.MIMEHeader{}
	h.Set("Content-Type", ctype)
	h.Set("Content-Transfer-Encoding", "base64")
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.Filename))

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	return writeBase64(part, a.Data)
}

func writeBase64(w io.Writer, data []byte) error {
	enc := base64.StdEncoding.EncodeToString(data)
	for len(enc) > 0 {
		n := min(base64LineLength, len(enc))
		if _, err := io.WriteString(w, enc[:n]); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\r\n"); err != nil {
			return err
		}
		enc = enc[n:]
	}
	return nil
}
