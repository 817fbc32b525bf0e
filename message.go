// Package mailpipe composes MIME mail messages and delivers them by
// piping the serialized document into an external mail transport such as
// msmtp or sendmail. The transport's own configuration supplies the
// sender address, authentication and TLS; this package only builds the
// message and reports the outcome of the transport invocation.
package mailpipe

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/quotedprintable"
	"strings"

	"github.com/prenaud/mailpipe/internal/address"
)

// BodyType selects the content subtype of the message body.
type BodyType string

const (
	BodyPlain BodyType = "plain"
	BodyHTML  BodyType = "html"
)

// Attachment is a file carried in full by the message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is the finished, immutable product of Builder.Build. Its MIME
// serialization is deterministic given identical inputs.
type Message struct {
	fromName    string
	to          []address.Address
	cc          []address.Address
	bcc         []address.Address
	subject     string
	body        string
	bodyType    BodyType
	attachments []Attachment
}

// Recipients returns the envelope recipient list handed to the
// transport: To, Cc and Bcc addresses in first-seen order, each exactly
// once.
func (m *Message) Recipients() []string {
	out := make([]string, 0, len(m.to)+len(m.cc)+len(m.bcc))
	for _, a := range m.to {
		out = append(out, a.String())
	}
	for _, a := range m.cc {
		out = append(out, a.String())
	}
	for _, a := range m.bcc {
		out = append(out, a.String())
	}
	return out
}

func (m *Message) Subject() string { return m.subject }

// WriteTo streams the serialized MIME document to w, implementing
// io.WriterTo.
func (m *Message) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	err := m.serialize(cw)
	return cw.n, err
}

// Bytes returns the serialized MIME document.
func (m *Message) Bytes() []byte {
	var b bytes.Buffer
	// bytes.Buffer cannot fail to write
	_ = m.serialize(&b)
	return b.Bytes()
}

const crlf = "\r\n"

// serialize renders headers in fixed order (From, To, Cc, Subject,
// MIME-Version, Content-Type) followed by the body and attachment parts
// in attach order. Bcc recipients are deliberately absent from the
// headers; they only appear in the envelope.
func (m *Message) serialize(w io.Writer) error {
	if m.fromName != "" {
		// Display name only. The transport completes the From header
		// with the address from its own configuration.
		if err := writeHeader(w, "From", address.FormatDisplayName(m.fromName)); err != nil {
			return err
		}
	}
	if err := writeHeader(w, "To", joinAddresses(m.to)); err != nil {
		return err
	}
	if len(m.cc) > 0 {
		if err := writeHeader(w, "Cc", joinAddresses(m.cc)); err != nil {
			return err
		}
	}
	if err := writeHeader(w, "Subject", encodeHeaderValue(m.subject)); err != nil {
		return err
	}
	if err := writeHeader(w, "MIME-Version", "1.0"); err != nil {
		return err
	}
	if len(m.attachments) == 0 {
		return m.writeTextPart(w)
	}

	boundary := m.boundary()
	if err := writeHeader(w, "Content-Type", `multipart/mixed; boundary="`+boundary+`"`); err != nil {
		return err
	}
	if _, err := io.WriteString(w, crlf+"--"+boundary+crlf); err != nil {
		return err
	}
	if err := m.writeTextPart(w); err != nil {
		return err
	}
	for _, a := range m.attachments {
		if _, err := io.WriteString(w, crlf+"--"+boundary+crlf); err != nil {
			return err
		}
		if err := writeAttachmentPart(w, a); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, crlf+"--"+boundary+"--"+crlf)
	return err
}

func (m *Message) writeTextPart(w io.Writer) error {
	if err := writeHeader(w, "Content-Type", "text/"+string(m.bodyType)+"; charset=utf-8"); err != nil {
		return err
	}
	if err := writeHeader(w, "Content-Transfer-Encoding", "quoted-printable"); err != nil {
		return err
	}
	if _, err := io.WriteString(w, crlf); err != nil {
		return err
	}
	qw := quotedprintable.NewWriter(w)
	if _, err := io.WriteString(qw, m.body); err != nil {
		return err
	}
	return qw.Close()
}

func writeAttachmentPart(w io.Writer, a Attachment) error {
	if err := writeHeader(w, "Content-Type", a.ContentType); err != nil {
		return err
	}
	if err := writeHeader(w, "Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.Filename)); err != nil {
		return err
	}
	if err := writeHeader(w, "Content-Transfer-Encoding", "base64"); err != nil {
		return err
	}
	if _, err := io.WriteString(w, crlf); err != nil {
		return err
	}
	return writeBase64(w, a.Content)
}

// writeBase64 emits base64 content wrapped at 76 columns per RFC 2045.
func writeBase64(w io.Writer, content []byte) error {
	encoded := base64.StdEncoding.EncodeToString(content)
	for len(encoded) > 0 {
		n := len(encoded)
		if n > 76 {
			n = 76
		}
		if _, err := io.WriteString(w, encoded[:n]+crlf); err != nil {
			return err
		}
		encoded = encoded[n:]
	}
	return nil
}

func writeHeader(w io.Writer, name, value string) error {
	_, err := io.WriteString(w, name+": "+value+crlf)
	return err
}

func joinAddresses(addrs []address.Address) string {
	strs := make([]string, len(addrs))
	for i, a := range addrs {
		strs[i] = a.String()
	}
	return strings.Join(strs, ", ")
}

// encodeHeaderValue applies RFC 2047 encoding to header values that are
// not printable ASCII, leaving everything else untouched.
func encodeHeaderValue(s string) string {
	for _, r := range s {
		if r < ' ' || r >= 0x7f {
			return mime.QEncoding.Encode("utf-8", s)
		}
	}
	return s
}

// boundary derives the multipart boundary from the message content so
// identical inputs always serialize to identical bytes.
func (m *Message) boundary() string {
	h := sha256.New()
	io.WriteString(h, string(m.bodyType))
	io.WriteString(h, m.body)
	for _, a := range m.attachments {
		io.WriteString(h, a.Filename)
		io.WriteString(h, a.ContentType)
		h.Write(a.Content)
	}
	return fmt.Sprintf("=_mailpipe_%x", h.Sum(nil)[:12])
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
