package mailpipe

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"slices"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"github.com/prenaud/mailpipe/internal/address"
)

// Builder accumulates and validates message fields. Validation happens
// at the point of each call, so bad input surfaces close to its cause
// rather than at send time.
type Builder struct {
	parser      address.Parser
	fromName    string
	to          []address.Address
	cc          []address.Address
	bcc         []address.Address
	seen        map[string]struct{}
	subject     string
	body        string
	bodyType    BodyType
	attachments []Attachment
}

type BuilderOptionFunc func(*Builder)

// WithPermissiveLocalPart accepts local parts that are not RFC 5322
// dot-atoms.
func WithPermissiveLocalPart(enabled bool) BuilderOptionFunc {
	return func(b *Builder) {
		b.parser.PermissiveLocalPart = enabled
	}
}

func NewBuilder(options ...BuilderOptionFunc) *Builder {
	b := &Builder{
		seen: make(map[string]struct{}),
	}
	for _, option := range options {
		option(b)
	}
	return b
}

// SetFromName sets the display-name portion of the From header. The
// sender address itself is supplied by the external transport's
// configuration and cannot be set here.
func (b *Builder) SetFromName(name string) *Builder {
	b.fromName = strings.TrimSpace(name)
	return b
}

// AddTo adds a primary recipient. Adding the same address twice is a
// no-op; insertion order is preserved.
func (b *Builder) AddTo(addr string) error {
	return b.addRecipient(&b.to, addr)
}

// AddCc adds a Cc recipient.
func (b *Builder) AddCc(addr string) error {
	return b.addRecipient(&b.cc, addr)
}

// AddBcc adds a Bcc recipient. Bcc addresses go into the envelope only,
// never into the rendered headers.
func (b *Builder) AddBcc(addr string) error {
	return b.addRecipient(&b.bcc, addr)
}

func (b *Builder) addRecipient(dst *[]address.Address, addr string) error {
	a, err := b.parser.Parse(strings.TrimSpace(addr))
	if err != nil {
		return &InvalidRecipientError{Address: addr, Err: err}
	}
	if _, ok := b.seen[a.String()]; ok {
		return nil
	}
	b.seen[a.String()] = struct{}{}
	*dst = append(*dst, a)
	return nil
}

// LoadRecipientsFromFile reads primary recipients from a file. Accepted
// layouts: a mapping with a "recipients" key holding a sequence of
// addresses, a bare sequence of addresses, or plain text with one
// address per line (blank lines ignored). The structured layouts may be
// spelled in YAML or JSON.
//
// Loading stops at the first invalid address, leaving previously loaded
// recipients in place; callers must treat a failed load as untrusted
// state and re-inspect.
func (b *Builder) LoadRecipientsFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &RecipientFileError{Path: path, Err: err}
	}
	addrs, err := decodeRecipients(data)
	if err != nil {
		return &RecipientFileError{Path: path, Err: err}
	}
	for _, addr := range addrs {
		if err := b.AddTo(addr); err != nil {
			return err
		}
	}
	return nil
}

func decodeRecipients(data []byte) ([]string, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return decodeRecipientLines(data)
	}
	switch doc := doc.(type) {
	case map[string]any:
		raw, ok := doc["recipients"]
		if !ok {
			return nil, errors.New("mapping has no 'recipients' key")
		}
		seq, ok := raw.([]any)
		if !ok {
			return nil, errors.New("'recipients' is not a sequence")
		}
		return recipientStrings(seq)
	case []any:
		return recipientStrings(doc)
	default:
		// Scalar or empty document: treat as plain text.
		return decodeRecipientLines(data)
	}
}

func recipientStrings(seq []any) ([]string, error) {
	if len(seq) == 0 {
		return nil, errors.New("no recipients in file")
	}
	out := make([]string, len(seq))
	for i, v := range seq {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("recipient at index %d is not a string", i)
		}
		out[i] = s
	}
	return out, nil
}

func decodeRecipientLines(data []byte) ([]string, error) {
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	if len(out) == 0 {
		return nil, errors.New("no recipients in file")
	}
	return out, nil
}

// Recipients returns the combined To, Cc and Bcc addresses accumulated
// so far, in first-seen order, each exactly once.
func (b *Builder) Recipients() []string {
	out := make([]string, 0, len(b.to)+len(b.cc)+len(b.bcc))
	for _, a := range b.to {
		out = append(out, a.String())
	}
	for _, a := range b.cc {
		out = append(out, a.String())
	}
	for _, a := range b.bcc {
		out = append(out, a.String())
	}
	return out
}

func (b *Builder) SetSubject(subject string) *Builder {
	b.subject = subject
	return b
}

// SetBody sets the message body. bodyType must be BodyPlain or
// BodyHTML; a message has exactly one body.
func (b *Builder) SetBody(text string, bodyType BodyType) error {
	switch bodyType {
	case BodyPlain, BodyHTML:
	default:
		return &UnsupportedBodyTypeError{Subtype: string(bodyType)}
	}
	b.body = text
	b.bodyType = bodyType
	return nil
}

// AttachFile reads the file at path in full and attaches it. The MIME
// type is inferred from the extension, falling back to
// application/octet-stream.
func (b *Builder) AttachFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &AttachmentReadError{Path: path, Err: err}
	}
	b.Attach(filepath.Base(path), "", data)
	return nil
}

// Attach adds an in-memory attachment. An empty contentType is inferred
// from the filename extension.
func (b *Builder) Attach(filename, contentType string, content []byte) *Builder {
	if contentType == "" {
		contentType = typeByExtension(filepath.Ext(filename))
	}
	b.attachments = append(b.attachments, Attachment{
		Filename:    filename,
		ContentType: contentType,
		Content:     content,
	})
	return b
}

func typeByExtension(ext string) string {
	t := mime.TypeByExtension(ext)
	if t == "" {
		return "application/octet-stream"
	}
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		return mt
	}
	return t
}

// Build checks the message invariants and returns the finished,
// immutable message. A sendable message has at least one recipient, a
// non-empty subject and a non-empty body; every missing field is named
// in the returned error.
func (b *Builder) Build() (*Message, error) {
	var missing []string
	if len(b.to)+len(b.cc)+len(b.bcc) == 0 {
		missing = append(missing, "recipients")
	}
	if b.subject == "" {
		missing = append(missing, "subject")
	}
	if b.body == "" {
		missing = append(missing, "body")
	}
	if len(missing) > 0 {
		return nil, &IncompleteMessageError{Missing: missing}
	}
	return &Message{
		fromName:    b.fromName,
		to:          slices.Clone(b.to),
		cc:          slices.Clone(b.cc),
		bcc:         slices.Clone(b.bcc),
		subject:     b.subject,
		body:        b.body,
		bodyType:    b.bodyType,
		attachments: slices.Clone(b.attachments),
	}, nil
}
