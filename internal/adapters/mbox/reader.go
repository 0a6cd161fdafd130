package mbox

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	gombox "github.com/emersion/go-mbox"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/mikey/mbox-contacts/internal/core"
)

// Reader yields the messages of an mbox archive. It is single-pass.
type Reader struct {
	mr     *gombox.Reader
	closer io.Closer
	path   string
}

// Open opens the mbox file at path
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening mbox %s: %w", path, err)
	}
	r := NewReader(f)
	r.closer = f
	r.path = path
	return r, nil
}

// NewReader reads an mbox stream from r
func NewReader(r io.Reader) *Reader {
	return &Reader{mr: gombox.NewReader(r)}
}

// Path returns the path the reader was opened from
func (r *Reader) Path() string {
	return r.path
}

// Next returns the next message or io.EOF
func (r *Reader) Next() (core.Message, error) {
	raw, err := r.mr.NextMessage()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("reading mbox: %w", err)
	}

	entity, err := message.Read(raw)
	if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
		io.Copy(io.Discard, raw)
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedMessage, err)
	}
	// Headers are all we need; drain the body so the next message starts cleanly.
	if _, err := io.Copy(io.Discard, raw); err != nil {
		return nil, fmt.Errorf("reading mbox: %w", err)
	}
	return NewMessage(mail.Header{Header: entity.Header}), nil
}

// Close closes the underlying file
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// Message adapts a parsed mail header to core.Message
type Message struct {
	header mail.Header
	keys   []string
}

// NewMessage wraps a mail header
func NewMessage(h mail.Header) *Message {
	var keys []string
	seen := make(map[string]struct{})
	fields := h.Fields()
	for fields.Next() {
		k := strings.ToLower(fields.Key())
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return &Message{header: h, keys: keys}
}

// Header returns every value of the named header joined with ", "
func (m *Message) Header(key string) string {
	return strings.Join(m.header.Values(key), ", ")
}

// HeaderKeys returns the lowercased header names in order
func (m *Message) HeaderKeys() []string {
	return m.keys
}

// Date returns the parsed Date header, or the zero time when absent
func (m *Message) Date() (time.Time, error) {
	if strings.TrimSpace(m.header.Get("Date")) == "" {
		return time.Time{}, nil
	}
	return m.header.Date()
}
