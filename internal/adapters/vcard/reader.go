package vcard

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	govcard "github.com/emersion/go-vcard"

	"github.com/mikey/mbox-contacts/internal/core"
)

// Reader yields one contact record per email address of each card
type Reader struct {
	dec     *govcard.Decoder
	closer  io.Closer
	source  string
	pending []core.ContactRecord
}

// Open opens the vCard file at path
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening vcard file %s: %w", path, err)
	}
	r := NewReader(f, path)
	r.closer = f
	return r, nil
}

// NewReader decodes cards from r, tagging records with source
func NewReader(r io.Reader, source string) *Reader {
	return &Reader{
		dec:    govcard.NewDecoder(r),
		source: source,
	}
}

// Next returns the next record or io.EOF
func (r *Reader) Next() (core.ContactRecord, error) {
	for len(r.pending) == 0 {
		card, err := r.dec.Decode()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return core.ContactRecord{}, io.EOF
			}
			return core.ContactRecord{}, fmt.Errorf("decoding vcard %s: %w", r.source, err)
		}
		r.pending = Records(card, r.source)
	}

	next := r.pending[0]
	r.pending = r.pending[1:]
	return next, nil
}

// Close closes the underlying file
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// Records extracts the names of a card and returns one record per EMAIL.
// N supplies first and last name; FN fills the display name and, when N
// gave neither, is split into first name and the rest.
func Records(card govcard.Card, source string) []core.ContactRecord {
	var first, last, display string
	if n := card.Name(); n != nil {
		first = strings.TrimSpace(n.GivenName)
		last = strings.TrimSpace(n.FamilyName)
		display = strings.TrimSpace(first + " " + last)
	}

	if fn := strings.TrimSpace(card.PreferredValue(govcard.FieldFormattedName)); fn != "" {
		if display == "" {
			display = fn
		}
		if first == "" && last == "" {
			parts := strings.Fields(fn)
			first = parts[0]
			last = strings.Join(parts[1:], " ")
		}
	}

	var out []core.ContactRecord
	for _, email := range card.Values(govcard.FieldEmail) {
		if strings.TrimSpace(email) == "" {
			continue
		}
		out = append(out, core.ContactRecord{
			Email:       email,
			FirstName:   first,
			LastName:    last,
			DisplayName: display,
			Source:      source,
		})
	}
	return out
}
