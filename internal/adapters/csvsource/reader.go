package csvsource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mikey/mbox-contacts/internal/core"
)

// Column candidates, tried in order; the first non-empty value wins.
var (
	EmailColumns     = []string{"Email", "email"}
	FirstNameColumns = []string{"first_name", "First", "first"}
	LastNameColumns  = []string{"last_name", "Last", "last"}
	NameColumns      = []string{"name", "Name"}
)

// Reader yields the contact records of a CSV file with a header row
type Reader struct {
	cr      *csv.Reader
	closer  io.Closer
	source  string
	columns map[string]int
	line    int
}

// Open opens the CSV file at path and reads its header
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening csv file %s: %w", path, err)
	}
	r, err := NewReader(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// NewReader reads the header row from r. It fails with
// core.ErrMissingEmailColumn when no email column exists.
func NewReader(r io.Reader, source string) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: %w", source, core.ErrMissingEmailColumn)
		}
		return nil, fmt.Errorf("reading csv header of %s: %w", source, err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, ok := columns[name]; !ok {
			columns[name] = i
		}
	}
	found := false
	for _, name := range EmailColumns {
		if _, ok := columns[name]; ok {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%s: %w", source, core.ErrMissingEmailColumn)
	}

	return &Reader{
		cr:      cr,
		source:  source,
		columns: columns,
		line:    1,
	}, nil
}

// Next returns the next record or io.EOF. Unparseable rows are reported
// with core.ErrMalformedRecord.
func (r *Reader) Next() (core.ContactRecord, error) {
	row, err := r.cr.Read()
	r.line++
	if err != nil {
		if errors.Is(err, io.EOF) {
			return core.ContactRecord{}, io.EOF
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return core.ContactRecord{}, fmt.Errorf("%w: line %d: %v", core.ErrMalformedRecord, r.line, err)
		}
		return core.ContactRecord{}, fmt.Errorf("reading csv %s: %w", r.source, err)
	}

	return core.ContactRecord{
		Email:       r.field(row, EmailColumns),
		FirstName:   r.field(row, FirstNameColumns),
		LastName:    r.field(row, LastNameColumns),
		DisplayName: r.field(row, NameColumns),
		Source:      r.source,
	}, nil
}

func (r *Reader) field(row []string, candidates []string) string {
	for _, name := range candidates {
		i, ok := r.columns[name]
		if !ok || i >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[i]); v != "" {
			return v
		}
	}
	return ""
}

// Close closes the underlying file
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
