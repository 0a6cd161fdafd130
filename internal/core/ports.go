package core

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrMalformedMessage marks a message that should be skipped
	ErrMalformedMessage = errors.New("malformed message")
	// ErrMalformedRecord marks a contact record that should be skipped
	ErrMalformedRecord = errors.New("malformed contact record")
	// ErrMissingEmailColumn is returned by contact readers without an email column
	ErrMissingEmailColumn = errors.New("contact source has no email column")
)

// Message is a decoded mail message as seen by the engine
type Message interface {
	// Header returns the value of the named header, case-insensitively.
	// Repeated headers are joined with ", ". Absent headers yield "".
	Header(key string) string

	// HeaderKeys returns the lowercased names of the headers present, in order
	// and without duplicates
	HeaderKeys() []string

	// Date returns the parsed Date header. A missing header yields the zero
	// time and no error.
	Date() (time.Time, error)
}

// MessageIterator yields messages until io.EOF. Errors matching
// ErrMalformedMessage skip one message; any other error is fatal.
type MessageIterator interface {
	Next() (Message, error)
}

// ContactIterator yields contact records until io.EOF. Errors matching
// ErrMalformedRecord skip one record; any other error is fatal.
type ContactIterator interface {
	Next() (ContactRecord, error)
}

// OccurrenceRepository persists occurrences
type OccurrenceRepository interface {
	// InsertOccurrences appends occurrences atomically
	InsertOccurrences(ctx context.Context, occurrences []Occurrence) error

	// UpdateMarkers rewrites the marker set of every occurrence of the given
	// emails in one transaction and returns the number of rows changed
	UpdateMarkers(ctx context.Context, emails []string, update func(MarkerSet) MarkerSet) (int, error)

	// AllOccurrences returns every occurrence in insertion order
	AllOccurrences(ctx context.Context) ([]Occurrence, error)

	// OccurrencesByEmail returns the occurrences of one email in insertion order
	OccurrencesByEmail(ctx context.Context, email string) ([]Occurrence, error)

	// AggregateByEmail groups occurrences by email with count, min and max timestamp
	AggregateByEmail(ctx context.Context) ([]EmailAggregate, error)
}

// ContactRepository persists canonical contacts
type ContactRepository interface {
	// GetContact returns the contact for an email or ErrNotFound
	GetContact(ctx context.Context, email string) (*CanonicalContact, error)

	// MergeContact applies merge to the current contact (nil when absent) and
	// stores the result, as one read-modify-write transaction
	MergeContact(ctx context.Context, email string, merge MergeFunc) (MergeOutcome, error)

	// AllContacts returns every contact ordered by email
	AllContacts(ctx context.Context) ([]CanonicalContact, error)
}

// Store is a backend holding both tables
type Store interface {
	OccurrenceRepository
	ContactRepository
	Close() error
}
