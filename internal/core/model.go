package core

import (
	"fmt"
	"strings"
	"time"
)

// HeaderRole identifies the header field an address occurrence came from
type HeaderRole string

const (
	RoleFrom HeaderRole = "from"
	RoleTo   HeaderRole = "to"
	RoleCc   HeaderRole = "cc"
)

// HeaderName returns the canonical message header name for the role
func (r HeaderRole) HeaderName() string {
	switch r {
	case RoleFrom:
		return "From"
	case RoleTo:
		return "To"
	case RoleCc:
		return "Cc"
	default:
		return string(r)
	}
}

// IsRecipient reports whether the role names a recipient field
func (r HeaderRole) IsRecipient() bool {
	return r == RoleTo || r == RoleCc
}

// ParseHeaderRole parses a header field name into a role
func ParseHeaderRole(s string) (HeaderRole, error) {
	switch HeaderRole(strings.ToLower(strings.TrimSpace(s))) {
	case RoleFrom:
		return RoleFrom, nil
	case RoleTo:
		return RoleTo, nil
	case RoleCc:
		return RoleCc, nil
	default:
		return "", fmt.Errorf("unsupported header field: %q", s)
	}
}

// Occurrence is one appearance of an email address in one header role of one message
type Occurrence struct {
	ID            int64
	RunID         string
	Source        string
	Email         string
	DisplayName   string
	FirstName     string
	LastName      string
	Name          string
	Role          HeaderRole
	OccurredAt    *time.Time
	Markers       MarkerSet
	RawHeaderKeys []string
}

// CanonicalContact is the merged record for one email address built from
// external contact sources
type CanonicalContact struct {
	Email       string
	FirstName   string
	LastName    string
	DisplayName string
	Source      string
}

// ContactRecord is a raw record produced by a vCard or CSV reader
type ContactRecord struct {
	Email       string
	FirstName   string
	LastName    string
	DisplayName string
	Source      string
}

// EmailAggregate holds the per-email count and timestamp bounds computed by the store
type EmailAggregate struct {
	Email           string
	Occurrences     int
	FirstOccurrence *time.Time
	LastOccurrence  *time.Time
}

// Category is the classification label of a canonical email
type Category string

const (
	CategoryPersonal Category = "personal"
	CategoryBusiness Category = "business"
	CategoryListserv Category = "listserv"
)

// ContactView is one aggregated export row
type ContactView struct {
	Email           string
	Name            string
	Occurrences     int
	FirstOccurrence *time.Time
	LastOccurrence  *time.Time
	Category        Category
	DomainFrequency int
	DirectCount     int
	Markers         MarkerSet
}

// Domain returns the lowercased part of an address after the last '@'
func Domain(email string) string {
	i := strings.LastIndex(email, "@")
	if i < 0 {
		return ""
	}
	return strings.ToLower(email[i+1:])
}

// NormalizeEmail lowercases and trims an address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
