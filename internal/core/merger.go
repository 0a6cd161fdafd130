package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// MergeOutcome describes what a merge did to the stored contact
type MergeOutcome int

const (
	MergeUnchanged MergeOutcome = iota
	MergeCreated
	MergeUpdated
)

// MergeFunc computes the new contact from the current one (nil if absent)
// and reports the outcome
type MergeFunc func(existing *CanonicalContact) (CanonicalContact, MergeOutcome)

// MergeStats counts the merge outcomes of one contact source
type MergeStats struct {
	Source    string
	Records   int
	Created   int
	Updated   int
	Unchanged int
	Skipped   int
}

// FillEmpty merges incoming into existing with fill-only semantics: a field
// is taken from incoming only when the existing value is empty. A missing
// contact is created from incoming, inferring the display name from the
// address when none is given.
func FillEmpty(existing *CanonicalContact, incoming CanonicalContact) (CanonicalContact, MergeOutcome) {
	if existing == nil {
		created := incoming
		if created.DisplayName == "" {
			created.DisplayName = InferName(created.Email)
		}
		return created, MergeCreated
	}

	merged := *existing
	outcome := MergeUnchanged
	fill := func(dst *string, src string) {
		if *dst == "" && src != "" {
			*dst = src
			outcome = MergeUpdated
		}
	}
	fill(&merged.FirstName, incoming.FirstName)
	fill(&merged.LastName, incoming.LastName)
	fill(&merged.DisplayName, incoming.DisplayName)
	if merged.Source == "" {
		merged.Source = incoming.Source
	}
	return merged, outcome
}

// ContactMerger folds external contact records into the canonical contact table
type ContactMerger struct {
	contacts ContactRepository
	logger   *zap.Logger
}

// NewContactMerger creates a new contact merger
func NewContactMerger(contacts ContactRepository, logger *zap.Logger) *ContactMerger {
	return &ContactMerger{
		contacts: contacts,
		logger:   logger,
	}
}

// Merge folds a single record. Records without a usable address are
// reported with ErrMalformedRecord.
func (m *ContactMerger) Merge(ctx context.Context, record ContactRecord) (MergeOutcome, error) {
	incoming, err := canonicalize(record)
	if err != nil {
		return MergeUnchanged, err
	}
	return m.contacts.MergeContact(ctx, incoming.Email, func(existing *CanonicalContact) (CanonicalContact, MergeOutcome) {
		return FillEmpty(existing, incoming)
	})
}

// MergeAll folds every record of one source in order
func (m *ContactMerger) MergeAll(ctx context.Context, source string, records ContactIterator) (MergeStats, error) {
	stats := MergeStats{Source: source}
	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		record, err := records.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err == nil {
			var outcome MergeOutcome
			outcome, err = m.Merge(ctx, record)
			if err == nil {
				stats.Records++
				switch outcome {
				case MergeCreated:
					stats.Created++
				case MergeUpdated:
					stats.Updated++
				default:
					stats.Unchanged++
				}
				continue
			}
		}
		if errors.Is(err, ErrMalformedRecord) {
			stats.Skipped++
			m.logger.Warn("Skipping contact record",
				zap.String("source", source),
				zap.Int("record_index", index),
				zap.Error(err))
			continue
		}
		return stats, fmt.Errorf("merging contacts from %s: %w", source, err)
	}

	m.logger.Info("Merged contact source",
		zap.String("source", source),
		zap.Int("records", stats.Records),
		zap.Int("created", stats.Created),
		zap.Int("updated", stats.Updated),
		zap.Int("unchanged", stats.Unchanged),
		zap.Int("skipped", stats.Skipped))
	return stats, nil
}

func canonicalize(record ContactRecord) (CanonicalContact, error) {
	email := NormalizeEmail(record.Email)
	if email == "" || !strings.Contains(email, "@") {
		return CanonicalContact{}, fmt.Errorf("%w: invalid email %q", ErrMalformedRecord, record.Email)
	}

	c := CanonicalContact{
		Email:       email,
		FirstName:   strings.TrimSpace(record.FirstName),
		LastName:    strings.TrimSpace(record.LastName),
		DisplayName: strings.TrimSpace(record.DisplayName),
		Source:      record.Source,
	}
	if c.DisplayName == "" {
		c.DisplayName = strings.TrimSpace(c.FirstName + " " + c.LastName)
	}
	return c, nil
}
