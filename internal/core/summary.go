package core

import (
	"context"
	"fmt"
	"time"
)

// Summary describes the contents of a store
type Summary struct {
	TotalOccurrences     int
	DistinctEmails       int
	EarliestOccurrence   *time.Time
	LatestOccurrence     *time.Time
	ListservOccurrences  int
	AutomatedOccurrences int
	DirectOccurrences    int
	CanonicalContacts    int
}

// Summarize computes the summary of both tables
func Summarize(ctx context.Context, occurrences OccurrenceRepository, contacts ContactRepository) (*Summary, error) {
	aggregates, err := occurrences.AggregateByEmail(ctx)
	if err != nil {
		return nil, fmt.Errorf("aggregating occurrences: %w", err)
	}
	all, err := occurrences.AllOccurrences(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading occurrences: %w", err)
	}
	canonical, err := contacts.AllContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading contacts: %w", err)
	}

	s := &Summary{
		TotalOccurrences:  len(all),
		DistinctEmails:    len(aggregates),
		CanonicalContacts: len(canonical),
	}
	for _, agg := range aggregates {
		if agg.FirstOccurrence != nil && (s.EarliestOccurrence == nil || agg.FirstOccurrence.Before(*s.EarliestOccurrence)) {
			s.EarliestOccurrence = agg.FirstOccurrence
		}
		if agg.LastOccurrence != nil && (s.LatestOccurrence == nil || agg.LastOccurrence.After(*s.LatestOccurrence)) {
			s.LatestOccurrence = agg.LastOccurrence
		}
	}
	for _, occ := range all {
		if occ.Markers.Has(MarkerListserv) {
			s.ListservOccurrences++
		}
		if occ.Markers.Has(MarkerAutomated) {
			s.AutomatedOccurrences++
		}
		if occ.Markers.Has(MarkerDirect) {
			s.DirectOccurrences++
		}
	}
	return s, nil
}
