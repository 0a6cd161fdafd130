package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
)

// IngestStats reports what one message source contributed to a run
type IngestStats struct {
	Source      string
	Messages    int
	Skipped     int
	Occurrences int
}

// BackfillResult reports the outcome of the direct-marker pass
type BackfillResult struct {
	Owner         string
	OwnerKnown    bool
	Bidirectional []string
	Updated       int
}

// IngestService turns messages into stored occurrences and runs the
// direct-marker backfill at the end of a run
type IngestService struct {
	occurrences OccurrenceRepository
	normalizer  *AddressNormalizer
	deriver     *MarkerDeriver
	logger      *zap.Logger
	fields      []HeaderRole
}

// NewIngestService creates a new ingest service reading the given header fields
func NewIngestService(
	occurrences OccurrenceRepository,
	normalizer *AddressNormalizer,
	deriver *MarkerDeriver,
	logger *zap.Logger,
	fields []HeaderRole,
) *IngestService {
	if len(fields) == 0 {
		fields = []HeaderRole{RoleFrom, RoleTo}
	}
	return &IngestService{
		occurrences: occurrences,
		normalizer:  normalizer,
		deriver:     deriver,
		logger:      logger,
		fields:      fields,
	}
}

// IngestMessages writes the occurrences of every message of one source.
// Malformed messages are logged and skipped; storage errors abort.
func (s *IngestService) IngestMessages(ctx context.Context, run *RunState, source string, messages MessageIterator) (IngestStats, error) {
	stats := IngestStats{Source: source}
	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		msg, err := messages.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, ErrMalformedMessage) {
			stats.Skipped++
			run.skipped++
			s.logger.Warn("Skipping malformed message",
				zap.String("source", source),
				zap.Int("message_index", index),
				zap.Error(err))
			continue
		}
		if err != nil {
			return stats, fmt.Errorf("reading %s: %w", source, err)
		}

		occurrences := s.Extract(run.ID, source, msg)
		if len(occurrences) > 0 {
			if err := s.occurrences.InsertOccurrences(ctx, occurrences); err != nil {
				return stats, fmt.Errorf("storing occurrences of message %d in %s: %w", index, source, err)
			}
		}
		run.observeMessage(occurrences)
		stats.Messages++
		stats.Occurrences += len(occurrences)
	}

	s.logger.Info("Processed message source",
		zap.String("source", source),
		zap.String("run_id", run.ID),
		zap.Int("messages", stats.Messages),
		zap.Int("skipped", stats.Skipped),
		zap.Int("occurrences", stats.Occurrences))
	return stats, nil
}

// Extract builds the occurrences of one message, one per
// (header field, address) in field then source order
func (s *IngestService) Extract(runID, source string, msg Message) []Occurrence {
	headerKeys := msg.HeaderKeys()
	messageMarkers := s.deriver.MessageMarkers(headerKeys)

	var occurredAt *time.Time
	date, err := msg.Date()
	switch {
	case err != nil:
		s.logger.Debug("Ignoring unparseable date", zap.String("source", source), zap.Error(err))
	case !date.IsZero():
		utc := date.UTC()
		occurredAt = &utc
	}

	var out []Occurrence
	for _, role := range s.fields {
		for _, addr := range s.normalizer.Normalize(msg.Header(role.HeaderName())) {
			first, last, full := ParseName(addr.DisplayName, addr.Email)
			out = append(out, Occurrence{
				RunID:         runID,
				Source:        source,
				Email:         addr.Email,
				DisplayName:   addr.DisplayName,
				FirstName:     first,
				LastName:      last,
				Name:          full,
				Role:          role,
				OccurredAt:    occurredAt,
				Markers:       messageMarkers.Union(s.deriver.AddressMarkers(addr.Email)),
				RawHeaderKeys: headerKeys,
			})
		}
	}
	return out
}

// Backfill resolves the owner of the run and adds the direct marker to every
// stored occurrence of each address with a bidirectional exchange
func (s *IngestService) Backfill(ctx context.Context, run *RunState) (BackfillResult, error) {
	owner, ok := run.Owner()
	result := BackfillResult{Owner: owner, OwnerKnown: ok}
	if !ok {
		s.logger.Info("No occurrences in run, skipping direct marker pass", zap.String("run_id", run.ID))
		return result, nil
	}

	result.Bidirectional = run.Interactions.Bidirectional(owner)
	if len(result.Bidirectional) == 0 {
		s.logger.Info("No bidirectional contacts found",
			zap.String("run_id", run.ID),
			zap.String("owner", owner))
		return result, nil
	}

	updated, err := s.occurrences.UpdateMarkers(ctx, result.Bidirectional, func(m MarkerSet) MarkerSet {
		return m.With(MarkerDirect)
	})
	if err != nil {
		return result, fmt.Errorf("adding direct markers: %w", err)
	}
	result.Updated = updated

	s.logger.Info("Applied direct markers",
		zap.String("run_id", run.ID),
		zap.String("owner", owner),
		zap.Int("owner_occurrences", run.Owners.Count(owner)),
		zap.Int("contacts", len(result.Bidirectional)),
		zap.Int("occurrences_updated", updated))
	return result, nil
}
