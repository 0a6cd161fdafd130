package core

import (
	"context"

	"go.uber.org/zap"
)

// MessageSource is a named stream of mailbox messages
type MessageSource struct {
	Name     string
	Messages MessageIterator
}

// ContactSource is a named stream of contact records
type ContactSource struct {
	Name    string
	Records ContactIterator
}

// Sources groups the inputs of one ingestion run by kind
type Sources struct {
	CSV   []ContactSource
	Mbox  []MessageSource
	VCard []ContactSource
}

// RunReport summarizes one ingestion run
type RunReport struct {
	RunID    string
	Messages []IngestStats
	Contacts []MergeStats
	Backfill BackfillResult
}

// Pipeline runs contact lists and mailboxes through the engine
type Pipeline struct {
	ingest *IngestService
	merger *ContactMerger
	logger *zap.Logger
}

// NewPipeline creates a new pipeline
func NewPipeline(ingest *IngestService, merger *ContactMerger, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		ingest: ingest,
		merger: merger,
		logger: logger,
	}
}

// Run ingests CSV sources, then mailboxes, then cards, and finishes with
// the direct-marker backfill. The first fatal error stops the run.
func (p *Pipeline) Run(ctx context.Context, run *RunState, sources Sources) (RunReport, error) {
	report := RunReport{RunID: run.ID}

	for _, src := range sources.CSV {
		stats, err := p.merger.MergeAll(ctx, src.Name, src.Records)
		report.Contacts = append(report.Contacts, stats)
		if err != nil {
			return report, err
		}
	}

	for _, src := range sources.Mbox {
		stats, err := p.ingest.IngestMessages(ctx, run, src.Name, src.Messages)
		report.Messages = append(report.Messages, stats)
		if err != nil {
			return report, err
		}
	}

	for _, src := range sources.VCard {
		stats, err := p.merger.MergeAll(ctx, src.Name, src.Records)
		report.Contacts = append(report.Contacts, stats)
		if err != nil {
			return report, err
		}
	}

	backfill, err := p.ingest.Backfill(ctx, run)
	report.Backfill = backfill
	if err != nil {
		return report, err
	}

	messages, skipped, occurrences := run.Totals()
	p.logger.Info("Ingestion run complete",
		zap.String("run_id", run.ID),
		zap.String("owner", backfill.Owner),
		zap.Int("messages", messages),
		zap.Int("skipped", skipped),
		zap.Int("occurrences", occurrences),
		zap.Int("direct_updates", backfill.Updated))
	return report, nil
}
