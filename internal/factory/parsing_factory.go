package factory

import (
	"fmt"

	"github.com/mikey/mbox-contacts/internal/config"
	"github.com/mikey/mbox-contacts/internal/core"
	"github.com/mikey/mbox-contacts/internal/utils"
	"github.com/mikey/mbox-contacts/internal/whitelist"
	"go.uber.org/zap"
)

// ParsingFactory creates the header parsing and classification components
type ParsingFactory struct {
	ingest   config.IngestConfig
	classify config.ClassifyConfig
	logger   *zap.Logger
}

// NewParsingFactory creates a new ParsingFactory
func NewParsingFactory(cfg *config.Config, logger *zap.Logger) *ParsingFactory {
	return &ParsingFactory{
		ingest:   cfg.GetIngest(),
		classify: cfg.GetClassify(),
		logger:   logger,
	}
}

// CreateTextProcessor creates a new TextProcessor
func (f *ParsingFactory) CreateTextProcessor() *utils.TextProcessor {
	return utils.NewTextProcessor(f.logger)
}

// CreateAddressNormalizer creates an address normalizer on top of text
func (f *ParsingFactory) CreateAddressNormalizer(text *utils.TextProcessor) *core.AddressNormalizer {
	return core.NewAddressNormalizer(text, f.logger)
}

// CreateMarkerDeriver creates the marker deriver from the classify rules
func (f *ParsingFactory) CreateMarkerDeriver() *core.MarkerDeriver {
	return core.NewMarkerDeriver(f.classify.ListservHeaders, f.classify.AutomationKeywords)
}

// CreateClassifier creates the classifier over the personal domains
func (f *ParsingFactory) CreateClassifier() *core.Classifier {
	return core.NewClassifier(whitelist.NewChecker(f.classify.PersonalDomains, f.logger))
}

// HeaderFields returns the configured header roles to read
func (f *ParsingFactory) HeaderFields() ([]core.HeaderRole, error) {
	roles := make([]core.HeaderRole, 0, len(f.ingest.HeaderFields))
	for _, name := range f.ingest.HeaderFields {
		role, err := core.ParseHeaderRole(name)
		if err != nil {
			return nil, fmt.Errorf("invalid ingest header field: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, nil
}

// OwnerOverride returns the configured owner address, or "" to infer it
func (f *ParsingFactory) OwnerOverride() string {
	return core.NormalizeEmail(f.ingest.OwnerEmail)
}
