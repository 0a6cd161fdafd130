package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/mbox-contacts/internal/config"
	"github.com/mikey/mbox-contacts/internal/core"
	"github.com/mikey/mbox-contacts/internal/factory"
	"github.com/mikey/mbox-contacts/internal/logging"
	"github.com/mikey/mbox-contacts/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer(opts *Options) (*dig.Container, error) {
	container := dig.New()

	// Register options
	if err := container.Provide(func() *Options { return opts }); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(opts *Options) (*config.Config, error) {
		cfg, err := config.New(opts.ConfigFile)
		if err != nil {
			return nil, err
		}
		opts.apply(cfg)
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewParsingFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewSourceFactory); err != nil {
		return nil, err
	}

	// Register store and its repository views
	if err := container.Provide(func(f *factory.StoreFactory) (core.Store, error) {
		return f.CreateStore()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(s core.Store) core.OccurrenceRepository { return s }); err != nil {
		return nil, err
	}
	if err := container.Provide(func(s core.Store) core.ContactRepository { return s }); err != nil {
		return nil, err
	}

	// Register export settings
	if err := container.Provide(func(cfg *config.Config) (config.ExportConfig, error) {
		return cfg.GetExport()
	}); err != nil {
		return nil, err
	}

	// Register parsing components
	if err := container.Provide(func(f *factory.ParsingFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.ParsingFactory, text *utils.TextProcessor) *core.AddressNormalizer {
		return f.CreateAddressNormalizer(text)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.ParsingFactory) *core.MarkerDeriver {
		return f.CreateMarkerDeriver()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.ParsingFactory) *core.Classifier {
		return f.CreateClassifier()
	}); err != nil {
		return nil, err
	}

	// Register engine services
	if err := container.Provide(func(
		f *factory.ParsingFactory,
		occurrences core.OccurrenceRepository,
		normalizer *core.AddressNormalizer,
		deriver *core.MarkerDeriver,
		logger *zap.Logger,
	) (*core.IngestService, error) {
		fields, err := f.HeaderFields()
		if err != nil {
			return nil, err
		}
		return core.NewIngestService(occurrences, normalizer, deriver, logger, fields), nil
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(core.NewContactMerger); err != nil {
		return nil, err
	}
	if err := container.Provide(core.NewPipeline); err != nil {
		return nil, err
	}
	if err := container.Provide(func(
		occurrences core.OccurrenceRepository,
		classifier *core.Classifier,
		logger *zap.Logger,
		export config.ExportConfig,
	) *core.Aggregator {
		return core.NewAggregator(occurrences, classifier, logger,
			export.ExcludedDomain, export.Location, export.FoldListserv)
	}); err != nil {
		return nil, err
	}

	return container, nil
}
