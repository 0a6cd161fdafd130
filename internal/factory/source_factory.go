package factory

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/mikey/mbox-contacts/internal/adapters/csvsource"
	"github.com/mikey/mbox-contacts/internal/adapters/mbox"
	"github.com/mikey/mbox-contacts/internal/adapters/vcard"
	"github.com/mikey/mbox-contacts/internal/core"
	"go.uber.org/zap"
)

// SourcePaths lists the input files of one run by kind
type SourcePaths struct {
	CSV   []string
	Mbox  []string
	VCard []string
}

// Add files path under the kind its extension suggests. Anything that is
// not .csv or .vcf is read as a mailbox
func (p *SourcePaths) Add(path string) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		p.CSV = append(p.CSV, path)
	case ".vcf", ".vcard":
		p.VCard = append(p.VCard, path)
	default:
		p.Mbox = append(p.Mbox, path)
	}
}

// Empty reports whether no path was given
func (p SourcePaths) Empty() bool {
	return len(p.CSV)+len(p.Mbox)+len(p.VCard) == 0
}

// OpenSources holds the opened readers of a run
type OpenSources struct {
	core.Sources
	closers []io.Closer
}

// Close closes every opened reader
func (s *OpenSources) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SourceFactory opens the readers for the input files
type SourceFactory struct {
	logger *zap.Logger
}

// NewSourceFactory creates a new source factory
func NewSourceFactory(logger *zap.Logger) *SourceFactory {
	return &SourceFactory{logger: logger}
}

// Open opens every path up front so a missing file or a CSV without an
// email column fails before anything is written
func (f *SourceFactory) Open(paths SourcePaths) (*OpenSources, error) {
	opened := &OpenSources{}
	fail := func(err error) (*OpenSources, error) {
		opened.Close()
		return nil, err
	}

	for _, path := range paths.CSV {
		r, err := csvsource.Open(path)
		if err != nil {
			return fail(fmt.Errorf("opening csv source: %w", err))
		}
		opened.closers = append(opened.closers, r)
		opened.CSV = append(opened.CSV, core.ContactSource{Name: path, Records: r})
	}
	for _, path := range paths.Mbox {
		r, err := mbox.Open(path)
		if err != nil {
			return fail(fmt.Errorf("opening mbox source: %w", err))
		}
		opened.closers = append(opened.closers, r)
		opened.Mbox = append(opened.Mbox, core.MessageSource{Name: path, Messages: r})
	}
	for _, path := range paths.VCard {
		r, err := vcard.Open(path)
		if err != nil {
			return fail(fmt.Errorf("opening vcard source: %w", err))
		}
		opened.closers = append(opened.closers, r)
		opened.VCard = append(opened.VCard, core.ContactSource{Name: path, Records: r})
	}

	f.logger.Debug("Opened sources",
		zap.Int("csv", len(paths.CSV)),
		zap.Int("mbox", len(paths.Mbox)),
		zap.Int("vcard", len(paths.VCard)))
	return opened, nil
}
