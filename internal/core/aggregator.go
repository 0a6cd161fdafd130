package core

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	// TimestampLayout is the export rendering of occurrence timestamps
	TimestampLayout = "2006-01-02 15:04:05"
	// DateLayout is the layout of the recency cutoff
	DateLayout = "2006-01-02"
)

// ExportColumns is the fixed header of exported rows
var ExportColumns = []string{
	"Email",
	"Name",
	"Occurrences",
	"First Occurrence",
	"Last Occurrence",
	"Category",
	"Domain Frequency",
	"Direct Count",
}

// ExportFilter selects the rows of an export. Zero values disable a filter.
type ExportFilter struct {
	PersonalOnly bool
	// MinDirect keeps rows with DirectCount >= MinDirect
	MinDirect int
	// MinOccurrences keeps rows with Occurrences > MinOccurrences
	MinOccurrences int
	// RecentDate (YYYY-MM-DD) keeps rows whose last occurrence is on or after it
	RecentDate string
}

// Aggregator builds per-email contact views from the occurrence store
type Aggregator struct {
	occurrences    OccurrenceRepository
	classifier     *Classifier
	logger         *zap.Logger
	excludedDomain string
	location       *time.Location
	foldListserv   bool
}

// NewAggregator creates a new aggregator. Occurrences of excludedDomain do
// not count towards any domain frequency; timestamps render in location.
func NewAggregator(
	occurrences OccurrenceRepository,
	classifier *Classifier,
	logger *zap.Logger,
	excludedDomain string,
	location *time.Location,
	foldListserv bool,
) *Aggregator {
	if location == nil {
		location = time.Local
	}
	return &Aggregator{
		occurrences:    occurrences,
		classifier:     classifier,
		logger:         logger,
		excludedDomain: Domain("@" + excludedDomain),
		location:       location,
		foldListserv:   foldListserv,
	}
}

type emailTally struct {
	directCount int
	markers     MarkerSet
	byTime      []Occurrence
}

// Views returns one unfiltered view per email, sorted by email
func (a *Aggregator) Views(ctx context.Context) ([]ContactView, error) {
	aggregates, err := a.occurrences.AggregateByEmail(ctx)
	if err != nil {
		return nil, fmt.Errorf("aggregating occurrences: %w", err)
	}
	all, err := a.occurrences.AllOccurrences(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading occurrences: %w", err)
	}

	domainCounts := make(map[string]int)
	tallies := make(map[string]*emailTally)
	for _, occ := range all {
		if domain := Domain(occ.Email); domain != a.excludedDomain {
			domainCounts[domain]++
		}
		t, ok := tallies[occ.Email]
		if !ok {
			t = &emailTally{}
			tallies[occ.Email] = t
		}
		t.markers = t.markers.Union(occ.Markers)
		if occ.Markers.Has(MarkerDirect) {
			t.directCount++
		}
		if occ.OccurredAt != nil {
			t.byTime = append(t.byTime, occ)
		}
	}

	views := make([]ContactView, 0, len(aggregates))
	for _, agg := range aggregates {
		t := tallies[agg.Email]
		if t == nil {
			t = &emailTally{}
		}
		category := a.classifier.Categorize(agg.Email, t.markers)
		if a.foldListserv && category == CategoryListserv {
			category = CategoryBusiness
		}
		views = append(views, ContactView{
			Email:           agg.Email,
			Name:            earliestName(t.byTime, agg.FirstOccurrence),
			Occurrences:     agg.Occurrences,
			FirstOccurrence: agg.FirstOccurrence,
			LastOccurrence:  agg.LastOccurrence,
			Category:        category,
			DomainFrequency: domainCounts[Domain(agg.Email)],
			DirectCount:     t.directCount,
			Markers:         t.markers,
		})
	}

	sort.SliceStable(views, func(i, j int) bool { return views[i].Email < views[j].Email })
	return views, nil
}

// earliestName returns the name of the first occurrence stamped at first
func earliestName(stamped []Occurrence, first *time.Time) string {
	if first == nil {
		return ""
	}
	for _, occ := range stamped {
		if occ.OccurredAt.Equal(*first) {
			return occ.Name
		}
	}
	return ""
}

// Export returns the filtered views, sorted by email
func (a *Aggregator) Export(ctx context.Context, filter ExportFilter) ([]ContactView, error) {
	views, err := a.Views(ctx)
	if err != nil {
		return nil, err
	}
	filtered := a.ApplyFilters(views, filter)
	a.logger.Info("Built contact export",
		zap.Int("contacts", len(views)),
		zap.Int("exported", len(filtered)))
	return filtered, nil
}

// ApplyFilters applies, in order, the personal-only, minimum direct count,
// minimum occurrence and recency filters. An unparseable recency date is
// logged and that filter is not applied.
func (a *Aggregator) ApplyFilters(views []ContactView, filter ExportFilter) []ContactView {
	if filter.PersonalOnly {
		views = keep(views, func(v ContactView) bool { return v.Category == CategoryPersonal })
	}
	if filter.MinDirect > 0 {
		views = keep(views, func(v ContactView) bool { return v.DirectCount >= filter.MinDirect })
	}
	if filter.MinOccurrences > 0 {
		views = keep(views, func(v ContactView) bool { return v.Occurrences > filter.MinOccurrences })
	}
	if filter.RecentDate != "" {
		cutoff, err := time.ParseInLocation(DateLayout, filter.RecentDate, a.location)
		if err != nil {
			a.logger.Warn("Ignoring recency filter with unparseable date",
				zap.String("recent_date", filter.RecentDate),
				zap.Error(err))
		} else {
			views = keep(views, func(v ContactView) bool {
				return v.LastOccurrence != nil && !v.LastOccurrence.Before(cutoff)
			})
		}
	}
	return views
}

func keep(views []ContactView, pred func(ContactView) bool) []ContactView {
	out := make([]ContactView, 0, len(views))
	for _, v := range views {
		if pred(v) {
			out = append(out, v)
		}
	}
	return out
}

// Record renders the view as an export row matching ExportColumns
func (a *Aggregator) Record(v ContactView) []string {
	return []string{
		v.Email,
		v.Name,
		strconv.Itoa(v.Occurrences),
		FormatTimestamp(v.FirstOccurrence, a.location),
		FormatTimestamp(v.LastOccurrence, a.location),
		string(v.Category),
		strconv.Itoa(v.DomainFrequency),
		strconv.Itoa(v.DirectCount),
	}
}

// FormatTimestamp renders t in loc, or "" when t is nil
func FormatTimestamp(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	return t.In(loc).Format(TimestampLayout)
}
