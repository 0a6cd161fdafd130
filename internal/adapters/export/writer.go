package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mikey/mbox-contacts/internal/core"
)

// RowRenderer renders a view as an export row
type RowRenderer interface {
	Record(v core.ContactView) []string
}

// WriteCSV writes the header and one row per view
func WriteCSV(w io.Writer, renderer RowRenderer, views []core.ContactView) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(core.ExportColumns); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, v := range views {
		if err := cw.Write(renderer.Record(v)); err != nil {
			return fmt.Errorf("writing csv row for %s: %w", v.Email, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEmailList writes "Name <email>" entries, or the bare email when the
// name is empty, joined by separator
func WriteEmailList(w io.Writer, views []core.ContactView, separator string) error {
	entries := make([]string, 0, len(views))
	for _, v := range views {
		if v.Email == "" {
			continue
		}
		if name := strings.TrimSpace(v.Name); name != "" {
			entries = append(entries, fmt.Sprintf("%s <%s>", name, v.Email))
		} else {
			entries = append(entries, v.Email)
		}
	}
	_, err := io.WriteString(w, strings.Join(entries, separator))
	return err
}

// Summary formats
const (
	FormatText = "text"
	FormatYAML = "yaml"
)

type summaryDoc struct {
	TotalOccurrences     int    `yaml:"total_occurrences"`
	DistinctEmails       int    `yaml:"distinct_emails"`
	EarliestOccurrence   string `yaml:"earliest_occurrence"`
	LatestOccurrence     string `yaml:"latest_occurrence"`
	ListservOccurrences  int    `yaml:"listserv_occurrences"`
	AutomatedOccurrences int    `yaml:"automated_occurrences"`
	DirectOccurrences    int    `yaml:"direct_occurrences"`
	CanonicalContacts    int    `yaml:"canonical_contacts"`
}

// WriteSummary renders a store summary as text or YAML
func WriteSummary(w io.Writer, s *core.Summary, format string, loc *time.Location) error {
	doc := summaryDoc{
		TotalOccurrences:     s.TotalOccurrences,
		DistinctEmails:       s.DistinctEmails,
		EarliestOccurrence:   core.FormatTimestamp(s.EarliestOccurrence, loc),
		LatestOccurrence:     core.FormatTimestamp(s.LatestOccurrence, loc),
		ListservOccurrences:  s.ListservOccurrences,
		AutomatedOccurrences: s.AutomatedOccurrences,
		DirectOccurrences:    s.DirectOccurrences,
		CanonicalContacts:    s.CanonicalContacts,
	}

	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encoding summary: %w", err)
		}
		return enc.Close()
	case FormatText, "":
		_, err := fmt.Fprintf(w, `Database Summary
----------------
Total Occurrences: %d
Distinct Email Addresses: %d
Earliest Occurrence Date: %s
Latest Occurrence Date: %s
Occurrences marked as listserv: %d
Occurrences marked as automated: %d
Occurrences marked as direct: %d
Canonical Contacts: %d
`,
			doc.TotalOccurrences, doc.DistinctEmails,
			orNone(doc.EarliestOccurrence), orNone(doc.LatestOccurrence),
			doc.ListservOccurrences, doc.AutomatedOccurrences, doc.DirectOccurrences,
			doc.CanonicalContacts)
		return err
	default:
		return fmt.Errorf("unsupported summary format: %s", format)
	}
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
