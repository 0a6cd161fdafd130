package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mikey/mbox-contacts/internal/core"
)

type stubRenderer struct{}

func (stubRenderer) Record(v core.ContactView) []string {
	return []string{v.Email, v.Name, "1", "", "", string(v.Category), "1", "0"}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	views := []core.ContactView{
		{Email: "a@x.com", Name: "Doe, Jane", Category: core.CategoryPersonal},
		{Email: "b@y.com", Category: core.CategoryBusiness},
	}
	if err := WriteCSV(&buf, stubRenderer{}, views); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	want := "Email,Name,Occurrences,First Occurrence,Last Occurrence,Category,Domain Frequency,Direct Count\n" +
		"a@x.com,\"Doe, Jane\",1,,,personal,1,0\n" +
		"b@y.com,,1,,,business,1,0\n"
	if buf.String() != want {
		t.Fatalf("csv = %q\nwant %q", buf.String(), want)
	}
}

func TestWriteEmailList(t *testing.T) {
	var buf bytes.Buffer
	views := []core.ContactView{
		{Email: "a@x.com", Name: "Jane Doe"},
		{Email: "b@y.com", Name: "  "},
		{Email: ""},
	}
	if err := WriteEmailList(&buf, views, "; "); err != nil {
		t.Fatalf("WriteEmailList failed: %v", err)
	}
	if got := buf.String(); got != "Jane Doe <a@x.com>; b@y.com" {
		t.Fatalf("list = %q", got)
	}
}

func TestWriteSummary(t *testing.T) {
	earliest := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	s := &core.Summary{
		TotalOccurrences:   4,
		DistinctEmails:     2,
		EarliestOccurrence: &earliest,
		DirectOccurrences:  1,
		CanonicalContacts:  3,
	}

	var text bytes.Buffer
	if err := WriteSummary(&text, s, FormatText, time.UTC); err != nil {
		t.Fatalf("WriteSummary text failed: %v", err)
	}
	for _, line := range []string{
		"Total Occurrences: 4",
		"Earliest Occurrence Date: 2024-01-01 09:00:00",
		"Latest Occurrence Date: none",
		"Canonical Contacts: 3",
	} {
		if !strings.Contains(text.String(), line) {
			t.Errorf("text summary missing %q:\n%s", line, text.String())
		}
	}

	var out bytes.Buffer
	if err := WriteSummary(&out, s, FormatYAML, time.UTC); err != nil {
		t.Fatalf("WriteSummary yaml failed: %v", err)
	}
	var doc map[string]interface{}
	if err := yaml.Unmarshal(out.Bytes(), &doc); err != nil {
		t.Fatalf("invalid yaml: %v", err)
	}
	if doc["total_occurrences"] != 4 || doc["earliest_occurrence"] != "2024-01-01 09:00:00" || doc["direct_occurrences"] != 1 {
		t.Fatalf("yaml = %v", doc)
	}

	if err := WriteSummary(&out, s, "xml", time.UTC); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
