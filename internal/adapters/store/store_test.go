package store

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/mbox-contacts/internal/core"
)

func newTestSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "contacts-test.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func forEachStore(t *testing.T, fn func(t *testing.T, s core.Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore(zap.NewNop())) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newTestSQLiteStore(t)) })
}

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestOccurrences(t *testing.T) {
	forEachStore(t, func(t *testing.T, s core.Store) {
		ctx := context.Background()
		in := []core.Occurrence{
			{
				RunID: "r1", Source: "a.mbox", Email: "bob@y.com", DisplayName: "Bob Jones",
				FirstName: "Bob", LastName: "Jones", Name: "Bob Jones", Role: core.RoleFrom,
				OccurredAt: ts("2024-01-02T03:04:05Z"), Markers: core.NewMarkerSet(core.MarkerListserv),
				RawHeaderKeys: []string{"from", "to", "list-unsubscribe"},
			},
			{RunID: "r1", Source: "a.mbox", Email: "amy@x.com", Name: "Amy", Role: core.RoleTo},
			{RunID: "r1", Source: "a.mbox", Email: "bob@y.com", Name: "Bob", Role: core.RoleCc, OccurredAt: ts("2023-12-31T00:00:00Z")},
		}
		if err := s.InsertOccurrences(ctx, in); err != nil {
			t.Fatalf("InsertOccurrences failed: %v", err)
		}
		if err := s.InsertOccurrences(ctx, nil); err != nil {
			t.Fatalf("empty insert failed: %v", err)
		}

		all, err := s.AllOccurrences(ctx)
		if err != nil {
			t.Fatalf("AllOccurrences failed: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("got %d occurrences", len(all))
		}
		first := all[0]
		if first.ID == 0 || first.Email != "bob@y.com" || first.Role != core.RoleFrom || first.LastName != "Jones" {
			t.Fatalf("first = %+v", first)
		}
		if !first.OccurredAt.Equal(*in[0].OccurredAt) || first.Markers != in[0].Markers {
			t.Fatalf("first timestamp/markers = %v %v", first.OccurredAt, first.Markers)
		}
		if !reflect.DeepEqual(first.RawHeaderKeys, in[0].RawHeaderKeys) {
			t.Fatalf("raw header keys = %v", first.RawHeaderKeys)
		}
		if all[1].OccurredAt != nil {
			t.Fatalf("expected nil timestamp, got %v", all[1].OccurredAt)
		}

		bobs, err := s.OccurrencesByEmail(ctx, "bob@y.com")
		if err != nil || len(bobs) != 2 || bobs[1].Role != core.RoleCc {
			t.Fatalf("OccurrencesByEmail = %+v, %v", bobs, err)
		}

		aggs, err := s.AggregateByEmail(ctx)
		if err != nil {
			t.Fatalf("AggregateByEmail failed: %v", err)
		}
		if len(aggs) != 2 || aggs[0].Email != "amy@x.com" || aggs[1].Email != "bob@y.com" {
			t.Fatalf("aggregates = %+v", aggs)
		}
		if aggs[0].Occurrences != 1 || aggs[0].FirstOccurrence != nil || aggs[0].LastOccurrence != nil {
			t.Fatalf("amy aggregate = %+v", aggs[0])
		}
		bob := aggs[1]
		if bob.Occurrences != 2 || !bob.FirstOccurrence.Equal(*ts("2023-12-31T00:00:00Z")) || !bob.LastOccurrence.Equal(*ts("2024-01-02T03:04:05Z")) {
			t.Fatalf("bob aggregate = %+v", bob)
		}
	})
}

func TestUpdateMarkers(t *testing.T) {
	forEachStore(t, func(t *testing.T, s core.Store) {
		ctx := context.Background()
		err := s.InsertOccurrences(ctx, []core.Occurrence{
			{RunID: "r1", Email: "bob@y.com", Role: core.RoleFrom, Markers: core.NewMarkerSet(core.MarkerListserv)},
			{RunID: "r1", Email: "amy@x.com", Role: core.RoleTo},
			{RunID: "r2", Email: "bob@y.com", Role: core.RoleTo},
		})
		if err != nil {
			t.Fatalf("InsertOccurrences failed: %v", err)
		}

		addDirect := func(m core.MarkerSet) core.MarkerSet { return m.With(core.MarkerDirect) }
		n, err := s.UpdateMarkers(ctx, []string{"bob@y.com", "nobody@z.com"}, addDirect)
		if err != nil || n != 2 {
			t.Fatalf("UpdateMarkers = %d, %v", n, err)
		}

		// applying again changes nothing
		if n, err := s.UpdateMarkers(ctx, []string{"bob@y.com"}, addDirect); err != nil || n != 0 {
			t.Fatalf("second UpdateMarkers = %d, %v", n, err)
		}

		bobs, _ := s.OccurrencesByEmail(ctx, "bob@y.com")
		if bobs[0].Markers != core.NewMarkerSet(core.MarkerDirect, core.MarkerListserv) || bobs[1].Markers != core.NewMarkerSet(core.MarkerDirect) {
			t.Fatalf("bob markers = %v %v", bobs[0].Markers, bobs[1].Markers)
		}
		amys, _ := s.OccurrencesByEmail(ctx, "amy@x.com")
		if !amys[0].Markers.IsEmpty() {
			t.Fatalf("amy markers = %v", amys[0].Markers)
		}
	})
}

func TestMergeContact(t *testing.T) {
	forEachStore(t, func(t *testing.T, s core.Store) {
		ctx := context.Background()
		if _, err := s.GetContact(ctx, "jane@x.com"); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}

		merge := func(incoming core.CanonicalContact) core.MergeFunc {
			return func(existing *core.CanonicalContact) (core.CanonicalContact, core.MergeOutcome) {
				return core.FillEmpty(existing, incoming)
			}
		}

		outcome, err := s.MergeContact(ctx, "jane@x.com", merge(core.CanonicalContact{Email: "jane@x.com", FirstName: "Jane", Source: "a.csv"}))
		if err != nil || outcome != core.MergeCreated {
			t.Fatalf("create = %v, %v", outcome, err)
		}
		outcome, err = s.MergeContact(ctx, "jane@x.com", merge(core.CanonicalContact{Email: "jane@x.com", FirstName: "Janet", LastName: "Doe", Source: "b.vcf"}))
		if err != nil || outcome != core.MergeUpdated {
			t.Fatalf("update = %v, %v", outcome, err)
		}
		outcome, err = s.MergeContact(ctx, "jane@x.com", merge(core.CanonicalContact{Email: "jane@x.com", LastName: "Smith"}))
		if err != nil || outcome != core.MergeUnchanged {
			t.Fatalf("unchanged = %v, %v", outcome, err)
		}

		got, err := s.GetContact(ctx, "jane@x.com")
		if err != nil {
			t.Fatalf("GetContact failed: %v", err)
		}
		want := core.CanonicalContact{Email: "jane@x.com", FirstName: "Jane", LastName: "Doe", DisplayName: "Jane", Source: "a.csv"}
		if *got != want {
			t.Fatalf("contact = %+v, want %+v", *got, want)
		}

		if _, err := s.MergeContact(ctx, "amy@x.com", merge(core.CanonicalContact{Email: "amy@x.com"})); err != nil {
			t.Fatalf("MergeContact failed: %v", err)
		}
		all, err := s.AllContacts(ctx)
		if err != nil || len(all) != 2 || all[0].Email != "amy@x.com" || all[0].DisplayName != "Amy" {
			t.Fatalf("AllContacts = %+v, %v", all, err)
		}
	})
}

func TestSQLiteReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	s, err := NewSQLiteStore(path, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	ctx := context.Background()
	if err := s.InsertOccurrences(ctx, []core.Occurrence{{RunID: "r", Email: "a@x.com", Role: core.RoleFrom}}); err != nil {
		t.Fatalf("InsertOccurrences failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s, err = NewSQLiteStore(path, zap.NewNop())
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()
	all, err := s.AllOccurrences(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("after reopen = %+v, %v", all, err)
	}
}

func TestDialectByName(t *testing.T) {
	for _, name := range []string{"sqlite", "mysql", "postgres"} {
		d, err := DialectByName(name)
		if err != nil || d.Name != name || len(d.Schema) == 0 {
			t.Fatalf("DialectByName(%q) = %+v, %v", name, d, err)
		}
	}
	if _, err := DialectByName("oracle"); err == nil {
		t.Fatal("expected error for unknown dialect")
	}
}

func TestNameColumnsUnbounded(t *testing.T) {
	bounded := regexp.MustCompile(`(?m)^\s*(display_name|first_name|last_name|name)\s+VARCHAR`)
	for _, d := range []Dialect{SQLite, MySQL, Postgres} {
		for _, stmt := range d.Schema {
			if m := bounded.FindString(stmt); m != "" {
				t.Errorf("%s: name column has a length limit: %q", d.Name, strings.TrimSpace(m))
			}
		}
	}
}
