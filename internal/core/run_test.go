package core_test

import (
	"reflect"
	"testing"

	"github.com/mikey/mbox-contacts/internal/core"
)

func TestOwnerInferrer(t *testing.T) {
	o := core.NewOwnerInferrer()
	if _, ok := o.Owner(); ok {
		t.Fatal("expected no owner before any observation")
	}

	// a:5, b:7, c:7 with b seen before c
	seq := []string{"a", "b", "c", "a", "c", "c", "c", "c", "c", "c", "b", "b", "b", "b", "b", "b", "a", "a", "a"}
	for _, email := range seq {
		o.Observe(email)
	}
	owner, ok := o.Owner()
	if !ok || owner != "b" {
		t.Fatalf("owner = %q, %v; want b", owner, ok)
	}
	if o.Count("c") != 7 || o.Count("a") != 5 {
		t.Fatalf("counts a=%d c=%d", o.Count("a"), o.Count("c"))
	}

	// a strictly higher count wins regardless of order
	o.Observe("c")
	if owner, _ := o.Owner(); owner != "c" {
		t.Fatalf("owner = %q, want c", owner)
	}
}

func TestInteractionTracker(t *testing.T) {
	tr := core.NewInteractionTracker()
	tr.Record("alice@x.com", "bob@y.com")
	tr.Record("bob@y.com", "alice@x.com")
	tr.Record("alice@x.com", "carol@z.com")
	tr.Record("dave@w.com", "alice@x.com")
	tr.Record("erin@v.com", "bob@y.com")
	tr.Record("erin@v.com", "alice@x.com")
	tr.Record("alice@x.com", "erin@v.com")
	// frank never writes to alice, but any message he sends counts
	tr.Record("frank@u.com", "carol@z.com")
	tr.Record("alice@x.com", "frank@u.com")
	tr.Sender("gus@t.com")

	got := tr.Bidirectional("alice@x.com")
	want := []string{"bob@y.com", "erin@v.com", "frank@u.com"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Bidirectional = %v, want %v", got, want)
	}
	if !tr.OwnerSent("alice@x.com", "carol@z.com") || tr.HasSent("carol@z.com") {
		t.Fatal("carol should only have received mail")
	}
	if !tr.HasSent("gus@t.com") || tr.OwnerSent("alice@x.com", "gus@t.com") {
		t.Fatal("gus should only have sent mail")
	}
}

func TestRunStateOwnerOverride(t *testing.T) {
	run := core.NewRunState("  Me@Example.com ")
	owner, ok := run.Owner()
	if !ok || owner != "me@example.com" {
		t.Fatalf("owner = %q, %v", owner, ok)
	}
	if run.ID == "" {
		t.Fatal("expected a run ID")
	}
	if other := core.NewRunState(""); other.ID == run.ID {
		t.Fatal("expected distinct run IDs")
	}
}
