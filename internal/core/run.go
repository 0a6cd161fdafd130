package core

import (
	"sort"

	"github.com/google/uuid"
)

// OwnerInferrer picks the most frequent address of a run. Ties go to the
// address that was seen first.
type OwnerInferrer struct {
	counts    map[string]int
	firstSeen map[string]int
	owner     string
	ownerSeen int
}

// NewOwnerInferrer creates an empty owner inferrer
func NewOwnerInferrer() *OwnerInferrer {
	return &OwnerInferrer{
		counts:    make(map[string]int),
		firstSeen: make(map[string]int),
	}
}

// Observe counts one occurrence of email
func (o *OwnerInferrer) Observe(email string) {
	if _, ok := o.firstSeen[email]; !ok {
		o.firstSeen[email] = len(o.firstSeen)
	}
	o.counts[email]++
	c := o.counts[email]
	if c > o.ownerSeen || (c == o.ownerSeen && o.firstSeen[email] < o.firstSeen[o.owner]) {
		o.owner = email
		o.ownerSeen = c
	}
}

// Owner returns the inferred owner, or false when nothing was observed
func (o *OwnerInferrer) Owner() (string, bool) {
	return o.owner, o.ownerSeen > 0
}

// Count returns the number of occurrences observed for email
func (o *OwnerInferrer) Count(email string) int {
	return o.counts[email]
}

type exchange struct {
	from string
	to   string
}

// InteractionTracker records who sent to whom so that bidirectional
// exchanges with the owner can be resolved once the owner is known
type InteractionTracker struct {
	exchanges map[exchange]struct{}
	senders   map[string]struct{}
	order     []string
	seen      map[string]struct{}
}

// NewInteractionTracker creates an empty interaction tracker
func NewInteractionTracker() *InteractionTracker {
	return &InteractionTracker{
		exchanges: make(map[exchange]struct{}),
		senders:   make(map[string]struct{}),
		seen:      make(map[string]struct{}),
	}
}

// Sender notes that email appeared in the from field of a message
func (t *InteractionTracker) Sender(email string) {
	t.senders[email] = struct{}{}
	t.track(email)
}

// Record notes that a message from sender listed recipient in a recipient field
func (t *InteractionTracker) Record(sender, recipient string) {
	t.exchanges[exchange{from: sender, to: recipient}] = struct{}{}
	t.Sender(sender)
	t.track(recipient)
}

func (t *InteractionTracker) track(email string) {
	if _, ok := t.seen[email]; ok {
		return
	}
	t.seen[email] = struct{}{}
	t.order = append(t.order, email)
}

// OwnerSent reports whether owner sent a message addressed to email
func (t *InteractionTracker) OwnerSent(owner, email string) bool {
	_, ok := t.exchanges[exchange{from: owner, to: email}]
	return ok
}

// HasSent reports whether email appeared as the sender of any message in
// the run, whoever it was addressed to
func (t *InteractionTracker) HasSent(email string) bool {
	_, ok := t.senders[email]
	return ok
}

// Bidirectional returns, sorted, every address that received mail from the
// owner and also sent mail of its own
func (t *InteractionTracker) Bidirectional(owner string) []string {
	var out []string
	for _, email := range t.order {
		if email == owner {
			continue
		}
		if t.OwnerSent(owner, email) && t.HasSent(email) {
			out = append(out, email)
		}
	}
	sort.Strings(out)
	return out
}

// RunState is the state shared by the components of one ingestion run.
// It is discarded once the direct-marker backfill completes.
type RunState struct {
	ID           string
	Owners       *OwnerInferrer
	Interactions *InteractionTracker

	ownerOverride string
	messages      int
	skipped       int
	occurrences   int
}

// NewRunState creates the state of a new run. A non-empty ownerOverride
// replaces owner inference.
func NewRunState(ownerOverride string) *RunState {
	return &RunState{
		ID:            uuid.NewString(),
		Owners:        NewOwnerInferrer(),
		Interactions:  NewInteractionTracker(),
		ownerOverride: NormalizeEmail(ownerOverride),
	}
}

// Owner returns the archive owner of the run
func (r *RunState) Owner() (string, bool) {
	if r.ownerOverride != "" {
		return r.ownerOverride, true
	}
	return r.Owners.Owner()
}

// Totals returns the messages written, messages skipped and occurrences
// written so far in the run
func (r *RunState) Totals() (messages, skipped, occurrences int) {
	return r.messages, r.skipped, r.occurrences
}

// observeMessage feeds the occurrences of one written message into the run
func (r *RunState) observeMessage(occurrences []Occurrence) {
	r.messages++
	r.occurrences += len(occurrences)

	var senders, recipients []string
	for _, occ := range occurrences {
		r.Owners.Observe(occ.Email)
		switch {
		case occ.Role == RoleFrom:
			senders = append(senders, occ.Email)
		case occ.Role.IsRecipient():
			recipients = append(recipients, occ.Email)
		}
	}
	for _, s := range senders {
		r.Interactions.Sender(s)
		for _, rcpt := range recipients {
			r.Interactions.Record(s, rcpt)
		}
	}
}
