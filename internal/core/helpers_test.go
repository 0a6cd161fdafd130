package core_test

import (
	"io"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/mbox-contacts/internal/adapters/store"
	"github.com/mikey/mbox-contacts/internal/core"
	"github.com/mikey/mbox-contacts/internal/utils"
)

type fakeMessage struct {
	headers map[string]string
	keys    []string
	date    time.Time
	dateErr error
}

// newMessage builds a message from "Key: value" lines
func newMessage(date time.Time, lines ...string) *fakeMessage {
	m := &fakeMessage{headers: make(map[string]string), date: date}
	for _, line := range lines {
		key, value, _ := strings.Cut(line, ":")
		key = strings.ToLower(strings.TrimSpace(key))
		m.headers[key] = strings.TrimSpace(value)
		m.keys = append(m.keys, key)
	}
	return m
}

func (m *fakeMessage) Header(key string) string { return m.headers[strings.ToLower(key)] }
func (m *fakeMessage) HeaderKeys() []string     { return m.keys }
func (m *fakeMessage) Date() (time.Time, error) { return m.date, m.dateErr }

// messageList yields messages, or the error in place of a nil message
type messageList struct {
	items []core.Message
	errs  map[int]error
	pos   int
}

func (l *messageList) Next() (core.Message, error) {
	if l.pos >= len(l.items) {
		return nil, io.EOF
	}
	i := l.pos
	l.pos++
	if err, ok := l.errs[i]; ok {
		return nil, err
	}
	return l.items[i], nil
}

func messages(items ...core.Message) *messageList {
	return &messageList{items: items}
}

type recordList struct {
	items []core.ContactRecord
	pos   int
}

func (l *recordList) Next() (core.ContactRecord, error) {
	if l.pos >= len(l.items) {
		return core.ContactRecord{}, io.EOF
	}
	l.pos++
	return l.items[l.pos-1], nil
}

func records(items ...core.ContactRecord) *recordList {
	return &recordList{items: items}
}

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func newTestStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	s := store.NewMemoryStore(zap.NewNop())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestIngest(t *testing.T, occurrences core.OccurrenceRepository, fields ...core.HeaderRole) *core.IngestService {
	t.Helper()
	logger := zap.NewNop()
	normalizer := core.NewAddressNormalizer(utils.NewTextProcessor(logger), logger)
	deriver := core.NewMarkerDeriver(
		[]string{"list-unsubscribe", "precedence", "x-mailer", "x-list"},
		[]string{"noreply", "no-reply", "donotreply", "mailer-daemon"},
	)
	return core.NewIngestService(occurrences, normalizer, deriver, logger, fields)
}
