package mbox

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/mikey/mbox-contacts/internal/core"
)

const sampleMbox = `From alice@x.com Mon Jan  1 09:00:00 2024
From: Alice <alice@x.com>
To: Bob <bob@y.com>, carol@z.com
To: dave@w.com
List-Unsubscribe: <mailto:leave@x.com>
Date: Mon, 01 Jan 2024 09:00:00 +0100
Subject: hello

Body line one.
>From the archive.

From bob@y.com Tue Jan  2 09:00:00 2024
From: =?utf-8?q?Bob_J=C3=B6nes?= <bob@y.com>
To: alice@x.com
Subject: no date

Reply.
`

func TestReaderNext(t *testing.T) {
	r := NewReader(strings.NewReader(sampleMbox))

	msg, err := r.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if got := msg.Header("To"); got != "Bob <bob@y.com>, carol@z.com, dave@w.com" {
		t.Fatalf("To = %q", got)
	}
	wantKeys := []string{"from", "to", "list-unsubscribe", "date", "subject"}
	if got := msg.HeaderKeys(); !reflect.DeepEqual(got, wantKeys) {
		t.Fatalf("HeaderKeys = %v, want %v", got, wantKeys)
	}
	date, err := msg.Date()
	if err != nil {
		t.Fatalf("Date failed: %v", err)
	}
	if !date.Equal(time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("Date = %v", date)
	}

	msg, err = r.Next()
	if err != nil {
		t.Fatalf("second Next failed: %v", err)
	}
	if !strings.Contains(msg.Header("From"), "bob@y.com") {
		t.Fatalf("From = %q", msg.Header("From"))
	}
	if date, err := msg.Date(); err != nil || !date.IsZero() {
		t.Fatalf("missing Date = %v, %v", date, err)
	}

	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestReaderMalformedHeader(t *testing.T) {
	data := "From a@x.com Mon Jan  1 09:00:00 2024\n" +
		"From: a@x.com\n" +
		"this line is not a header\n" +
		"\n" +
		"body\n" +
		"\n" +
		"From b@x.com Mon Jan  1 10:00:00 2024\n" +
		"From: b@x.com\n" +
		"\n" +
		"ok\n"
	r := NewReader(strings.NewReader(data))

	if _, err := r.Next(); !errors.Is(err, core.ErrMalformedMessage) {
		t.Fatalf("expected ErrMalformedMessage, got %v", err)
	}
	msg, err := r.Next()
	if err != nil {
		t.Fatalf("Next after malformed message failed: %v", err)
	}
	if msg.Header("From") != "b@x.com" {
		t.Fatalf("From = %q", msg.Header("From"))
	}
}

func TestOpen(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing.mbox")); err == nil {
		t.Fatal("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "inbox.mbox")
	if err := os.WriteFile(path, []byte(sampleMbox), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()
	if r.Path() != path {
		t.Fatalf("Path = %q", r.Path())
	}
	count := 0
	for {
		_, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		count++
	}
	if count != 2 {
		t.Fatalf("read %d messages, want 2", count)
	}
}
