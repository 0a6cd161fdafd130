package vcard

import (
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/mikey/mbox-contacts/internal/core"
)

const sampleCards = "BEGIN:VCARD\r\n" +
	"VERSION:3.0\r\n" +
	"N:Doe;Jane;;;\r\n" +
	"FN:Dr. Jane Doe\r\n" +
	"EMAIL;TYPE=home:jane@x.com\r\n" +
	"EMAIL;TYPE=work:jane.doe@corp.com\r\n" +
	"END:VCARD\r\n" +
	"BEGIN:VCARD\r\n" +
	"VERSION:3.0\r\n" +
	"FN:Bob van Dyke\r\n" +
	"EMAIL:bob@y.com\r\n" +
	"END:VCARD\r\n" +
	"BEGIN:VCARD\r\n" +
	"VERSION:3.0\r\n" +
	"FN:No Email\r\n" +
	"END:VCARD\r\n" +
	"BEGIN:VCARD\r\n" +
	"VERSION:3.0\r\n" +
	"EMAIL:anon@z.com\r\n" +
	"END:VCARD\r\n"

func TestReader(t *testing.T) {
	r := NewReader(strings.NewReader(sampleCards), "cards.vcf")

	var got []core.ContactRecord
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		got = append(got, rec)
	}

	want := []core.ContactRecord{
		{Email: "jane@x.com", FirstName: "Jane", LastName: "Doe", DisplayName: "Jane Doe", Source: "cards.vcf"},
		{Email: "jane.doe@corp.com", FirstName: "Jane", LastName: "Doe", DisplayName: "Jane Doe", Source: "cards.vcf"},
		{Email: "bob@y.com", FirstName: "Bob", LastName: "van Dyke", DisplayName: "Bob van Dyke", Source: "cards.vcf"},
		{Email: "anon@z.com", Source: "cards.vcf"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("records = %+v\nwant %+v", got, want)
	}
}

func TestReaderDecodeError(t *testing.T) {
	r := NewReader(strings.NewReader("BEGIN:VCARD\r\nVERSION:3.0\r\nEMAIL:a@x.com\r\n"), "broken.vcf")
	if _, err := r.Next(); err == nil || errors.Is(err, io.EOF) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestReaderDecodeErrorMidStream(t *testing.T) {
	data := "BEGIN:VCARD\r\nVERSION:3.0\r\nEMAIL:a@x.com\r\nEND:VCARD\r\n" +
		"BEGIN:VCARD\r\nVERSION:3.0\r\nEMAIL:b@x.com\r\n"
	r := NewReader(strings.NewReader(data), "broken.vcf")
	rec, err := r.Next()
	if err != nil || rec.Email != "a@x.com" {
		t.Fatalf("first card = %+v, %v", rec, err)
	}
	if _, err := r.Next(); err == nil || errors.Is(err, io.EOF) {
		t.Fatalf("expected decode error after the first card, got %v", err)
	}
}
