package core

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var localPartSeparators = regexp.MustCompile(`[._\-]+`)

// InferName derives a display name from the local part of an address:
// "john.doe_2@x.com" becomes "John Doe". Segments containing anything other
// than letters are dropped.
func InferName(email string) string {
	local := email
	if i := strings.Index(email, "@"); i >= 0 {
		local = email[:i]
	}

	caser := cases.Title(language.Und)
	var parts []string
	for _, segment := range localPartSeparators.Split(local, -1) {
		if !isAlpha(segment) {
			continue
		}
		parts = append(parts, caser.String(segment))
	}
	return strings.Join(parts, " ")
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// ParseName splits a raw display name into first name, last name and full
// name. An empty display name yields only a name inferred from the address.
func ParseName(rawName, email string) (first, last, full string) {
	full = strings.TrimSpace(rawName)
	if full == "" {
		return "", "", InferName(email)
	}
	parts := strings.Fields(full)
	if len(parts) == 1 {
		return parts[0], "", full
	}
	return parts[0], strings.Join(parts[1:], " "), full
}
