package core

import (
	"strings"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"go.uber.org/zap"

	"github.com/mikey/mbox-contacts/internal/utils"
)

// Address is one (display name, email) pair parsed from a header
type Address struct {
	DisplayName string
	Email       string
}

// AddressNormalizer parses raw address-list header values
type AddressNormalizer struct {
	text   *utils.TextProcessor
	logger *zap.Logger
}

// NewAddressNormalizer creates a new address normalizer
func NewAddressNormalizer(text *utils.TextProcessor, logger *zap.Logger) *AddressNormalizer {
	return &AddressNormalizer{
		text:   text,
		logger: logger,
	}
}

// Normalize returns the addresses of a header value in source order.
// Entries without a usable address are dropped; duplicates are kept.
func (n *AddressNormalizer) Normalize(raw string) []Address {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parsed, err := mail.ParseAddressList(raw)
	if err != nil {
		// One bad entry fails the whole list, so retry entry by entry.
		parsed = parsed[:0]
		for _, entry := range splitAddressList(raw) {
			addr, err := mail.ParseAddress(entry)
			if err != nil {
				n.logger.Debug("Dropping malformed address", zap.String("entry", entry), zap.Error(err))
				continue
			}
			parsed = append(parsed, addr)
		}
	}

	out := make([]Address, 0, len(parsed))
	for _, addr := range parsed {
		email := NormalizeEmail(addr.Address)
		if !strings.Contains(email, "@") {
			continue
		}
		out = append(out, Address{
			DisplayName: n.text.NormalizeName(addr.Name),
			Email:       email,
		})
	}
	return out
}

// splitAddressList splits on commas outside quoted strings, comments and
// angle brackets
func splitAddressList(raw string) []string {
	var (
		entries []string
		current strings.Builder
		quoted  bool
		escaped bool
		depth   int
		angle   bool
	)
	flush := func() {
		if entry := strings.TrimSpace(current.String()); entry != "" {
			entries = append(entries, entry)
		}
		current.Reset()
	}

	for _, r := range raw {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && (quoted || depth > 0):
			escaped = true
		case r == '"' && depth == 0:
			quoted = !quoted
		case quoted:
		case r == '(':
			depth++
		case r == ')' && depth > 0:
			depth--
		case depth > 0:
		case r == '<':
			angle = true
		case r == '>':
			angle = false
		case r == ',' && !angle:
			flush()
			continue
		}
		current.WriteRune(r)
	}
	flush()
	return entries
}
