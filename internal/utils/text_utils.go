package utils

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// TextProcessor cleans up human-readable header text such as display names
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{
		logger: logger,
	}
}

// SanitizeUTF8 drops invalid UTF-8 bytes from the string
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	sanitized := strings.ToValidUTF8(text, "")

	tp.logger.Debug("Text sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", len(sanitized)))

	return sanitized
}

// NormalizeName returns a display name in NFC form with collapsed
// whitespace and without surrounding quotes
func (tp *TextProcessor) NormalizeName(name string) string {
	name = norm.NFC.String(tp.SanitizeUTF8(name))
	name = strings.Join(strings.Fields(name), " ")
	name = strings.Trim(name, `"'`)
	return strings.TrimSpace(name)
}
