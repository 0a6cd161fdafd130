package core

import (
	"github.com/mikey/mbox-contacts/internal/whitelist"
)

// Classifier labels a canonical email as personal, listserv or business
type Classifier struct {
	personalDomains *whitelist.Checker
}

// NewClassifier creates a classifier backed by a personal-domain allow-list
func NewClassifier(personalDomains *whitelist.Checker) *Classifier {
	return &Classifier{personalDomains: personalDomains}
}

// Categorize applies the rules in order: personal domain, direct exchange
// without list traffic, list traffic, business.
func (c *Classifier) Categorize(email string, markers MarkerSet) Category {
	switch {
	case c.personalDomains.IsWhitelisted(email):
		return CategoryPersonal
	case markers.Has(MarkerDirect) && !markers.Has(MarkerListserv):
		return CategoryPersonal
	case markers.Has(MarkerListserv):
		return CategoryListserv
	default:
		return CategoryBusiness
	}
}
