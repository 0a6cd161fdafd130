package whitelist

import (
	"strings"

	"go.uber.org/zap"
)

// Checker tells whether an address belongs to one of a fixed set of domains
type Checker struct {
	domains map[string]struct{}
	logger  *zap.Logger
}

// NewChecker creates a new domain checker
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	normalized := make(map[string]struct{}, len(domains))
	for _, domain := range domains {
		if domain = strings.ToLower(strings.TrimSpace(domain)); domain != "" {
			normalized[domain] = struct{}{}
		}
	}

	if len(normalized) > 0 && logger != nil {
		logger.Debug("Initialized domain checker", zap.Int("domains", len(normalized)))
	}

	return &Checker{
		domains: normalized,
		logger:  logger,
	}
}

// IsWhitelisted checks if the domain of the address is in the set
func (c *Checker) IsWhitelisted(email string) bool {
	if len(c.domains) == 0 {
		return false
	}

	i := strings.LastIndex(email, "@")
	if i < 0 {
		return false
	}
	domain := strings.ToLower(strings.TrimSpace(email[i+1:]))

	_, ok := c.domains[domain]
	if ok && c.logger != nil {
		c.logger.Debug("Domain is whitelisted",
			zap.String("domain", domain),
			zap.String("email", email))
	}
	return ok
}

// Len returns the number of domains in the set
func (c *Checker) Len() int {
	return len(c.domains)
}
