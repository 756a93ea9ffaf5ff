// Package validation provides input validation helpers shared by the API
// handlers.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// MinSubdomainLength is the minimum length of a store subdomain
	MinSubdomainLength = 3
	// MaxSubdomainLength is the maximum length of a store subdomain
	MaxSubdomainLength = 63
)

// subdomainPattern matches DNS-label-safe subdomains: lowercase alphanumerics
// and hyphens, starting and ending with an alphanumeric.
var subdomainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// reservedSubdomains can never be claimed by a store because the platform
// routes them itself.
var reservedSubdomains = map[string]bool{
	"www":     true,
	"api":     true,
	"admin":   true,
	"app":     true,
	"status":  true,
	"support": true,
}

// ValidateSubdomain checks that a store subdomain is a usable DNS label and
// not reserved by the platform.
func ValidateSubdomain(subdomain string) error {
	if len(subdomain) < MinSubdomainLength {
		return fmt.Errorf("subdomain must be at least %d characters", MinSubdomainLength)
	}
	if len(subdomain) > MaxSubdomainLength {
		return fmt.Errorf("subdomain must be at most %d characters", MaxSubdomainLength)
	}
	if !subdomainPattern.MatchString(subdomain) {
		return fmt.Errorf("subdomain may only contain lowercase letters, digits, and hyphens, and must start and end with a letter or digit")
	}
	if strings.Contains(subdomain, "--") {
		return fmt.Errorf("subdomain must not contain consecutive hyphens")
	}
	if reservedSubdomains[subdomain] {
		return fmt.Errorf("subdomain %q is reserved", subdomain)
	}
	return nil
}
