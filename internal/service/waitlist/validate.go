package waitlist

import (
	"regexp"
	"strings"
)

// Disposable email domains rejected at validation time. Keeping the list
// inline matches how rarely it changes; extend it here when a new burner
// service shows up in signups.
var disposableEmailDomains = map[string]bool{
	"tempmail.com":       true,
	"throwaway.email":    true,
	"10minutemail.com":   true,
	"guerrillamail.com":  true,
	"mailinator.com":     true,
	"temp-mail.org":      true,
	"fakeinbox.com":      true,
	"sharklasers.com":    true,
	"guerrillamail.info": true,
	"grr.la":             true,
	"pokemail.net":       true,
	"spam4.me":           true,
	"yopmail.com":        true,
	"maildrop.cc":        true,
	"discard.email":      true,
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

const (
	minEmailLen          = 5
	maxEmailLen          = 254
	maxReferralSourceLen = 200
)

// NormalizeEmail lower-cases and trims an email for comparison and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks syntax, length bounds, and the disposable-domain
// denylist. Returns a *ValidationError with a human-readable reason, or nil.
// Expects a normalized email.
func ValidateEmail(email string) error {
	if len(email) < minEmailLen {
		return &ValidationError{Reason: "Email too short"}
	}
	if len(email) > maxEmailLen {
		return &ValidationError{Reason: "Email too long"}
	}
	if !emailPattern.MatchString(email) {
		return &ValidationError{Reason: "Invalid email format"}
	}
	at := strings.LastIndex(email, "@")
	if disposableEmailDomains[email[at+1:]] {
		return &ValidationError{Reason: "Temporary email addresses are not allowed"}
	}
	return nil
}

// ValidateReferralSource bounds the optional free-text provenance tag.
func ValidateReferralSource(src string) error {
	if len(src) > maxReferralSourceLen {
		return &ValidationError{Reason: "Referral source too long"}
	}
	return nil
}
