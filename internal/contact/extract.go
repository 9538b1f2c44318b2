// Package contact pulls an email address and an Indonesian mobile number out of
// free-form profile bios.
package contact

import (
	"regexp"
	"strings"
)

// ContactInfo is the result of scanning a bio. Empty fields mean no match.
type ContactInfo struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

var (
	emailPattern = regexp.MustCompile(`(?i)[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	// strictPhonePattern runs over the cleaned bio, where separators are gone
	// and the prefix is contiguous with the subscriber digits.
	strictPhonePattern = regexp.MustCompile(`(?:\+?62|0)8\d{8,12}`)

	// loosePhonePattern runs over the raw bio and tolerates human formatting
	// such as 0877-7742-3787 or 0812.3456.7890. RE2's \s is ASCII only, so
	// Unicode spaces (NBSP, thin space, BOM) are listed explicitly.
	loosePhonePattern = regexp.MustCompile(
		`(?:\+?62|0)[\s\p{Zs}\x{FEFF}]?8\d{2,4}[-.\s\p{Zs}\x{FEFF}]?\d{2,4}[-.\s\p{Zs}\x{FEFF}]?\d{2,5}\b`,
	)
)

// Extract scans bio for the first email address and the first Indonesian
// mobile number. It never fails; unmatched fields are returned empty.
func Extract(bio string) ContactInfo {
	if bio == "" {
		return ContactInfo{}
	}
	return ContactInfo{
		Email: extractEmail(bio),
		Phone: extractPhone(bio),
	}
}

// ExtractPtr is Extract for optional bios; a nil bio yields empty fields.
func ExtractPtr(bio *string) ContactInfo {
	if bio == nil {
		return ContactInfo{}
	}
	return Extract(*bio)
}

// Found reports whether at least one field was extracted.
func (c ContactInfo) Found() bool {
	return c.Email != "" || c.Phone != ""
}

func extractEmail(bio string) string {
	match := emailPattern.FindString(bio)
	if match == "" {
		return ""
	}
	return strings.ToLower(match)
}

func extractPhone(bio string) string {
	if match := strictPhonePattern.FindString(clean(bio)); match != "" {
		return CanonicalPhone(match)
	}
	if match := loosePhonePattern.FindString(bio); match != "" {
		return CanonicalPhone(digitsOnly(match))
	}
	return ""
}

// CanonicalPhone rewrites a matched number into 62-prefixed form: a leading
// trunk 0 becomes 62 and a leading + is dropped. Anything else is returned as is.
func CanonicalPhone(phone string) string {
	switch {
	case strings.HasPrefix(phone, "0"):
		return "62" + phone[1:]
	case strings.HasPrefix(phone, "+"):
		return phone[1:]
	default:
		return phone
	}
}

// clean drops every rune that is not an ASCII letter, digit or '+', so numbers
// split by spaces, dots, dashes or parentheses become contiguous.
func clean(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '+':
			return r
		default:
			return -1
		}
	}, s)
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
