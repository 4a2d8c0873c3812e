package utils

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// Korean national format: leading 0 then 8 to 10 digits
	phoneRegex = regexp.MustCompile(`^0[0-9]{8,10}$`)
	// Korean mobile prefixes 010, 011, 016, 017, 018, 019
	mobileRegex = regexp.MustCompile(`^01[016789][0-9]{7,8}$`)
	// E.164: country code and subscriber number, at most 15 digits
	e164Regex = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)
	// Regex to remove non-digit characters
	digitsOnlyRegex = regexp.MustCompile(`[^0-9]`)
)

const koreaCountryCode = "82"

// NormalizePhoneNumber removes all non-digit characters and returns the
// Korean national form, e.g. "+82 10-1234-5678" -> "01012345678"
func NormalizePhoneNumber(phone string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", errors.New("phone number cannot be empty")
	}

	// Remove all non-digit characters (hyphens, spaces, parentheses, etc.)
	normalized := digitsOnlyRegex.ReplaceAllString(phone, "")

	// Handle international format (+82)
	if strings.HasPrefix(normalized, koreaCountryCode) && len(normalized) >= 10 {
		normalized = "0" + normalized[len(koreaCountryCode):]
	}

	if !phoneRegex.MatchString(normalized) {
		return "", errors.New("invalid Korean phone number format")
	}

	return normalized, nil
}

// ToE164 converts a phone number to E.164. Numbers that already carry a
// "+" country code are validated and kept; anything else is read as Korean.
func ToE164(phone string) (string, error) {
	trimmed := strings.TrimSpace(phone)
	if strings.HasPrefix(trimmed, "+") && !strings.HasPrefix(trimmed, "+"+koreaCountryCode) {
		candidate := "+" + digitsOnlyRegex.ReplaceAllString(trimmed, "")
		if !e164Regex.MatchString(candidate) {
			return "", errors.New("invalid E.164 phone number")
		}
		return candidate, nil
	}

	national, err := NormalizePhoneNumber(trimmed)
	if err != nil {
		return "", err
	}
	return "+" + koreaCountryCode + national[1:], nil
}

// FormatPhoneNumberForDisplay formats a national mobile number for display
// Example: "01012345678" -> "010-1234-5678"
func FormatPhoneNumberForDisplay(phone string) string {
	switch len(phone) {
	case 11:
		return phone[:3] + "-" + phone[3:7] + "-" + phone[7:]
	case 10:
		return phone[:3] + "-" + phone[3:6] + "-" + phone[6:]
	}
	return phone
}

// ValidateKoreanMobileNumber reports whether phone is a Korean mobile number
func ValidateKoreanMobileNumber(phone string) bool {
	normalized, err := NormalizePhoneNumber(phone)
	if err != nil {
		return false
	}
	return mobileRegex.MatchString(normalized)
}
