package utils

import (
	"math"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

const MinPasswordLength = 8

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// NormalizeEmail is applied before an address is stored or looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func IsValidPassword(password string) bool {
	return utf8.RuneCountInString(password) >= MinPasswordLength
}

func IsValidNickname(nickname string) bool {
	n := utf8.RuneCountInString(nickname)
	return n >= 2 && n <= 30
}

func SanitizeString(input string) string {
	return strings.TrimSpace(input)
}

// IsValidRating accepts 0 to 5 inclusive, fractions allowed.
func IsValidRating(rating float64) bool {
	return !math.IsNaN(rating) && rating >= 0 && rating <= 5
}

// FileExtension returns the lowercased extension of name without the dot.
func FileExtension(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}

func HasAllowedExtension(name string, allowed []string) bool {
	ext := FileExtension(name)
	if ext == "" {
		return false
	}
	for _, a := range allowed {
		if strings.EqualFold(a, ext) {
			return true
		}
	}
	return false
}
