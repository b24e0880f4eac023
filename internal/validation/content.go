// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	MaxCommentRunes = 500
	MaxTitleRunes   = 200
	MaxReasonRunes  = 1000
)

// MaxPrice bounds listing prices to what decimal(12,2) can hold.
var MaxPrice = decimal.RequireFromString("9999999999.99")

var categoryRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,63}$`)

// CommentText trims text and checks it holds 1..500 characters.
func CommentText(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", fmt.Errorf("comment cannot be empty")
	}
	if utf8.RuneCountInString(trimmed) > MaxCommentRunes {
		return "", fmt.Errorf("comment must not exceed %d characters", MaxCommentRunes)
	}
	return trimmed, nil
}

// RejectionReason trims reason and requires it to be non-empty.
func RejectionReason(reason string) (string, error) {
	trimmed := strings.TrimSpace(reason)
	if trimmed == "" {
		return "", fmt.Errorf("rejection reason is required")
	}
	if utf8.RuneCountInString(trimmed) > MaxReasonRunes {
		return "", fmt.Errorf("rejection reason must not exceed %d characters", MaxReasonRunes)
	}
	return trimmed, nil
}

// Price rejects negative amounts, more than two decimal places and overflow.
func Price(p decimal.Decimal) error {
	if p.IsNegative() {
		return fmt.Errorf("price cannot be negative")
	}
	if !p.Equal(p.Round(2)) {
		return fmt.Errorf("price must have at most two decimal places")
	}
	if p.GreaterThan(MaxPrice) {
		return fmt.Errorf("price exceeds maximum of %s", MaxPrice.String())
	}
	return nil
}

// ListingTitle trims title and checks its length.
func ListingTitle(title string) (string, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return "", fmt.Errorf("title is required")
	}
	if utf8.RuneCountInString(trimmed) > MaxTitleRunes {
		return "", fmt.Errorf("title must not exceed %d characters", MaxTitleRunes)
	}
	return trimmed, nil
}

// Category normalizes and validates a category slug. Empty is allowed.
func Category(category string) (string, error) {
	c := strings.ToLower(strings.TrimSpace(category))
	if c == "" {
		return "", nil
	}
	if !categoryRegex.MatchString(c) {
		return "", fmt.Errorf("category must contain only lowercase letters, numbers, and hyphens")
	}
	return c, nil
}
