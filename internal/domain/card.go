package domain

import (
	"strconv"
	"strings"
)

// CardInput is the raw card data submitted at checkout. It is never persisted.
type CardInput struct {
	Number string
	Expiry string
	CVC    string
}

// Validate checks the fields required before any processor call.
func (c CardInput) Validate() error {
	if strings.TrimSpace(c.Number) == "" {
		return NewMissingRequiredFieldError("card number")
	}
	if strings.TrimSpace(c.Expiry) == "" {
		return NewMissingRequiredFieldError("card expiry")
	}
	if strings.TrimSpace(c.CVC) == "" {
		return NewMissingRequiredFieldError("card CVC")
	}
	return nil
}

// Brand classifies the card number.
func (c CardInput) Brand() Brand {
	return ClassifyBrand(c.Number)
}

// Last4 returns the final four digits, used in notes and logs instead of the full number.
func (c CardInput) Last4() string {
	digits := DigitsOnly(c.Number)
	if len(digits) <= 4 {
		return digits
	}
	return digits[len(digits)-4:]
}

type ExpiryDate struct {
	Month int
	Year  int
}

// ParseExpiry reads "MM / YY", "MM/YY" or "MM / YYYY". Two-digit years are taken as 20YY.
func ParseExpiry(raw string) (ExpiryDate, error) {
	parts := strings.Split(raw, "/")
	if len(parts) != 2 {
		return ExpiryDate{}, NewInvalidCardExpiryError(raw)
	}

	month, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || month < 1 || month > 12 {
		return ExpiryDate{}, NewInvalidCardExpiryError(raw)
	}

	yearText := strings.TrimSpace(parts[1])
	year, err := strconv.Atoi(yearText)
	if err != nil || year < 0 {
		return ExpiryDate{}, NewInvalidCardExpiryError(raw)
	}

	switch len(yearText) {
	case 2:
		year += 2000
	case 4:
	default:
		return ExpiryDate{}, NewInvalidCardExpiryError(raw)
	}

	return ExpiryDate{Month: month, Year: year}, nil
}

// Token is the processor's single-use stand-in for a card.
type Token struct {
	ID          string
	Fingerprint string
	Brand       string
	Last4       string
}
