package domain

import (
	"regexp"
	"strings"
)

// Brand identifies the card network a number belongs to
type Brand string

const (
	BrandAmex       Brand = "amex"
	BrandDinersClub Brand = "dinersclub"
	BrandDiscover   Brand = "discover"
	BrandJCB        Brand = "jcb"
	BrandMasterCard Brand = "mastercard"
	BrandVisa       Brand = "visa"
	BrandUnknown    Brand = "unknown"
)

type brandPattern struct {
	brand   Brand
	pattern *regexp.Regexp
}

// Evaluated in order; the first match wins.
var brandPatterns = []brandPattern{
	{BrandAmex, regexp.MustCompile(`^3[47][0-9]{13}$`)},
	{BrandDinersClub, regexp.MustCompile(`^3(?:0[0-5]|[68][0-9])[0-9]{11}$`)},
	{BrandDiscover, regexp.MustCompile(`^6(?:011|5[0-9]{2})[0-9]{12}$`)},
	{BrandJCB, regexp.MustCompile(`^(?:2131|1800|35[0-9]{3})[0-9]{11}$`)},
	{BrandMasterCard, regexp.MustCompile(`^5[1-5][0-9]{14}$`)},
	{BrandVisa, regexp.MustCompile(`^4[0-9]{12}(?:[0-9]{3})?$`)},
}

// ClassifyBrand maps a card number to its brand. Spaces and dashes are ignored.
func ClassifyBrand(number string) Brand {
	digits := DigitsOnly(number)
	if digits == "" {
		return BrandUnknown
	}

	for _, bp := range brandPatterns {
		if bp.pattern.MatchString(digits) {
			return bp.brand
		}
	}
	return BrandUnknown
}

// ParseBrand resolves a configured brand name. Unrecognised names yield BrandUnknown.
func ParseBrand(name string) Brand {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "amex", "americanexpress", "american_express":
		return BrandAmex
	case "dinersclub", "diners", "diners_club":
		return BrandDinersClub
	case "discover":
		return BrandDiscover
	case "jcb":
		return BrandJCB
	case "mastercard", "master_card":
		return BrandMasterCard
	case "visa":
		return BrandVisa
	default:
		return BrandUnknown
	}
}

// DigitsOnly strips every non-digit rune from s.
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
