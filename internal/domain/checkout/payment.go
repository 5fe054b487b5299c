package checkout

import (
	"strconv"
	"strings"
	"time"
)

// CardBrand is the card network inferred from the number prefix.
type CardBrand string

const (
	BrandVisa       CardBrand = "visa"
	BrandMastercard CardBrand = "mastercard"
	BrandAmex       CardBrand = "amex"
	BrandDiscover   CardBrand = "discover"
	BrandUnknown    CardBrand = ""
)

// PaymentDetails is what the shopper entered on the payment step. Card
// fields are checked locally only; the gateway receives PaymentMethod, a
// token produced by the gateway's own client-side collection.
type PaymentDetails struct {
	CardNumber    string `json:"card_number"`
	NameOnCard    string `json:"name_on_card"`
	Expiry        string `json:"expiry"`
	CVV           string `json:"cvv"`
	PaymentMethod string `json:"payment_method"`
}

// Validate checks format and expiry before any funds are touched.
func (p PaymentDetails) Validate(now time.Time) error {
	errs := fieldErrors{}
	if len(digits(p.CardNumber)) < 15 {
		errs.add("card_number", "invalid card number")
	}
	if strings.TrimSpace(p.NameOnCard) == "" {
		errs.add("name_on_card", "required")
	}
	if msg := checkExpiry(p.Expiry, now); msg != "" {
		errs.add("expiry", msg)
	}
	if len(digits(p.CVV)) < 3 {
		errs.add("cvv", "invalid CVV")
	}
	return errs.err()
}

// Brand infers the card network.
func (p PaymentDetails) Brand() CardBrand {
	n := digits(p.CardNumber)
	switch {
	case strings.HasPrefix(n, "4"):
		return BrandVisa
	case hasPrefixRange(n, 51, 55), hasPrefixRange(n, 2221, 2720):
		return BrandMastercard
	case strings.HasPrefix(n, "34"), strings.HasPrefix(n, "37"):
		return BrandAmex
	case strings.HasPrefix(n, "6011"), strings.HasPrefix(n, "65"):
		return BrandDiscover
	default:
		return BrandUnknown
	}
}

// Masked renders the card as "•••• 4242".
func (p PaymentDetails) Masked() string {
	n := digits(p.CardNumber)
	if len(n) < 4 {
		return ""
	}
	return "•••• " + n[len(n)-4:]
}

// checkExpiry returns an error message for an expiry that is malformed or
// already past. A card is valid through the end of its expiry month.
func checkExpiry(expiry string, now time.Time) string {
	mm, yy, ok := strings.Cut(strings.TrimSpace(expiry), "/")
	if !ok || len(mm) != 2 || len(yy) != 2 {
		return "use MM/YY"
	}
	month, err := strconv.Atoi(mm)
	if err != nil || month < 1 || month > 12 {
		return "invalid month"
	}
	year, err := strconv.Atoi(yy)
	if err != nil {
		return "invalid year"
	}
	year += 2000
	if year < now.Year() || (year == now.Year() && month < int(now.Month())) {
		return "card expired"
	}
	return ""
}

func hasPrefixRange(n string, lo, hi int) bool {
	width := len(strconv.Itoa(lo))
	if len(n) < width {
		return false
	}
	v, err := strconv.Atoi(n[:width])
	if err != nil {
		return false
	}
	return v >= lo && v <= hi
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
