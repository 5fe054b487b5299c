package checkout

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/refuel-athletics/gelstore/internal/domain/order"
)

// Tier is a shipping speed.
type Tier string

const (
	TierStandard  Tier = "standard"
	TierExpress   Tier = "express"
	TierOvernight Tier = "overnight"
)

type tierInfo struct {
	label string
	eta   string
	rate  decimal.Decimal
}

var tiers = map[Tier]tierInfo{
	TierStandard:  {"Standard Shipping", "5-7 business days", decimal.RequireFromString("6.99")},
	TierExpress:   {"Express Shipping", "2-3 business days", decimal.RequireFromString("14.99")},
	TierOvernight: {"Overnight Shipping", "Next business day", decimal.RequireFromString("29.99")},
}

// Tiers returns the shipping tiers, cheapest first.
func Tiers() []Tier {
	return []Tier{TierStandard, TierExpress, TierOvernight}
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	_, ok := tiers[t]
	return ok
}

// Rate is the flat price before the free-shipping threshold applies.
func (t Tier) Rate() decimal.Decimal {
	return tiers[t].rate
}

// Label is the display name, e.g. "Express Shipping".
func (t Tier) Label() string {
	return tiers[t].label
}

// ETA describes the delivery window.
func (t Tier) ETA() string {
	return tiers[t].eta
}

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	zipPattern   = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
)

var usStates = map[string]struct{}{}

func init() {
	for _, s := range strings.Fields(`AL AK AZ AR CA CO CT DE FL GA HI ID IL IN IA KS KY LA ME MD
		MA MI MN MS MO MT NE NV NH NJ NM NY NC ND OH OK OR PA RI SC SD TN TX UT VT VA WA WV WI WY DC`) {
		usStates[s] = struct{}{}
	}
}

// ValidState reports whether code is a US state or DC.
func ValidState(code string) bool {
	_, ok := usStates[code]
	return ok
}

// ShippingInfo is the delivery form.
type ShippingInfo struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
	Tier      Tier   `json:"tier"`
}

// Normalize trims whitespace and upper-cases the state code.
func (s ShippingInfo) Normalize() ShippingInfo {
	s.FirstName = strings.TrimSpace(s.FirstName)
	s.LastName = strings.TrimSpace(s.LastName)
	s.Email = strings.TrimSpace(s.Email)
	s.Address = strings.TrimSpace(s.Address)
	s.City = strings.TrimSpace(s.City)
	s.State = strings.ToUpper(strings.TrimSpace(s.State))
	s.Zip = strings.TrimSpace(s.Zip)
	if s.Tier == "" {
		s.Tier = TierStandard
	}
	return s
}

// Validate returns a *ValidationError naming every malformed field.
func (s ShippingInfo) Validate() error {
	errs := fieldErrors{}
	if s.FirstName == "" {
		errs.add("first_name", "required")
	}
	if s.LastName == "" {
		errs.add("last_name", "required")
	}
	switch {
	case s.Email == "":
		errs.add("email", "required")
	case !emailPattern.MatchString(s.Email):
		errs.add("email", "invalid email address")
	}
	if s.Address == "" {
		errs.add("address", "required")
	}
	if s.City == "" {
		errs.add("city", "required")
	}
	switch {
	case s.State == "":
		errs.add("state", "required")
	case !ValidState(s.State):
		errs.add("state", "unknown state")
	}
	switch {
	case s.Zip == "":
		errs.add("zip", "required")
	case !zipPattern.MatchString(s.Zip):
		errs.add("zip", "must be 5 digits or ZIP+4")
	}
	if !s.Tier.Valid() {
		errs.add("tier", "unknown shipping tier")
	}
	return errs.err()
}

// FullName joins first and last name.
func (s ShippingInfo) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

func (s ShippingInfo) toOrder() order.Shipping {
	return order.Shipping{
		FirstName: s.FirstName,
		LastName:  s.LastName,
		Email:     s.Email,
		Address:   s.Address,
		City:      s.City,
		State:     s.State,
		Zip:       s.Zip,
		Tier:      string(s.Tier),
		TierLabel: s.Tier.Label(),
		TierETA:   s.Tier.ETA(),
	}
}
