package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/refuel-athletics/gelstore/internal/domain/cart"
	"github.com/refuel-athletics/gelstore/internal/domain/checkout"
	"github.com/refuel-athletics/gelstore/internal/domain/formula"
	"github.com/refuel-athletics/gelstore/internal/domain/order"
)

const maxBodySize = 64 << 10

// errMalformed marks request bodies that are not the expected JSON shape.
var errMalformed = errors.New("malformed request body")

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// decodeBody decodes a JSON object, calling field for every key.
func decodeBody(r *http.Request, field func(d *jx.Decoder, key string) error) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return errors.Wrap(errMalformed, err.Error())
	}
	d := jx.DecodeBytes(body)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		return field(d, string(key))
	}); err != nil {
		return errors.Wrap(errMalformed, err.Error())
	}
	return nil
}

// decodeDecimal accepts a JSON number or a numeric string.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(n.String())
	default:
		return decimal.Zero, errors.New("expected number")
	}
}

func encodeMoney(e *jx.Encoder, name string, v decimal.Decimal) {
	e.FieldStart(name)
	e.Str(v.StringFixed(2))
}

// Requests.

func decodeParameters(d *jx.Decoder) (formula.Parameters, error) {
	p := formula.DefaultParameters()
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "carbs_g":
			p.CarbsG, err = d.Int()
		case "fructose_ratio":
			p.FructoseRatio, err = decodeDecimal(d)
		case "sodium_mg":
			p.SodiumMg, err = d.Int()
		case "potassium_mg":
			p.PotassiumMg, err = d.Int()
		case "magnesium_mg":
			p.MagnesiumMg, err = d.Int()
		case "caffeine_mg":
			p.CaffeineMg, err = d.Int()
		case "thickness":
			p.Thickness, err = d.Int()
		case "flavor":
			var s string
			s, err = d.Str()
			p.Flavor = formula.Flavor(s)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, string(key))
		}
		return nil
	})
	return p, err
}

func decodeShipping(r *http.Request) (checkout.ShippingInfo, error) {
	var (
		s    checkout.ShippingInfo
		tier string
	)
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var dst *string
		switch key {
		case "first_name":
			dst = &s.FirstName
		case "last_name":
			dst = &s.LastName
		case "email":
			dst = &s.Email
		case "address":
			dst = &s.Address
		case "city":
			dst = &s.City
		case "state":
			dst = &s.State
		case "zip":
			dst = &s.Zip
		case "tier":
			dst = &tier
		default:
			return d.Skip()
		}
		v, err := d.Str()
		*dst = v
		return err
	})
	s.Tier = checkout.Tier(tier)
	return s, err
}

func decodePayment(r *http.Request) (checkout.PaymentDetails, error) {
	var p checkout.PaymentDetails
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var dst *string
		switch key {
		case "card_number":
			dst = &p.CardNumber
		case "name_on_card":
			dst = &p.NameOnCard
		case "expiry":
			dst = &p.Expiry
		case "cvv":
			dst = &p.CVV
		case "payment_method":
			dst = &p.PaymentMethod
		default:
			return d.Skip()
		}
		v, err := d.Str()
		*dst = v
		return err
	})
	return p, err
}

// Responses.

func encodeError(e *jx.Encoder, msg string, fields map[string]string) {
	e.ObjStart()
	e.FieldStart("error")
	e.Str(msg)
	if len(fields) > 0 {
		e.FieldStart("fields")
		e.ObjStart()
		for k, v := range fields {
			e.FieldStart(k)
			e.Str(v)
		}
		e.ObjEnd()
	}
	e.ObjEnd()
}

func encodeParameters(e *jx.Encoder, p formula.Parameters) {
	e.ObjStart()
	e.FieldStart("carbs_g")
	e.Int(p.CarbsG)
	e.FieldStart("fructose_ratio")
	e.Str(p.FructoseRatio.StringFixed(2))
	e.FieldStart("sodium_mg")
	e.Int(p.SodiumMg)
	e.FieldStart("potassium_mg")
	e.Int(p.PotassiumMg)
	e.FieldStart("magnesium_mg")
	e.Int(p.MagnesiumMg)
	e.FieldStart("caffeine_mg")
	e.Int(p.CaffeineMg)
	e.FieldStart("thickness")
	e.Int(p.Thickness)
	e.FieldStart("flavor")
	e.Str(string(p.Flavor))
	e.FieldStart("name")
	e.Str(p.Name())
	e.ObjEnd()
}

func encodeFormulaQuote(e *jx.Encoder, q formula.Quote, pouches int) {
	e.ObjStart()
	encodeMoney(e, "unit_price", q.UnitPrice)
	encodeMoney(e, "pack_price", q.PackPrice(pouches))
	e.FieldStart("pouches")
	e.Int(pouches)
	e.FieldStart("maltodextrin_g")
	e.Int(q.MaltodextrinG)
	e.FieldStart("fructose_g")
	e.Int(q.FructoseG)
	e.FieldStart("breakdown")
	e.ArrStart()
	for _, b := range q.Breakdown {
		e.ObjStart()
		e.FieldStart("component")
		e.Str(string(b.Component))
		e.FieldStart("label")
		e.Str(b.Label)
		e.FieldStart("cost")
		e.Str(b.Cost.StringFixed(3))
		encodeMoney(e, "display", b.Display)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}

func encodeLineItem(e *jx.Encoder, it cart.LineItem) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(it.ID)
	e.FieldStart("name")
	e.Str(it.Name)
	e.FieldStart("emoji")
	e.Str(it.Emoji)
	encodeMoney(e, "price", it.Price)
	e.FieldStart("qty")
	e.Int(it.Qty)
	if it.Subtitle != "" {
		e.FieldStart("subtitle")
		e.Str(it.Subtitle)
	}
	encodeMoney(e, "line_total", it.LineTotal())
	e.ObjEnd()
}

func encodeCart(e *jx.Encoder, snap cart.Snapshot, open bool) {
	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range snap.Items {
		encodeLineItem(e, it)
	}
	e.ArrEnd()
	encodeMoney(e, "subtotal", snap.Subtotal)
	e.FieldStart("item_count")
	e.Int(snap.ItemCount)
	e.FieldStart("open")
	e.Bool(open)
	e.ObjEnd()
}

func encodeCheckoutQuote(e *jx.Encoder, q checkout.Quote) {
	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range q.Items {
		encodeLineItem(e, it)
	}
	e.ArrEnd()
	e.FieldStart("item_count")
	e.Int(q.ItemCount)
	e.FieldStart("tier")
	e.Str(string(q.Tier))
	encodeMoney(e, "subtotal", q.Subtotal)
	encodeMoney(e, "shipping", q.ShippingCost)
	e.FieldStart("free_shipping")
	e.Bool(q.FreeShipping())
	encodeMoney(e, "tax", q.Tax)
	encodeMoney(e, "total", q.Total)
	e.FieldStart("amount_minor")
	e.Int64(q.AmountMinor)
	e.FieldStart("currency")
	e.Str(q.Currency)
	e.ObjEnd()
}

func encodeShipping(e *jx.Encoder, s checkout.ShippingInfo) {
	e.ObjStart()
	for _, f := range [][2]string{
		{"first_name", s.FirstName},
		{"last_name", s.LastName},
		{"email", s.Email},
		{"address", s.Address},
		{"city", s.City},
		{"state", s.State},
		{"zip", s.Zip},
		{"tier", string(s.Tier)},
	} {
		e.FieldStart(f[0])
		e.Str(f[1])
	}
	e.ObjEnd()
}

func encodeCheckoutState(e *jx.Encoder, st checkout.State) {
	e.ObjStart()
	e.FieldStart("phase")
	e.Str(string(st.Phase))
	e.FieldStart("shipping")
	encodeShipping(e, st.Shipping)
	if st.Quote != nil {
		e.FieldStart("quote")
		encodeCheckoutQuote(e, *st.Quote)
	}
	if st.Handle != "" {
		e.FieldStart("authorized")
		e.Bool(true)
	}
	if st.Card != "" {
		e.FieldStart("card")
		e.Str(st.Card)
		e.FieldStart("brand")
		e.Str(string(st.Brand))
	}
	if st.Reference != "" {
		e.FieldStart("reference")
		e.Str(st.Reference)
	}
	if st.Failure != nil {
		e.FieldStart("failure")
		e.Str(st.Failure.Error())
	}
	e.FieldStart("needs_reconcile")
	e.Bool(st.NeedsReconcile)
	e.ObjEnd()
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("reference")
	e.Str(o.Reference)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(it.ID)
		e.FieldStart("name")
		e.Str(it.Name)
		e.FieldStart("emoji")
		e.Str(it.Emoji)
		encodeMoney(e, "price", it.Price)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		encodeMoney(e, "line_total", it.LineTotal())
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("shipping")
	e.ObjStart()
	e.FieldStart("name")
	e.Str(o.Shipping.FullName())
	e.FieldStart("address")
	e.Str(o.Shipping.Address)
	e.FieldStart("city")
	e.Str(o.Shipping.City)
	e.FieldStart("state")
	e.Str(o.Shipping.State)
	e.FieldStart("zip")
	e.Str(o.Shipping.Zip)
	e.FieldStart("tier")
	e.Str(o.Shipping.TierLabel)
	e.ObjEnd()
	encodeMoney(e, "subtotal", o.Subtotal)
	encodeMoney(e, "shipping_cost", o.ShippingCost)
	encodeMoney(e, "tax", o.Tax)
	encodeMoney(e, "total", o.Total)
	e.FieldStart("amount_minor")
	e.Int64(o.AmountMinor)
	e.FieldStart("currency")
	e.Str(o.Currency)
	e.FieldStart("created_at")
	e.Str(o.CreatedAt.UTC().Format(time.RFC3339))
	e.ObjEnd()
}

func encodeSavedFormula(e *jx.Encoder, f formula.Saved) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(f.ID)
	e.FieldStart("name")
	e.Str(f.Name)
	e.FieldStart("parameters")
	encodeParameters(e, f.Parameters)
	e.FieldStart("quiz_generated")
	e.Bool(f.QuizGenerated)
	e.FieldStart("saved_at")
	e.Str(f.SavedAt.UTC().Format(time.RFC3339))
	e.ObjEnd()
}
