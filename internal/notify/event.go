package notify

import (
	"time"

	"github.com/go-faster/jx"

	"github.com/refuel-athletics/gelstore/internal/domain/order"
)

// EventOrderConfirmed is the event_type header of confirmation events.
const EventOrderConfirmed = "order.confirmed"

// encodeEvent writes the order.confirmed payload. Money is encoded as
// fixed two-decimal strings so consumers never see float rounding.
func encodeEvent(reference, email string, o *order.Order) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("event_type")
	e.Str(EventOrderConfirmed)
	e.FieldStart("reference")
	e.Str(reference)
	e.FieldStart("payment_ref")
	e.Str(o.PaymentRef)
	e.FieldStart("user_id")
	e.Str(o.UserID)
	e.FieldStart("email")
	e.Str(email)
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(it.ID)
		e.FieldStart("name")
		e.Str(it.Name)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("price")
		e.Str(it.Price.StringFixed(2))
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("subtotal")
	e.Str(o.Subtotal.StringFixed(2))
	e.FieldStart("shipping")
	e.Str(o.ShippingCost.StringFixed(2))
	e.FieldStart("tax")
	e.Str(o.Tax.StringFixed(2))
	e.FieldStart("total")
	e.Str(o.Total.StringFixed(2))
	e.FieldStart("amount_minor")
	e.Int64(o.AmountMinor)
	e.FieldStart("currency")
	e.Str(o.Currency)
	e.FieldStart("tier")
	e.Str(o.Shipping.Tier)
	e.FieldStart("created_at")
	e.Str(o.CreatedAt.UTC().Format(time.RFC3339))
	e.ObjEnd()
	return e.Bytes()
}

// OrderRecord encodes o as an order.confirmed event addressed to the
// shipping email, the same payload Publisher writes to Kafka.
func OrderRecord(o *order.Order) []byte {
	return encodeEvent(o.Reference, o.Shipping.Email, o)
}
