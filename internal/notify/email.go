// Package notify delivers order confirmations to shoppers and downstream
// consumers.
package notify

import (
	"bytes"
	"embed"
	"html/template"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/refuel-athletics/gelstore/internal/domain/order"
)

//go:embed templates/order_confirmation.html
var templates embed.FS

var confirmationTmpl = template.Must(template.ParseFS(templates, "templates/order_confirmation.html"))

// Email is a rendered message ready to hand to a mail provider.
type Email struct {
	Subject string
	HTML    string
	Text    string
}

type emailItem struct {
	Emoji     string
	Name      string
	Quantity  int
	LineTotal string
}

type emailView struct {
	FirstName      string
	Reference      string
	Items          []emailItem
	Subtotal       string
	Shipping       string
	FreeShipping   bool
	Tax            string
	Total          string
	ShipTo         order.Shipping
	ShippingMethod string
	AccountURL     string
}

// RenderConfirmation renders the order confirmation email for o.
func RenderConfirmation(reference string, o *order.Order, accountURL string) (Email, error) {
	v := emailView{
		FirstName:      o.Shipping.FirstName,
		Reference:      reference,
		Subtotal:       money(o.Subtotal),
		Shipping:       money(o.ShippingCost),
		FreeShipping:   o.ShippingCost.IsZero(),
		Tax:            money(o.Tax),
		Total:          money(o.Total),
		ShipTo:         o.Shipping,
		ShippingMethod: shippingMethod(o.Shipping),
		AccountURL:     accountURL,
	}
	if v.FirstName == "" {
		v.FirstName = "there"
	}
	for _, it := range o.Items {
		v.Items = append(v.Items, emailItem{
			Emoji:     it.Emoji,
			Name:      it.Name,
			Quantity:  it.Quantity,
			LineTotal: money(it.LineTotal()),
		})
	}

	var buf bytes.Buffer
	if err := confirmationTmpl.Execute(&buf, v); err != nil {
		return Email{}, errors.Wrap(err, "render confirmation")
	}
	return Email{
		Subject: "Your ReFuel order is confirmed — " + reference,
		HTML:    buf.String(),
		Text:    plainText(v),
	}, nil
}

// shippingMethod is the tier label recorded on the order plus its delivery
// window, e.g. "Standard Shipping (5-7 business days)".
func shippingMethod(s order.Shipping) string {
	if s.TierETA == "" {
		return s.TierLabel
	}
	return s.TierLabel + " (" + s.TierETA + ")"
}

func plainText(v emailView) string {
	var b strings.Builder
	b.WriteString("Order Confirmed!\n\n")
	b.WriteString("Thanks, " + v.FirstName + ". Your ReFuel order is in the queue.\n")
	b.WriteString("Order number: " + v.Reference + "\n\n")
	for _, it := range v.Items {
		b.WriteString(strings.TrimSpace(it.Emoji+" "+it.Name) + " x" + strconv.Itoa(it.Quantity) + "  $" + it.LineTotal + "\n")
	}
	b.WriteString("\nSubtotal: $" + v.Subtotal + "\n")
	if v.FreeShipping {
		b.WriteString("Shipping: Free\n")
	} else {
		b.WriteString("Shipping: $" + v.Shipping + "\n")
	}
	b.WriteString("Tax: $" + v.Tax + "\n")
	b.WriteString("Total: $" + v.Total + "\n\n")
	b.WriteString("Shipping to:\n")
	b.WriteString(v.ShipTo.FullName() + "\n")
	b.WriteString(v.ShipTo.Address + "\n")
	b.WriteString(v.ShipTo.City + ", " + v.ShipTo.State + " " + v.ShipTo.Zip + "\n")
	if v.ShippingMethod != "" {
		b.WriteString(v.ShippingMethod + "\n")
	}
	return b.String()
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
