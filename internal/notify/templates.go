package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/vasiliy-maslov/gamergear-storefront/internal/order"
)

// Message is a rendered HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

var templates = template.Must(template.New("notify").Funcs(template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("$%.2f", v) },
	"lineTotal": func(it order.Item) float64 {
		return order.CalculateTotal([]order.Item{it})
	},
}).Parse(`
{{define "items"}}
<table>
  <tr><th>Item</th><th>Qty</th><th>Price</th></tr>
  {{range .Items}}<tr><td>{{.Name}}</td><td>{{.Quantity}}</td><td>{{money (lineTotal .)}}</td></tr>
  {{end}}
</table>
<p><strong>Total: {{money .Total}}</strong></p>
{{end}}

{{define "created"}}
<h1>{{.Store}}</h1>
<p>Hi {{.Order.UserName}},</p>
<p>Thank you for your order #{{.Order.ID}}.</p>
{{template "items" .Order}}
{{if .Order.DeliveryAddress}}<p>Delivery address: {{.Order.DeliveryAddress}}</p>{{else}}<p>Payment: {{.Order.PaymentMethod}}</p>{{end}}
{{end}}

{{define "shipped"}}
<h1>{{.Store}}</h1>
<p>Hi {{.Order.UserName}},</p>
<p>Good news! Your order #{{.Order.ID}} is on its way.</p>
{{template "items" .Order}}
{{end}}

{{define "status"}}
<h1>{{.Store}}</h1>
<p>Hi {{.Order.UserName}},</p>
<p>The status of your order #{{.Order.ID}} is now <strong>{{.Status}}</strong>.</p>
{{end}}

{{define "confirmation"}}
<h1>{{.Store}}</h1>
<p>Hi {{.Name}},</p>
<p>Your order confirmation code is:</p>
<h2>{{.Code}}</h2>
{{end}}

{{define "reset"}}
<h1>{{.Store}}</h1>
<p>Hi {{.Name}},</p>
<p>Your password reset code is:</p>
<h2>{{.Code}}</h2>
<p>This code is valid for 15 minutes.</p>
<p>If you didn't request this, please ignore this email.</p>
{{end}}
`))

type orderView struct {
	Store  string
	Order  order.Order
	Status string
}

type codeView struct {
	Store string
	Name  string
	Code  string
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("notify: failed to render %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// OrderMessage picks the email for an order event.
func OrderMessage(e order.Event, storeName string) (Message, error) {
	o := e.Order
	var (
		name    string
		subject string
	)
	switch {
	case e.Kind == order.EventCreated:
		name, subject = "created", fmt.Sprintf("Order Confirmation - Order #%s", o.ID)
	case e.To == order.StatusShipped:
		name, subject = "shipped", fmt.Sprintf("Your Order #%s is Shipping! 🚚", o.ID)
	default:
		name, subject = "status", fmt.Sprintf("Order #%s Status Update - %s", o.ID, capitalize(e.To.String()))
	}

	html, err := render(name, orderView{Store: storeName, Order: o, Status: capitalize(e.To.String())})
	if err != nil {
		return Message{}, err
	}
	return Message{To: o.UserID, Subject: subject, HTML: html}, nil
}

func ConfirmationCodeMessage(to, name, code, storeName string) (Message, error) {
	html, err := render("confirmation", codeView{Store: storeName, Name: orDefault(name, "Customer"), Code: code})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "Your Order Confirmation Code: " + code, HTML: html}, nil
}

func ResetCodeMessage(to, name, code, storeName string) (Message, error) {
	html, err := render("reset", codeView{Store: storeName, Name: orDefault(name, "User"), Code: code})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "Password Reset Code - " + storeName, HTML: html}, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
