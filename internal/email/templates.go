// Package email provides email templates.
package email

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
)

// RepairInfo carries the fields the repair email templates need.
type RepairInfo struct {
	RepairID       string
	OrderID        string
	CustomerEmail  string
	DeviceBrand    string
	DeviceModel    string
	Description    string
	TrackingNumber string
	PortalURL      string
}

type Renderer struct {
	templates *template.Template
}

func NewRenderer() (*Renderer, error) {
	tmpl := template.New("email")

	pairs := map[string][2]string{
		"repair_confirmation": {repairConfirmationHTML, repairConfirmationText},
		"repair_shipped_back": {repairShippedBackHTML, repairShippedBackText},
	}
	for key, bodies := range pairs {
		if _, err := tmpl.New(key + "_html").Parse(bodies[0]); err != nil {
			return nil, fmt.Errorf("failed to parse HTML template %s: %w", key, err)
		}
		if _, err := tmpl.New(key + "_text").Parse(bodies[1]); err != nil {
			return nil, fmt.Errorf("failed to parse text template %s: %w", key, err)
		}
	}

	return &Renderer{templates: tmpl}, nil
}

func (r *Renderer) Render(templateName string, data *RepairInfo) (*Email, error) {
	var htmlBuf, textBuf bytes.Buffer

	if err := r.templates.ExecuteTemplate(&htmlBuf, templateName+"_html", data); err != nil {
		return nil, fmt.Errorf("failed to render HTML template: %w", err)
	}
	if err := r.templates.ExecuteTemplate(&textBuf, templateName+"_text", data); err != nil {
		return nil, fmt.Errorf("failed to render text template: %w", err)
	}

	subject := ""
	switch templateName {
	case "repair_confirmation":
		subject = fmt.Sprintf("Repair Request Received - %s", data.OrderID)
	case "repair_shipped_back":
		subject = fmt.Sprintf("Your Device Is On Its Way Back - %s", data.OrderID)
	}

	return &Email{
		To:      data.CustomerEmail,
		Subject: subject,
		Text:    textBuf.String(),
		HTML:    htmlBuf.String(),
	}, nil
}

// SendRepairConfirmation sends the confirmation email after a repair
// request is registered.
func SendRepairConfirmation(ctx context.Context, p Provider, info *RepairInfo) error {
	if p == nil {
		return nil
	}

	renderer, err := NewRenderer()
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}

	email, err := renderer.Render("repair_confirmation", info)
	if err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}

	return p.SendEmail(ctx, email)
}

// SendRepairShippedBack notifies the customer that the repaired device
// has been handed to the carrier.
func SendRepairShippedBack(ctx context.Context, p Provider, info *RepairInfo) error {
	if p == nil {
		return nil
	}

	renderer, err := NewRenderer()
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}

	email, err := renderer.Render("repair_shipped_back", info)
	if err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}

	return p.SendEmail(ctx, email)
}

const repairConfirmationText = `Thank you for your repair request!

Order: {{.OrderID}}
Device: {{.DeviceBrand}} {{.DeviceModel}}

{{.Description}}

We will send you a shipping label shortly. Pack the device securely and
drop the parcel at any InPost locker or point.

Track your repair: {{.PortalURL}}/repairs/{{.RepairID}}
`

const repairConfirmationHTML = `<html>
<body style="font-family: sans-serif; color: #1a1a1a;">
  <h2>Thank you for your repair request!</h2>
  <p><strong>Order:</strong> {{.OrderID}}<br>
     <strong>Device:</strong> {{.DeviceBrand}} {{.DeviceModel}}</p>
  <p>{{.Description}}</p>
  <p>We will send you a shipping label shortly. Pack the device securely and
     drop the parcel at any InPost locker or point.</p>
  <p><a href="{{.PortalURL}}/repairs/{{.RepairID}}">Track your repair</a></p>
</body>
</html>`

const repairShippedBackText = `Good news - your device is on its way back!

Order: {{.OrderID}}
Device: {{.DeviceBrand}} {{.DeviceModel}}
Tracking number: {{.TrackingNumber}}

Track the parcel: {{.PortalURL}}/repairs/{{.RepairID}}
`

const repairShippedBackHTML = `<html>
<body style="font-family: sans-serif; color: #1a1a1a;">
  <h2>Good news - your device is on its way back!</h2>
  <p><strong>Order:</strong> {{.OrderID}}<br>
     <strong>Device:</strong> {{.DeviceBrand}} {{.DeviceModel}}<br>
     <strong>Tracking number:</strong> {{.TrackingNumber}}</p>
  <p><a href="{{.PortalURL}}/repairs/{{.RepairID}}">Track the parcel</a></p>
</body>
</html>`
