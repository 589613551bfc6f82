package donations

import (
	"time"

	"github.com/ariefcatur/go-donation-fulfillment/internal/actors"
	"github.com/ariefcatur/go-donation-fulfillment/internal/catalog"
	"github.com/shopspring/decimal"
)

type Donation struct {
	ID             string          `json:"id"`
	DonorID        string          `json:"donor_id"`
	InstituteID    string          `json:"institute_id"`
	SupplierID     string          `json:"supplier_id"`
	TransporterID  string          `json:"transporter_id,omitempty"`
	RequestID      string          `json:"request_id,omitempty"`
	Items          []catalog.Item  `json:"items"`
	Status         Status          `json:"status"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DeliveryCharge decimal.Decimal `json:"delivery_charge"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	OTP            string          `json:"otp,omitempty"`
	OTPVerified    bool            `json:"otp_verified"`
	History        []StatusChange  `json:"history"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// StatusChange records when a donation entered a status and who moved it.
type StatusChange struct {
	Status Status      `json:"status"`
	Role   actors.Role `json:"role"`
	At     time.Time   `json:"at"`
}

// Clone returns a copy that shares no slices with d.
func (d Donation) Clone() Donation {
	out := d
	out.Items = append([]catalog.Item(nil), d.Items...)
	out.History = append([]StatusChange(nil), d.History...)
	return out
}

// Redacted hides the OTP; only the donor and the institute see it.
func (d Donation) Redacted() Donation {
	out := d.Clone()
	out.OTP = ""
	return out
}

type CreateInput struct {
	DonorID       string
	InstituteID   string
	SupplierID    string
	TransporterID string
	RequestID     string
	Items         []catalog.Item
}
