package donations

import (
	"time"

	"github.com/ariefcatur/go-donation-fulfillment/internal/catalog"
	"github.com/shopspring/decimal"
)

const (
	EventDonationCreated       = "DonationCreated"
	EventDonationStatusChanged = "DonationStatusChanged"
	EventTransporterAssigned   = "DonationTransporterAssigned"
)

type DonationCreatedPayload struct {
	DonationID    string          `json:"donation_id"`
	DonorID       string          `json:"donor_id"`
	InstituteID   string          `json:"institute_id"`
	SupplierID    string          `json:"supplier_id"`
	TransporterID string          `json:"transporter_id,omitempty"`
	Items         []catalog.Item  `json:"items"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	CreatedAt     time.Time       `json:"created_at"`
}

type StatusChangedPayload struct {
	DonationID    string    `json:"donation_id"`
	InstituteID   string    `json:"institute_id"`
	TransporterID string    `json:"transporter_id,omitempty"`
	From          Status    `json:"from"`
	To            Status    `json:"to"`
	Role          string    `json:"role"`
	At            time.Time `json:"at"`
}
