package httpx

import (
	"time"

	"github.com/ariefcatur/go-donation-fulfillment/internal/catalog"
)

type itemReq struct {
	Type        string `json:"type" validate:"required"`
	Quantity    int    `json:"quantity"`
	Unit        string `json:"unit"`
	Description string `json:"description"`
}

func toItems(in []itemReq) []catalog.Item {
	out := make([]catalog.Item, 0, len(in))
	for _, it := range in {
		out = append(out, catalog.Item{
			Type:        catalog.ItemType(it.Type),
			Quantity:    it.Quantity,
			Unit:        it.Unit,
			Description: it.Description,
		})
	}
	return out
}

type createDonationReq struct {
	DonorID       string    `json:"donor_id" validate:"required"`
	InstituteID   string    `json:"institute_id" validate:"required"`
	SupplierID    string    `json:"supplier_id" validate:"required"`
	TransporterID string    `json:"transporter_id"`
	RequestID     string    `json:"request_id"`
	Items         []itemReq `json:"items" validate:"required,min=1,dive"`
}

type advanceStatusReq struct {
	Status string `json:"status" validate:"required"`
}

type verifyOTPReq struct {
	OTP string `json:"otp" validate:"required"`
}

type verifyOTPResp struct {
	DonationID string `json:"donation_id"`
	Verified   bool   `json:"verified"`
}

type assignTransporterReq struct {
	TransporterID string `json:"transporter_id" validate:"required"`
}

type statusResp struct {
	DonationID string    `json:"donation_id"`
	Status     string    `json:"status"`
	UpdatedAt  time.Time `json:"updated_at"`
	Source     string    `json:"source"`
}

type quoteReq struct {
	Items []itemReq `json:"items" validate:"required,min=1,dive"`
}

type createRequestReq struct {
	InstituteID string    `json:"institute_id" validate:"required"`
	Items       []itemReq `json:"items" validate:"required,min=1,dive"`
	Urgency     string    `json:"urgency" validate:"omitempty,oneof=normal urgent"`
}

type createOpportunityReq struct {
	InstituteID string    `json:"institute_id" validate:"required"`
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=2000"`
	Skills      []string  `json:"skills"`
	Date        time.Time `json:"date" validate:"required"`
}
