package donations

import "context"

// Repository stores donations keyed by id. Update is a compare-and-set against
// prev, the record as read: it fails with sentinel.ErrInvalidTransition when
// the stored status or transporter no longer match prev. It never rewrites the
// OTP, items or amounts, and never clears OTPVerified.
type Repository interface {
	Create(ctx context.Context, d Donation) error
	Get(ctx context.Context, id string) (Donation, error)
	Update(ctx context.Context, next, prev Donation) error
	List(ctx context.Context, f Filter) ([]Donation, error)
}

// Filter matches by exact id; empty fields match everything.
type Filter struct {
	DonorID       string
	InstituteID   string
	SupplierID    string
	TransporterID string
	ActiveOnly    bool
}

func (f Filter) Match(d Donation) bool {
	if f.DonorID != "" && d.DonorID != f.DonorID {
		return false
	}
	if f.InstituteID != "" && d.InstituteID != f.InstituteID {
		return false
	}
	if f.SupplierID != "" && d.SupplierID != f.SupplierID {
		return false
	}
	if f.TransporterID != "" && d.TransporterID != f.TransporterID {
		return false
	}
	if f.ActiveOnly && d.Status.Terminal() {
		return false
	}
	return true
}
