package sentinel

import "errors"

// Error kinds returned by the fulfillment core. Callers wrap them with
// fmt.Errorf("%w: ...") and match with errors.Is.
var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrUnknownItemType    = errors.New("unknown item type")
	ErrSupplierIneligible = errors.New("supplier ineligible")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrOtpRequired        = errors.New("otp verification required")
	ErrAlreadyFulfilled   = errors.New("already fulfilled")
	ErrAlreadyFilled      = errors.New("already filled")
	ErrNotFound           = errors.New("not found")
	ErrRoleNotPermitted   = errors.New("role not permitted")
)

// Code returns a stable machine-readable name for err's kind, or "internal".
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrUnknownItemType):
		return "unknown_item_type"
	case errors.Is(err, ErrSupplierIneligible):
		return "supplier_ineligible"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrOtpRequired):
		return "otp_required"
	case errors.Is(err, ErrAlreadyFulfilled):
		return "already_fulfilled"
	case errors.Is(err, ErrAlreadyFilled):
		return "already_filled"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrRoleNotPermitted):
		return "role_not_permitted"
	default:
		return "internal"
	}
}
