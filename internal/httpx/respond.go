package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ariefcatur/go-donation-fulfillment/internal/sentinel"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate = validator.New()

type errorBody struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, sentinel.ErrInvalidArgument), errors.Is(err, sentinel.ErrUnknownItemType):
		return http.StatusBadRequest
	case errors.Is(err, sentinel.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, sentinel.ErrSupplierIneligible), errors.Is(err, sentinel.ErrOtpRequired):
		return http.StatusUnprocessableEntity
	case errors.Is(err, sentinel.ErrInvalidTransition), errors.Is(err, sentinel.ErrAlreadyFulfilled), errors.Is(err, sentinel.ErrAlreadyFilled):
		return http.StatusConflict
	case errors.Is(err, sentinel.ErrRoleNotPermitted):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps a domain error to its status. Internal errors are logged
// and their message is not echoed to the caller.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
		msg = "internal error"
	}
	writeJSON(w, code, errorBody{Error: msg, Code: sentinel.Code(err)})
}

// decode reads a JSON body into v and runs its validate tags.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json", Code: sentinel.Code(sentinel.ErrInvalidArgument)})
		return false
	}
	if err := validate.Struct(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:  "validation failed",
			Code:   sentinel.Code(sentinel.ErrInvalidArgument),
			Fields: validationFields(err),
		})
		return false
	}
	return true
}

func validationFields(err error) map[string]string {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return map[string]string{"_": err.Error()}
	}
	out := make(map[string]string, len(ves))
	for _, ve := range ves {
		out[ve.Namespace()] = fmt.Sprintf("%s %s", ve.Tag(), ve.Param())
	}
	return out
}
