package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/DRSN-tech/checkout-backend/internal/domain"
	"github.com/DRSN-tech/checkout-backend/pkg/e"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const maxBodySize = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

type ErrorResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Kind      string `json:"kind,omitempty"`
	ProductID int64  `json:"productId,omitempty"`
}

func NewErrorResponse(code int, message string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
	}
}

func ToHTTPResponse(err error) (int, string) {
	switch {
	case errors.Is(err, e.ErrStatusBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, e.ErrMissingFields):
		return http.StatusBadRequest, e.ErrMissingFields.Error()
	case errors.Is(err, e.ErrProductNameRequired):
		return http.StatusBadRequest, e.ErrProductNameRequired.Error()
	case errors.Is(err, e.ErrInvalidPrice):
		return http.StatusBadRequest, e.ErrInvalidPrice.Error()
	case errors.Is(err, e.ErrPricePrecision):
		return http.StatusBadRequest, e.ErrPricePrecision.Error()
	case errors.Is(err, e.ErrInvalidStock):
		return http.StatusBadRequest, e.ErrInvalidStock.Error()
	case errors.Is(err, e.ErrInvalidQuantity):
		return http.StatusBadRequest, e.ErrInvalidQuantity.Error()
	case errors.Is(err, e.ErrCartFull):
		return http.StatusBadRequest, e.ErrCartFull.Error()
	case errors.Is(err, e.ErrInvalidID):
		return http.StatusBadRequest, e.ErrInvalidID.Error()
	case errors.Is(err, e.ErrNoProducts):
		return http.StatusBadRequest, e.ErrNoProducts.Error()
	case errors.Is(err, e.ErrEmptyCart):
		return http.StatusBadRequest, e.ErrEmptyCart.Error()
	case errors.Is(err, e.ErrUserIDRequired):
		return http.StatusUnauthorized, e.ErrUserIDRequired.Error()
	case errors.Is(err, e.ErrProductNotFound):
		return http.StatusNotFound, e.ErrProductNotFound.Error()
	case errors.Is(err, e.ErrOrderNotFound):
		return http.StatusNotFound, e.ErrOrderNotFound.Error()
	case errors.Is(err, e.ErrCartItemNotFound):
		return http.StatusNotFound, e.ErrCartItemNotFound.Error()
	case errors.Is(err, e.ErrProductUnavailable):
		return http.StatusConflict, e.ErrProductUnavailable.Error()
	case errors.Is(err, e.ErrInsufficientStock):
		return http.StatusConflict, e.ErrInsufficientStock.Error()
	case errors.Is(err, e.ErrInvalidStatusTransition):
		return http.StatusConflict, e.ErrInvalidStatusTransition.Error()
	default:
		return http.StatusInternalServerError, e.ErrInternalServerError.Error()
	}
}

// commitStatus задаёт HTTP-код для каждого вида ошибки фиксации.
func commitStatus(kind domain.CommitErrorKind) int {
	switch kind {
	case domain.CommitErrEmptyCart:
		return http.StatusBadRequest
	case domain.CommitErrProductUnavailable, domain.CommitErrInsufficientStock:
		return http.StatusConflict
	default:
		return http.StatusServiceUnavailable
	}
}

func WriteError(w http.ResponseWriter, err error) {
	var commitErr *domain.CommitError
	if errors.As(err, &commitErr) {
		code := commitStatus(commitErr.Kind)
		resp := NewErrorResponse(code, string(commitErr.Kind))
		resp.Kind = string(commitErr.Kind)
		resp.ProductID = commitErr.ProductID
		WriteSuccess(w, code, resp)
		return
	}

	code, msg := ToHTTPResponse(err)
	WriteSuccess(w, code, NewErrorResponse(code, msg))
}

func WriteSuccess(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decodeJSON читает тело запроса в dst и проверяет теги validate.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %s", e.ErrStatusBadRequest, err.Error())
	}

	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %s", e.ErrStatusBadRequest, validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

// parsePrice разбирает цену вида "599.99" или "600".
// Отрицательные и слишком большие значения отклоняются, точность проверяет usecase.
func parsePrice(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, e.ErrMissingFields
	}

	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, e.ErrInvalidPrice
	}

	if d.IsNegative() || d.GreaterThan(domain.MaxPrice) {
		return decimal.Zero, e.ErrInvalidPrice
	}

	return d, nil
}

func int64Param(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, e.ErrInvalidID
	}
	return id, nil
}

// parseIDs разбирает список вида "1,2,3".
func parseIDs(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, e.ErrNoProducts
	}

	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil || id <= 0 {
			return nil, e.ErrInvalidID
		}
		ids = append(ids, id)
	}
	return ids, nil
}
