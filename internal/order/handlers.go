package order

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/wata-gateway/internal/common"
)

// Handler exposes order intake over HTTP.
type Handler struct {
	Service  *Service
	Validate *validator.Validate
	Logger   zerolog.Logger
}

// NewHandler constructs a Handler with a fresh validator instance.
func NewHandler(svc *Service, logger zerolog.Logger) *Handler {
	return &Handler{
		Service:  svc,
		Validate: validator.New(validator.WithRequiredStructEnabled()),
		Logger:   logger,
	}
}

// Create handles POST /api/v1/orders.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "body is not valid JSON", nil)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "validation failed", validationDetails(err))
		return
	}

	result, err := h.Service.Checkout(r.Context(), req)
	if err != nil {
		if appErr, ok := common.AsAppError(err); ok {
			h.Logger.Error().Err(err).Str("code", appErr.Code).Msg("checkout failed")
			common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
			return
		}
		h.Logger.Error().Err(err).Msg("checkout failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to create order", nil)
		return
	}
	common.JSON(w, http.StatusOK, result)
}

func validationDetails(err error) any {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = fe.Tag()
	}
	return details
}
