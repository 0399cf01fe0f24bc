package handler

import (
	"errors"
	"io"
	"net/http"

	"tutorhub/internal/api/v1/dto"
	"tutorhub/internal/middleware"
	"tutorhub/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const maxWebhookBodyBytes = int64(65536)

type CheckoutHandler struct {
	checkoutService service.CheckoutService
	logger          zerolog.Logger
}

func NewCheckoutHandler(checkoutService service.CheckoutService, logger zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		logger:          logger.With().Str("handler", "CheckoutHandler").Logger(),
	}
}

// RegisterRoutes mounts the checkout route and the Stripe webhook, which is
// authenticated by its signature instead of a bearer token.
func (h *CheckoutHandler) RegisterRoutes(r chi.Router, authMw func(http.Handler) http.Handler) {
	r.With(authMw).Post("/courses/{courseKey}/checkout", h.createCheckout)
	r.Post("/stripe/webhook", h.handleWebhook)
}

func (h *CheckoutHandler) createCheckout(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized: User ID not found in context")
		return
	}
	result, err := h.checkoutService.CreateSession(r.Context(), userID, chi.URLParam(r, "courseKey"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	resp := dto.CheckoutResponseDTO{CourseID: result.CourseID, URL: result.URL}
	if result.Enrolled {
		resp.Status = "enrolled"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *CheckoutHandler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to read Stripe webhook body")
		writeError(w, http.StatusServiceUnavailable, "Failed to read request body")
		return
	}
	if err := h.checkoutService.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		if errors.Is(err, service.ErrInvalidWebhook) {
			writeError(w, http.StatusBadRequest, "Invalid webhook")
			return
		}
		h.logger.Error().Err(err).Msg("Failed to process Stripe webhook")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.WriteHeader(http.StatusOK)
}
