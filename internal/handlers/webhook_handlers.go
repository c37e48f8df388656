package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"kingsbalfx_app/internal/services"
)

// maxWebhookBody caps webhook payloads at 256KB. Gateway events are a few
// KB at most; anything larger is not a legitimate delivery.
const maxWebhookBody = 256 << 10

// WebhookHandler receives payment gateway deliveries
type WebhookHandler struct {
	payments       *services.PaymentService
	paystackSecret string
}

func NewWebhookHandler(payments *services.PaymentService, paystackSecret string) *WebhookHandler {
	return &WebhookHandler{payments: payments, paystackSecret: paystackSecret}
}

// HandlePaystackWebhook processes a gateway delivery:
//
//	401 - signature missing or invalid (never reveals which)
//	400 - unparseable body or missing reference, redelivery cannot help
//	500 - storage failure, gateway should redeliver
//	200 - recorded, including duplicate redeliveries
//
// The signature is computed over the exact bytes delivered, so the body is
// read raw before any parsing.
func (h *WebhookHandler) HandlePaystackWebhook(c echo.Context) error {
	deliveryID := uuid.NewString()

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody+1))
	if err != nil {
		log.Error().Err(err).Str("delivery_id", deliveryID).Msg("failed to read webhook body")
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}
	if len(body) > maxWebhookBody {
		log.Warn().Str("delivery_id", deliveryID).Msg("webhook body exceeds size limit")
		return echo.NewHTTPError(http.StatusBadRequest, "body too large")
	}

	signature := c.Request().Header.Get("x-paystack-signature")
	if !services.VerifyWebhookSignature(body, signature, h.paystackSecret) {
		log.Warn().Str("delivery_id", deliveryID).Msg("webhook signature rejected")
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid signature")
	}

	ev, err := services.NormalizeEvent(body)
	if err != nil {
		if errors.Is(err, services.ErrMalformedPayload) || errors.Is(err, services.ErrMissingReference) {
			log.Warn().Err(err).Str("delivery_id", deliveryID).Msg("webhook payload rejected")
			return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
		}
		return err
	}

	outcome, err := h.payments.ProcessEvent(c.Request().Context(), ev)
	if err != nil {
		log.Error().Err(err).
			Str("delivery_id", deliveryID).
			Str("reference", ev.Reference).
			Msg("webhook processing failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "processing failed")
	}

	log.Info().
		Str("delivery_id", deliveryID).
		Str("event", ev.EventName).
		Str("reference", ev.Reference).
		Bool("duplicate", outcome.Duplicate).
		Str("entitlement", string(outcome.Entitlement)).
		Msg("webhook processed")

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"duplicate": outcome.Duplicate,
	})
}
