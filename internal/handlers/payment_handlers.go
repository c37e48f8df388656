package handlers

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"kingsbalfx_app/internal/pricing"
	"kingsbalfx_app/internal/services"
)

// PaymentHandler drives the checkout flow: initialize a gateway transaction
// for a tier, then confirm it when the customer lands back on the callback.
type PaymentHandler struct {
	paystack *services.PaystackService
	payments *services.PaymentService
	siteURL  string
}

func NewPaymentHandler(paystack *services.PaystackService, payments *services.PaymentService, siteURL string) *PaymentHandler {
	return &PaymentHandler{paystack: paystack, payments: payments, siteURL: siteURL}
}

type initPaymentRequest struct {
	Plan string `json:"plan"`
}

// InitializePayment starts a gateway transaction for the signed-in user.
// The tier and user identity travel in the transaction metadata so the
// webhook can attribute the payment without a session.
func (h *PaymentHandler) InitializePayment(c echo.Context) error {
	var req initPaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	tier, ok := pricing.TierByID(req.Plan)
	if !ok || !tier.Purchasable() {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown or non-purchasable plan")
	}

	email := getStringFromContext(c, "userEmail")
	uid := getStringFromContext(c, "userUID")
	if email == "" || uid == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "login required")
	}

	metadata := map[string]interface{}{
		"plan":   tier.ID,
		"userId": uid,
		"email":  email,
	}
	callbackURL := fmt.Sprintf("%s/api/paystack/verify", h.siteURL)

	trx, err := h.paystack.InitializeTransaction(c.Request().Context(), email, tier.PriceMinor(), metadata, callbackURL)
	if err != nil {
		log.Error().Err(err).Str("plan", tier.ID).Str("user_id", uid).Msg("transaction initialization failed")
		return echo.NewHTTPError(http.StatusBadGateway, "payment gateway unavailable")
	}

	log.Info().Str("reference", trx.Reference).Str("plan", tier.ID).Str("user_id", uid).Msg("transaction initialized")

	return c.JSON(http.StatusOK, map[string]string{
		"authorization_url": trx.AuthorizationURL,
		"access_code":       trx.AccessCode,
		"reference":         trx.Reference,
	})
}

// VerifyPayment is the gateway callback landing. It confirms the
// transaction against the gateway API, runs it through the same
// reconciliation path as the webhook, then redirects to the tier's
// dashboard. The webhook normally arrives first; the unique reference
// makes the second write a no-op.
func (h *PaymentHandler) VerifyPayment(c echo.Context) error {
	reference := c.QueryParam("reference")
	if reference == "" {
		reference = c.QueryParam("trxref")
	}
	if reference == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing reference")
	}

	trx, err := h.paystack.VerifyTransaction(c.Request().Context(), reference)
	if err != nil {
		log.Error().Err(err).Str("reference", reference).Msg("transaction verification failed")
		return c.Redirect(http.StatusSeeOther, "/dashboard?payment=error")
	}

	outcome, err := h.payments.ProcessVerifiedTransaction(c.Request().Context(), trx)
	if err != nil {
		log.Error().Err(err).Str("reference", reference).Msg("verified transaction processing failed")
		return c.Redirect(http.StatusSeeOther, "/dashboard?payment=error")
	}

	if trx.Status != "success" {
		return c.Redirect(http.StatusSeeOther, "/dashboard?payment=failed")
	}

	// On a duplicate the webhook already recorded the payment; fall back
	// to the gateway metadata for the landing page.
	plan := ""
	if outcome.Record != nil {
		plan = outcome.Record.Plan
	} else if p, ok := trx.Metadata["plan"].(string); ok {
		plan = p
	}

	target := "/dashboard"
	if tier, ok := pricing.TierByID(plan); ok {
		target = tier.DashboardPath()
	}
	return c.Redirect(http.StatusSeeOther, target+"?payment=success")
}
