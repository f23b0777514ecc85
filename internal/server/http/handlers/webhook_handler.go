package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avolkhin/shipstream/internal/domain/model"
	"github.com/avolkhin/shipstream/internal/pkg/signature"
	"github.com/avolkhin/shipstream/internal/server/http/dto"
)

// SignatureHeader carries the storefront's HMAC over the raw request body.
const SignatureHeader = "X-Storefront-Hmac-Sha256"

// WebhookHandler ingests storefront order-paid events.
type WebhookHandler struct {
	facade   WebhookFacade
	verifier signature.Verifier
	logger   *slog.Logger
}

// NewWebhookHandler constructs WebhookHandler.
func NewWebhookHandler(facade WebhookFacade, verifier signature.Verifier, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{facade: facade, verifier: verifier, logger: logger}
}

// OrderPaid handles POST /webhooks/storefront/order-paid.
//
// The signature covers the raw body, so the body is read before any JSON
// decoding. A valid signature always yields 200: intake is idempotent and the
// storefront retries on anything else.
func (h *WebhookHandler) OrderPaid(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "unreadable body"})
		return
	}

	if !h.verifier.Verify(body, c.GetHeader(SignatureHeader)) {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "invalid signature"})
		return
	}

	sale, err := parseSale(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	results, err := h.facade.IngestSale(c.Request.Context(), *sale)
	if err != nil {
		h.logger.Error("sale intake failed", slog.String("sale_id", sale.SaleID), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "intake failed"})
		return
	}

	response := dto.WebhookAccepted{SaleID: sale.SaleID}
	for _, result := range results {
		// Best-effort inline submission for auto-routed records; the retry
		// worker picks up whatever fails here.
		if result.Created && result.Decision.Mode == model.ModeAuto {
			if _, err := h.facade.AttemptSubmission(c.Request.Context(), result.Order.ID); err != nil {
				h.logger.Warn("inline submission failed",
					slog.Int64("order_id", result.Order.ID), slog.String("error", err.Error()))
			}
		}
		response.Results = append(response.Results, dto.WebhookIntakeResult{
			LineItemID: result.Order.LineItemID,
			OrderID:    result.Order.ID,
			Supplier:   string(result.Decision.Supplier),
			Mode:       string(result.Decision.Mode),
			Created:    result.Created,
		})
	}

	c.JSON(http.StatusOK, response)
}
