package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/avolkhin/shipstream/internal/domain/errors"
	"github.com/avolkhin/shipstream/internal/domain/model"
	"github.com/avolkhin/shipstream/internal/server/http/dto"
)

const defaultListLimit = 100

// FulfillmentHandler serves fulfillment queries and administrative actions.
type FulfillmentHandler struct {
	facade FulfillmentFacade
}

// NewFulfillmentHandler constructs FulfillmentHandler.
func NewFulfillmentHandler(facade FulfillmentFacade) *FulfillmentHandler {
	return &FulfillmentHandler{facade: facade}
}

// List handles GET /api/fulfillments.
func (h *FulfillmentHandler) List(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = parsed
	}

	orders, err := h.facade.Fulfillments(c.Request.Context(), limit)
	if err != nil {
		WriteError(c, err)
		return
	}

	response := make([]dto.FulfillmentResponse, 0, len(orders))
	for i := range orders {
		response = append(response, toFulfillmentResponse(&orders[i]))
	}
	c.JSON(http.StatusOK, response)
}

// Get handles GET /api/fulfillments/:id.
func (h *FulfillmentHandler) Get(c *gin.Context) {
	id, ok := RecordID(c)
	if !ok {
		return
	}
	order, err := h.facade.Fulfillment(c.Request.Context(), id)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFulfillmentResponse(order))
}

// Events handles GET /api/fulfillments/:id/events.
func (h *FulfillmentHandler) Events(c *gin.Context) {
	id, ok := RecordID(c)
	if !ok {
		return
	}
	events, err := h.facade.FulfillmentEvents(c.Request.Context(), id)
	if err != nil {
		WriteError(c, err)
		return
	}
	response := make([]dto.AuditEventResponse, 0, len(events))
	for _, evt := range events {
		response = append(response, dto.AuditEventResponse{
			ID:        evt.ID,
			Event:     evt.Event,
			Detail:    evt.Detail,
			CreatedAt: evt.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, response)
}

// Summary handles GET /api/fulfillments/summary.
func (h *FulfillmentHandler) Summary(c *gin.Context) {
	summary, err := h.facade.Summary(c.Request.Context())
	if err != nil {
		WriteError(c, err)
		return
	}
	response := dto.SummaryResponse{
		Total:       summary.Total,
		ByStatus:    make(map[string]int64, len(summary.ByStatus)),
		TotalProfit: summary.TotalProfit,
	}
	for status, count := range summary.ByStatus {
		response.ByStatus[string(status)] = count
	}
	c.JSON(http.StatusOK, response)
}

// Retry handles POST /api/fulfillments/:id/retry.
func (h *FulfillmentHandler) Retry(c *gin.Context) {
	id, ok := RecordID(c)
	if !ok {
		return
	}
	order, err := h.facade.AttemptSubmission(c.Request.Context(), id)
	if err != nil {
		// An existing supplier order is the success the caller wanted.
		if errors.Is(err, domainErrors.ErrAlreadySubmitted) {
			if existing, getErr := h.facade.Fulfillment(c.Request.Context(), id); getErr == nil {
				c.JSON(http.StatusOK, toFulfillmentResponse(existing))
				return
			}
		}
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFulfillmentResponse(order))
}

// Approve handles POST /api/fulfillments/:id/approve.
func (h *FulfillmentHandler) Approve(c *gin.Context) {
	h.control(c, h.facade.Approve)
}

// Deliver handles POST /api/fulfillments/:id/deliver.
func (h *FulfillmentHandler) Deliver(c *gin.Context) {
	h.control(c, h.facade.MarkDelivered)
}

// Cancel handles POST /api/fulfillments/:id/cancel.
func (h *FulfillmentHandler) Cancel(c *gin.Context) {
	h.control(c, h.facade.Cancel)
}

// Return handles POST /api/fulfillments/:id/return.
func (h *FulfillmentHandler) Return(c *gin.Context) {
	h.control(c, h.facade.Return)
}

func (h *FulfillmentHandler) control(c *gin.Context, action func(ctx context.Context, id int64) (*model.FulfillmentOrder, error)) {
	id, ok := RecordID(c)
	if !ok {
		return
	}
	order, err := action(c.Request.Context(), id)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFulfillmentResponse(order))
}
