package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/avolkhin/shipstream/internal/domain/errors"
	"github.com/avolkhin/shipstream/internal/domain/model"
	"github.com/avolkhin/shipstream/internal/server/http/dto"
)

// RecordID extracts the fulfillment record id from the :id path parameter.
func RecordID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid record id"})
		return 0, false
	}
	return id, true
}

// WriteError maps domain failures onto HTTP statuses.
func WriteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainErrors.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "record not found"})
	case errors.Is(err, domainErrors.ErrInvalidTransition),
		errors.Is(err, domainErrors.ErrAlreadyEscalated),
		errors.Is(err, domainErrors.ErrLockHeld),
		errors.Is(err, domainErrors.ErrNegativeProfitBlocked),
		errors.Is(err, domainErrors.ErrMissingSupplierMapping):
		c.JSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
	}
}

func toFulfillmentResponse(order *model.FulfillmentOrder) dto.FulfillmentResponse {
	resp := dto.FulfillmentResponse{
		ID:              order.ID,
		SaleID:          order.SaleID,
		LineItemID:      order.LineItemID,
		SKU:             order.SKU,
		Quantity:        order.Quantity,
		Supplier:        string(order.Supplier),
		Status:          string(order.Status),
		SupplierOrderID: order.SupplierOrderID,
		TrackingNumber:  order.TrackingNumber,
		Carrier:         order.Carrier,
		SalePrice:       order.SalePrice,
		SupplierCost:    order.SupplierCost,
		ShippingCost:    order.ShippingCost,
		Profit:          order.Profit,
		RetryCount:      order.Retry.Count,
		LastRetryError:  order.Retry.LastError,
		LastRetryAt:     order.Retry.LastAt,
		IsFallback:      order.Escalated(),
		CanRetry:        order.CanRetry(),
		StorefrontID:    order.StorefrontFulfillmentID,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
	if order.BlockReason != nil {
		reason := string(*order.BlockReason)
		resp.BlockedReason = &reason
	}
	if order.Fallback != nil {
		resp.FallbackFrom = string(order.Fallback.From)
		resp.FallbackReason = order.Fallback.Reason
	}
	return resp
}
