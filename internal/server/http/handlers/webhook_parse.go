package handlers

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/avolkhin/shipstream/internal/domain/model"
	"github.com/avolkhin/shipstream/internal/server/http/dto"
)

func parseSale(body []byte) (*model.Sale, error) {
	var payload dto.OrderPaidWebhook
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("malformed payload: %w", err)
	}
	if payload.ID.String() == "" {
		return nil, errors.New("missing order id")
	}
	if len(payload.LineItems) == 0 {
		return nil, errors.New("no line items")
	}

	sale := &model.Sale{
		SaleID: payload.ID.String(),
		Recipient: model.Recipient{
			Name:     payload.ShippingAddress.Name,
			Address1: payload.ShippingAddress.Address1,
			Address2: payload.ShippingAddress.Address2,
			City:     payload.ShippingAddress.City,
			Province: payload.ShippingAddress.Province,
			Country:  payload.ShippingAddress.CountryCode,
			Zip:      payload.ShippingAddress.Zip,
			Phone:    payload.ShippingAddress.Phone,
		},
	}

	for _, item := range payload.LineItems {
		if item.ID.String() == "" {
			return nil, errors.New("line item missing id")
		}
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		price, err := item.Price.Float64()
		if err != nil && item.Price.String() != "" {
			return nil, fmt.Errorf("line item %s: bad price %q", item.ID, item.Price)
		}
		sale.LineItems = append(sale.LineItems, model.SaleLineItem{
			LineItemID: item.ID.String(),
			SKU:        item.SKU,
			Quantity:   quantity,
			Price:      price,
		})
	}

	return sale, nil
}
