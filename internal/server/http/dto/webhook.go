package dto

import "encoding/json"

// OrderPaidWebhook is the storefront order-paid event payload.
type OrderPaidWebhook struct {
	ID              json.Number       `json:"id"`
	LineItems       []WebhookLineItem `json:"line_items"`
	ShippingAddress ShippingAddress   `json:"shipping_address"`
}

// WebhookLineItem is one purchased line inside the order-paid payload.
type WebhookLineItem struct {
	ID       json.Number `json:"id"`
	SKU      string      `json:"sku"`
	Quantity int         `json:"quantity"`
	Price    json.Number `json:"price"`
}

// ShippingAddress is the storefront shipping snapshot.
type ShippingAddress struct {
	Name        string `json:"name"`
	Address1    string `json:"address1"`
	Address2    string `json:"address2"`
	City        string `json:"city"`
	Province    string `json:"province"`
	CountryCode string `json:"country_code"`
	Zip         string `json:"zip"`
	Phone       string `json:"phone"`
}

// WebhookAccepted reports per-line-item intake outcomes back to the caller.
type WebhookAccepted struct {
	SaleID  string                `json:"sale_id"`
	Results []WebhookIntakeResult `json:"results"`
}

// WebhookIntakeResult is the intake outcome for a single line item.
type WebhookIntakeResult struct {
	LineItemID string `json:"line_item_id"`
	OrderID    int64  `json:"order_id"`
	Supplier   string `json:"supplier"`
	Mode       string `json:"mode"`
	Created    bool   `json:"created"`
}
