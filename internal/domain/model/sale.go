package model

// SaleLineItem is a single purchased line from a confirmed storefront sale.
type SaleLineItem struct {
	LineItemID string
	SKU        string
	Quantity   int
	Price      float64
}

// Sale is the storefront order snapshot carried by the order-paid event.
type Sale struct {
	SaleID    string
	LineItems []SaleLineItem
	Recipient Recipient
}
