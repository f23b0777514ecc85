package test

import (
	"context"

	"github.com/avolkhin/shipstream/internal/adapter/storefront"
	"github.com/avolkhin/shipstream/internal/adapter/supplier"
	"github.com/avolkhin/shipstream/internal/domain/model"
)

// SupplierClientStub allows tests to customize supplier responses.
type SupplierClientStub struct {
	CreateOrderFn   func(context.Context, supplier.OrderRequest) (*supplier.OrderResult, error)
	GetTrackingFn   func(context.Context, string) (*model.Shipment, error)
	CreatedRequests []supplier.OrderRequest
}

func (s *SupplierClientStub) CreateOrder(ctx context.Context, req supplier.OrderRequest) (*supplier.OrderResult, error) {
	s.CreatedRequests = append(s.CreatedRequests, req)
	if s.CreateOrderFn == nil {
		return &supplier.OrderResult{SupplierOrderID: "SUP-1", ProductCost: 1, ShippingCost: 1}, nil
	}
	return s.CreateOrderFn(ctx, req)
}

func (s *SupplierClientStub) GetTracking(ctx context.Context, trackingNumber string) (*model.Shipment, error) {
	if s.GetTrackingFn == nil {
		return nil, supplier.ErrShipmentNotFound
	}
	return s.GetTrackingFn(ctx, trackingNumber)
}

// StorefrontClientStub records fulfillment notifications sent to the storefront.
type StorefrontClientStub struct {
	CreateFulfillmentFn func(context.Context, storefront.FulfillmentRequest) (*storefront.Fulfillment, error)
	Requests            []storefront.FulfillmentRequest
}

func (s *StorefrontClientStub) CreateFulfillment(ctx context.Context, req storefront.FulfillmentRequest) (*storefront.Fulfillment, error) {
	s.Requests = append(s.Requests, req)
	if s.CreateFulfillmentFn == nil {
		return &storefront.Fulfillment{ID: "SF-1"}, nil
	}
	return s.CreateFulfillmentFn(ctx, req)
}
