package supplier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/avolkhin/shipstream/internal/domain/model"
)

// ErrShipmentNotFound indicates the supplier has no events for a tracking
// reference yet.
var ErrShipmentNotFound = errors.New("shipment not registered")

// TooManyRequestsError represents rate limiting signal from the supplier.
type TooManyRequestsError struct {
	RetryAfter time.Duration
}

func (e TooManyRequestsError) Error() string {
	return fmt.Sprintf("too many requests, retry after %s", e.RetryAfter)
}

// OrderItem is a single product line in a supplier order.
type OrderItem struct {
	VariantID string
	Quantity  int
}

// OrderRequest carries everything the supplier needs to ship a line item.
type OrderRequest struct {
	Reference string
	Recipient model.Recipient
	Items     []OrderItem
}

// OrderResult is the supplier's acceptance: its order id and quoted costs.
type OrderResult struct {
	SupplierOrderID string
	ProductCost     float64
	ShippingCost    float64
}

// Client exposes operations against the primary supplier.
type Client interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)
	GetTracking(ctx context.Context, trackingNumber string) (*model.Shipment, error)
}

// HTTPClient implements Client via the supplier HTTP API.
type HTTPClient struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

type orderPayload struct {
	OrderNumber string           `json:"orderNumber"`
	Recipient   recipientPayload `json:"recipient"`
	Products    []productPayload `json:"products"`
}

type recipientPayload struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Address2 string `json:"address2,omitempty"`
	City     string `json:"city"`
	Province string `json:"province,omitempty"`
	Country  string `json:"country"`
	Zip      string `json:"zip,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

type productPayload struct {
	VariantID string `json:"vid"`
	Quantity  int    `json:"quantity"`
}

type orderResponse struct {
	OrderID      string  `json:"orderId"`
	ProductCost  float64 `json:"productAmount"`
	ShippingCost float64 `json:"postageAmount"`
}

type trackingResponse struct {
	TrackingNumber string `json:"trackingNumber"`
	Events         []struct {
		Status      string `json:"status"`
		TrackingURL string `json:"trackingUrl,omitempty"`
	} `json:"trackingList"`
}

// NewHTTPClient creates supplier client with default timeout.
func NewHTTPClient(baseURL string, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse supplier url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("supplier url must be absolute")
	}
	return &HTTPClient{
		baseURL: parsed,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

// CreateOrder submits an order and returns the supplier id with quoted costs.
func (c *HTTPClient) CreateOrder(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	payload := orderPayload{
		OrderNumber: req.Reference,
		Recipient: recipientPayload{
			Name:     req.Recipient.Name,
			Address:  req.Recipient.Address1,
			Address2: req.Recipient.Address2,
			City:     req.Recipient.City,
			Province: req.Recipient.Province,
			Country:  req.Recipient.Country,
			Zip:      req.Recipient.Zip,
			Phone:    req.Recipient.Phone,
		},
	}
	for _, item := range req.Items {
		payload.Products = append(payload.Products, productPayload{VariantID: item.VariantID, Quantity: item.Quantity})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/api/orders")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		var data orderResponse
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, err
		}
		if data.OrderID == "" {
			return nil, fmt.Errorf("supplier returned no order id")
		}
		return &OrderResult{
			SupplierOrderID: data.OrderID,
			ProductCost:     data.ProductCost,
			ShippingCost:    data.ShippingCost,
		}, nil
	case http.StatusTooManyRequests:
		return nil, TooManyRequestsError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	default:
		raw, _ := io.ReadAll(resp.Body)
		c.logger.Error("supplier order create failed", slog.Int("status", resp.StatusCode), slog.String("body", string(raw)))
		return nil, fmt.Errorf("supplier error: %s", resp.Status)
	}
}

// GetTracking queries shipment status for a tracking number.
func (c *HTTPClient) GetTracking(ctx context.Context, trackingNumber string) (*model.Shipment, error) {
	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/api/tracking/", trackingNumber)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		var data trackingResponse
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, err
		}
		shipment := &model.Shipment{TrackingNumber: data.TrackingNumber}
		if shipment.TrackingNumber == "" {
			shipment.TrackingNumber = trackingNumber
		}
		for _, e := range data.Events {
			shipment.Events = append(shipment.Events, model.TrackingEvent{Status: e.Status, TrackingURL: e.TrackingURL})
		}
		return shipment, nil
	case http.StatusNoContent, http.StatusNotFound:
		return nil, ErrShipmentNotFound
	case http.StatusTooManyRequests:
		return nil, TooManyRequestsError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	default:
		raw, _ := io.ReadAll(resp.Body)
		c.logger.Error("supplier tracking request failed", slog.Int("status", resp.StatusCode), slog.String("body", string(raw)))
		return nil, fmt.Errorf("supplier error: %s", resp.Status)
	}
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 5 * time.Second
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}
	return 5 * time.Second
}
