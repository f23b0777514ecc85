package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"
)

// FulfillmentRequest asks the storefront to mark an order fulfilled with
// tracking details attached.
type FulfillmentRequest struct {
	SaleID         string
	LineItemID     string
	TrackingNumber string
	TrackingURL    string
	Carrier        string
}

// Fulfillment is the storefront's record of a created fulfillment.
type Fulfillment struct {
	ID string
}

// Client exposes storefront fulfillment operations.
type Client interface {
	CreateFulfillment(ctx context.Context, req FulfillmentRequest) (*Fulfillment, error)
}

// HTTPClient implements Client via the storefront admin API.
type HTTPClient struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

type fulfillmentPayload struct {
	Fulfillment struct {
		NotifyCustomer  bool   `json:"notify_customer"`
		TrackingNumber  string `json:"tracking_number"`
		TrackingURL     string `json:"tracking_url,omitempty"`
		TrackingCompany string `json:"tracking_company"`
		LineItems       []struct {
			ID string `json:"id"`
		} `json:"line_items,omitempty"`
	} `json:"fulfillment"`
}

type fulfillmentResponse struct {
	Fulfillment struct {
		ID string `json:"id"`
	} `json:"fulfillment"`
}

// NewHTTPClient creates storefront client with default timeout.
func NewHTTPClient(baseURL string, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse storefront url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("storefront url must be absolute")
	}
	return &HTTPClient{
		baseURL: parsed,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// CreateFulfillment creates the storefront fulfillment entry for an order.
func (c *HTTPClient) CreateFulfillment(ctx context.Context, req FulfillmentRequest) (*Fulfillment, error) {
	var payload fulfillmentPayload
	payload.Fulfillment.NotifyCustomer = true
	payload.Fulfillment.TrackingNumber = req.TrackingNumber
	payload.Fulfillment.TrackingURL = req.TrackingURL
	payload.Fulfillment.TrackingCompany = req.Carrier
	if req.LineItemID != "" {
		payload.Fulfillment.LineItems = []struct {
			ID string `json:"id"`
		}{{ID: req.LineItemID}}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/api/orders/", req.SaleID, "/fulfillments")

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

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body)
		c.logger.Error("storefront fulfillment create failed", slog.Int("status", resp.StatusCode), slog.String("body", string(raw)))
		return nil, fmt.Errorf("storefront error: %s", resp.Status)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var data fulfillmentResponse
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	if data.Fulfillment.ID == "" {
		return nil, fmt.Errorf("storefront returned no fulfillment id")
	}
	return &Fulfillment{ID: data.Fulfillment.ID}, nil
}
