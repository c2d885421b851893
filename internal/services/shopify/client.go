package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"coursebridge/internal/logger"
	"coursebridge/internal/models"
)

type Client struct {
	baseURL     string
	accessToken string
	apiVersion  string
	httpClient  *http.Client
	transformer *Transformer
	logger      *logger.Logger
}

func NewClient(shopDomain, accessToken, apiVersion string, logger *logger.Logger) *Client {
	// Clean the shop domain (remove .myshopify.com if present)
	cleanDomain := strings.TrimSuffix(strings.TrimSpace(shopDomain), ".myshopify.com")
	return NewClientWithBaseURL(fmt.Sprintf("https://%s.myshopify.com", cleanDomain), accessToken, apiVersion, logger)
}

// NewClientWithBaseURL targets an explicit admin host, e.g. a test server.
func NewClientWithBaseURL(baseURL, accessToken, apiVersion string, logger *logger.Logger) *Client {
	if apiVersion == "" {
		apiVersion = "2023-10"
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		apiVersion:  apiVersion,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		transformer: NewTransformer(),
		logger:      logger,
	}
}

// GetOrder fetches a single order by ID
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	if c.accessToken == "" {
		return nil, fmt.Errorf("shopify: access token not configured")
	}

	url := fmt.Sprintf("%s/admin/api/%s/orders/%s.json", c.baseURL, c.apiVersion, orderID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Shopify-Access-Token", c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API request failed: %d - %s", resp.StatusCode, string(body))
	}

	var orderResp struct {
		Order Order `json:"order"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&orderResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &orderResp.Order, nil
}

// FetchOrder fetches an order and converts it to the canonical model
func (c *Client) FetchOrder(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := c.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("Fetched Shopify order %d (%s)", order.ID, order.Name)
	return c.transformer.TransformOrder(order)
}
