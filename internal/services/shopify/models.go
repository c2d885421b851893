package shopify

import (
	"time"
)

// Order represents a Shopify order
type Order struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	OrderNumber     int64      `json:"order_number"`
	Email           string     `json:"email"`
	FinancialStatus string     `json:"financial_status"`
	Tags            string     `json:"tags"`
	Customer        *Customer  `json:"customer"`
	LineItems       []LineItem `json:"line_items"`
	CancelledAt     *time.Time `json:"cancelled_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Customer represents the customer attached to an order
type Customer struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// LineItem represents an order line item
type LineItem struct {
	ID        int64  `json:"id"`
	ProductID *int64 `json:"product_id"`
	VariantID *int64 `json:"variant_id"`
	Title     string `json:"title"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	SKU       string `json:"sku"`
}

// WebhookPayload is the subset of an order webhook body needed to route it.
// Refund webhooks carry the order under order_id instead of id.
type WebhookPayload struct {
	ID      int64 `json:"id"`
	OrderID int64 `json:"order_id"`
}
