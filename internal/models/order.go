package models

import "strings"

// Order is the platform-neutral view of a commerce order that drives
// enrollment.
type Order struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	FinancialStatus string     `json:"financial_status"`
	Tags            []string   `json:"tags"`
	Customer        Customer   `json:"customer"`
	LineItems       []LineItem `json:"line_items"`
}

type Customer struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type LineItem struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
}

const (
	FinancialStatusPaid       = "paid"
	FinancialStatusAuthorized = "authorized"
)

// IsSubscription reports whether any tag mentions "subscription".
func (o *Order) IsSubscription() bool {
	for _, tag := range o.Tags {
		if strings.Contains(strings.ToLower(tag), "subscription") {
			return true
		}
	}
	return false
}

// IsPaid reports whether the payment is captured or authorized.
func (o *Order) IsPaid() bool {
	switch strings.ToLower(strings.TrimSpace(o.FinancialStatus)) {
	case FinancialStatusPaid, FinancialStatusAuthorized:
		return true
	}
	return false
}

// CustomerEmail prefers the customer record and falls back to the order email.
func (o *Order) CustomerEmail() string {
	if email := strings.TrimSpace(o.Customer.Email); email != "" {
		return email
	}
	return strings.TrimSpace(o.Email)
}
