package shopify

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"coursebridge/internal/models"
)

type Transformer struct{}

func NewTransformer() *Transformer {
	return &Transformer{}
}

// TransformOrder converts a Shopify order to our canonical format
func (t *Transformer) TransformOrder(shopifyOrder *Order) (*models.Order, error) {
	if shopifyOrder == nil || shopifyOrder.ID == 0 {
		return nil, fmt.Errorf("order has no id")
	}

	order := &models.Order{
		ID:              strconv.FormatInt(shopifyOrder.ID, 10),
		Name:            shopifyOrder.Name,
		Email:           shopifyOrder.Email,
		FinancialStatus: shopifyOrder.FinancialStatus,
		Tags:            SplitTags(shopifyOrder.Tags),
	}

	if shopifyOrder.Customer != nil {
		order.Customer = models.Customer{
			ID:        formatID(shopifyOrder.Customer.ID),
			Email:     shopifyOrder.Customer.Email,
			FirstName: shopifyOrder.Customer.FirstName,
			LastName:  shopifyOrder.Customer.LastName,
		}
	}

	// Transform line items; custom items without a product keep an empty product id
	order.LineItems = make([]models.LineItem, len(shopifyOrder.LineItems))
	for i, item := range shopifyOrder.LineItems {
		title := item.Title
		if title == "" {
			title = item.Name
		}
		productID := ""
		if item.ProductID != nil {
			productID = formatID(*item.ProductID)
		}
		order.LineItems[i] = models.LineItem{
			ID:        formatID(item.ID),
			ProductID: productID,
			Title:     title,
		}
	}

	return order, nil
}

// TransformWebhook decodes an order webhook body into the canonical format
func (t *Transformer) TransformWebhook(payload []byte) (*models.Order, error) {
	var shopifyOrder Order
	if err := json.Unmarshal(payload, &shopifyOrder); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order payload: %w", err)
	}
	return t.TransformOrder(&shopifyOrder)
}

// SplitTags splits Shopify's comma-separated tag string.
func SplitTags(tags string) []string {
	out := []string{}
	for _, tag := range strings.Split(tags, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
