package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
)

const (
	HeaderTopic     = "X-Shopify-Topic"
	HeaderHmac      = "X-Shopify-Hmac-Sha256"
	HeaderShop      = "X-Shopify-Shop-Domain"
	HeaderWebhookID = "X-Shopify-Webhook-Id"
)

// ValidateWebhook checks the base64 HMAC-SHA256 signature Shopify sends with
// every webhook.
func ValidateWebhook(payload []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	expected, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), expected)
}

// SignWebhook computes the signature ValidateWebhook expects.
func SignWebhook(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// OrderIDFromWebhook extracts the order id from an order or refund webhook.
func OrderIDFromWebhook(payload []byte) (string, error) {
	var webhook WebhookPayload
	if err := json.Unmarshal(payload, &webhook); err != nil {
		return "", fmt.Errorf("failed to parse webhook payload: %w", err)
	}
	if webhook.OrderID != 0 {
		return strconv.FormatInt(webhook.OrderID, 10), nil
	}
	if webhook.ID != 0 {
		return strconv.FormatInt(webhook.ID, 10), nil
	}
	return "", fmt.Errorf("webhook payload carries no order id")
}
