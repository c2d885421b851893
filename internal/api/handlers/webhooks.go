package handlers

import (
	"context"
	"io"
	"net/http"

	"coursebridge/internal/config"
	"coursebridge/internal/logger"
	"coursebridge/internal/services/shopify"
	"coursebridge/internal/worker/processors"

	"github.com/gin-gonic/gin"
)

const MessageQueued = "Webhook queued for processing."

// OrderProcessor handles one order notification.
type OrderProcessor interface {
	Process(ctx context.Context, event processors.Event) *processors.Result
}

// WebhookForwarder hands a webhook to another process instead of handling it
// in the request.
type WebhookForwarder interface {
	Forward(ctx context.Context, topic, webhookID, shop string, payload []byte) error
}

type WebhookHandler struct {
	logger    *logger.Logger
	config    *config.Config
	processor OrderProcessor
	forwarder WebhookForwarder
}

// NewWebhookHandler builds the handler. forwarder may be nil, in which case
// every webhook is processed inline.
func NewWebhookHandler(logger *logger.Logger, config *config.Config, processor OrderProcessor, forwarder WebhookForwarder) *WebhookHandler {
	return &WebhookHandler{
		logger:    logger,
		config:    config,
		processor: processor,
		forwarder: forwarder,
	}
}

// Shopify receives order webhooks. Once the body is authenticated the sender
// always gets a 200 so its own retries never pile up behind a failing order;
// the outcome is reported in the message.
func (h *WebhookHandler) Shopify(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Failed to read request body")
		return
	}

	if secret := h.config.ShopifyWebhookSecret; secret != "" {
		if !shopify.ValidateWebhook(payload, c.GetHeader(shopify.HeaderHmac), secret) {
			h.logger.Error("Rejected webhook from %s: invalid signature", c.GetHeader(shopify.HeaderShop))
			respondError(c, http.StatusUnauthorized, "Invalid webhook signature")
			return
		}
	}

	topic := c.GetHeader(shopify.HeaderTopic)
	shop := c.GetHeader(shopify.HeaderShop)
	webhookID := c.GetHeader(shopify.HeaderWebhookID)
	h.logger.Info("Received webhook %s from %s", topic, shop)

	if h.forwarder != nil {
		err := h.forwarder.Forward(c.Request.Context(), topic, webhookID, shop, payload)
		if err == nil {
			respondMessage(c, http.StatusOK, MessageQueued)
			return
		}
		h.logger.Error("Relay failed, processing webhook %s inline: %v", webhookID, err)
	}

	event, err := processors.EventFromWebhook(topic, webhookID, payload)
	if err != nil {
		h.logger.Error("Unreadable %s webhook: %v", topic, err)
		respondMessage(c, http.StatusOK, "Webhook received but could not be read: "+err.Error())
		return
	}

	result := h.processor.Process(c.Request.Context(), event)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": result.Message,
		"data":    result,
	})
}
