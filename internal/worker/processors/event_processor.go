package processors

import (
	"context"
	"fmt"
	"strings"

	"coursebridge/internal/logger"
	"coursebridge/internal/models"
	"coursebridge/internal/services/enrollment"
	"coursebridge/internal/services/shopify"
	"coursebridge/internal/worker/processors/export"
	"coursebridge/internal/worker/processors/validation"
)

// Order webhook topics.
const (
	TopicOrderCreate    = "orders/create"
	TopicOrderPaid      = "orders/paid"
	TopicOrderCancelled = "orders/cancelled"
	TopicOrderRefunded  = "orders/refunded"
	TopicRefundCreate   = "refunds/create"
)

const (
	MessageNotSubscription = "Not a subscription order."
	MessageNotPaid         = "Order not paid; skipping enrollment."
)

// OutcomeNoCourse marks a line item whose product resolves to no course.
const OutcomeNoCourse enrollment.Outcome = "no_course"

// Event is one inbound order notification.
type Event struct {
	ID      string
	Topic   string
	OrderID string
	// Order is the order as carried by the notification itself, if any.
	Order *models.Order
}

// EventFromWebhook builds an Event from a raw Shopify webhook body. Refund
// bodies carry only the order id.
func EventFromWebhook(topic, webhookID string, payload []byte) (Event, error) {
	orderID, err := shopify.OrderIDFromWebhook(payload)
	if err != nil {
		return Event{}, err
	}

	event := Event{ID: webhookID, Topic: topic, OrderID: orderID}
	if topic != TopicRefundCreate {
		if order, err := shopify.NewTransformer().TransformWebhook(payload); err == nil {
			event.Order = order
		}
	}
	return event, nil
}

// OrderFetcher loads the full order from the commerce platform.
type OrderFetcher interface {
	FetchOrder(ctx context.Context, orderID string) (*models.Order, error)
}

type CourseResolver interface {
	Resolve(ctx context.Context, productID, title string) (string, bool)
}

type EnrollmentReconciler interface {
	Reconcile(ctx context.Context, req enrollment.Request) (enrollment.Outcome, error)
}

// ItemResult is the outcome for one line item.
type ItemResult struct {
	LineItemID string             `json:"line_item_id"`
	ProductID  string             `json:"product_id"`
	Title      string             `json:"title"`
	CourseID   string             `json:"course_id,omitempty"`
	Outcome    enrollment.Outcome `json:"outcome"`
	Error      string             `json:"error,omitempty"`
}

// Result summarizes the handling of one event. Processing failures are
// reported here rather than as errors so callers can acknowledge the event.
type Result struct {
	OrderID   string       `json:"order_id"`
	Topic     string       `json:"topic"`
	Processed bool         `json:"processed"`
	Message   string       `json:"message"`
	Items     []ItemResult `json:"items,omitempty"`
	Failed    int          `json:"failed"`
}

type EventProcessor struct {
	logger     *logger.Logger
	validator  *validation.Validator
	fetcher    OrderFetcher
	resolver   CourseResolver
	reconciler EnrollmentReconciler
	exporter   export.Publisher
}

// NewEventProcessor wires the processor. fetcher may be nil, in which case
// the order carried by the event is used.
func NewEventProcessor(logger *logger.Logger, fetcher OrderFetcher, resolver CourseResolver, reconciler EnrollmentReconciler, exporter export.Publisher) *EventProcessor {
	if exporter == nil {
		exporter = export.NopPublisher{}
	}
	return &EventProcessor{
		logger:     logger,
		validator:  validation.New(logger),
		fetcher:    fetcher,
		resolver:   resolver,
		reconciler: reconciler,
		exporter:   exporter,
	}
}

// DesiredState maps a topic to the membership it asks for.
func DesiredState(topic string) (enrollment.State, bool) {
	switch topic {
	case TopicOrderCreate, TopicOrderPaid:
		return enrollment.Enrolled, true
	case TopicOrderCancelled, TopicOrderRefunded, TopicRefundCreate:
		return enrollment.Unenrolled, true
	}
	return 0, false
}

// Process classifies the event and reconciles every line item in order.
// One failing item does not stop the others.
func (ep *EventProcessor) Process(ctx context.Context, event Event) *Result {
	result := &Result{OrderID: event.OrderID, Topic: event.Topic}

	desired, ok := DesiredState(event.Topic)
	if !ok {
		ep.logger.Debug("Unhandled order topic: %s", event.Topic)
		result.Message = fmt.Sprintf("Topic %s not handled.", event.Topic)
		return result
	}

	order, err := ep.loadOrder(ctx, event)
	if err != nil {
		ep.logger.Error("Order %s (%s): %v", event.OrderID, event.Topic, err)
		result.Message = fmt.Sprintf("Failed to fetch order: %v", err)
		return result
	}
	result.OrderID = order.ID

	if !order.IsSubscription() {
		ep.logger.Info("Order %s is not a subscription order (tags %v)", order.ID, order.Tags)
		result.Message = MessageNotSubscription
		return result
	}

	if desired == enrollment.Enrolled && !order.IsPaid() {
		ep.logger.Info("Order %s financial status %q; skipping enrollment", order.ID, order.FinancialStatus)
		result.Message = MessageNotPaid
		return result
	}

	if err := ep.validator.ValidateOrder(order); err != nil {
		ep.logger.Error("Order %s rejected: %v", order.ID, err)
		result.Message = fmt.Sprintf("Invalid order: %v", err)
		return result
	}

	email := order.CustomerEmail()
	for _, item := range order.LineItems {
		itemResult := ep.processItem(ctx, order, item, desired, email)
		if itemResult.Outcome == enrollment.OutcomeFailed {
			result.Failed++
		}
		result.Items = append(result.Items, itemResult)
		ep.export(ctx, event.Topic, order, email, itemResult)
	}

	result.Processed = true
	result.Message = fmt.Sprintf("Processed order %s: %d line items, %d failed.", orderLabel(order), len(result.Items), result.Failed)
	ep.logger.Info("%s", result.Message)
	return result
}

func (ep *EventProcessor) loadOrder(ctx context.Context, event Event) (*models.Order, error) {
	if ep.fetcher != nil {
		orderID := event.OrderID
		if orderID == "" && event.Order != nil {
			orderID = event.Order.ID
		}
		if orderID == "" {
			return nil, validation.ErrMissingOrderID
		}
		return ep.fetcher.FetchOrder(ctx, orderID)
	}
	if event.Order == nil {
		return nil, fmt.Errorf("event carries no order and no order fetcher is configured")
	}
	return event.Order, nil
}

func (ep *EventProcessor) processItem(ctx context.Context, order *models.Order, item models.LineItem, desired enrollment.State, email string) ItemResult {
	itemResult := ItemResult{
		LineItemID: item.ID,
		ProductID:  item.ProductID,
		Title:      item.Title,
	}

	courseID, ok := ep.resolver.Resolve(ctx, item.ProductID, item.Title)
	if !ok {
		ep.logger.Debug("Order %s: product %s (%q) has no course", order.ID, item.ProductID, item.Title)
		itemResult.Outcome = OutcomeNoCourse
		return itemResult
	}
	itemResult.CourseID = courseID

	outcome, err := ep.reconciler.Reconcile(ctx, enrollment.Request{
		Email:     email,
		FirstName: order.Customer.FirstName,
		LastName:  order.Customer.LastName,
		CourseID:  courseID,
		Desired:   desired,
	})
	itemResult.Outcome = outcome
	if err != nil {
		ep.logger.Error("Order %s: %s %s in course %s failed: %v", order.ID, desired, email, courseID, err)
		itemResult.Outcome = enrollment.OutcomeFailed
		itemResult.Error = err.Error()
	}
	return itemResult
}

func (ep *EventProcessor) export(ctx context.Context, topic string, order *models.Order, email string, item ItemResult) {
	if item.Outcome == OutcomeNoCourse {
		return
	}
	err := ep.exporter.Publish(ctx, export.EnrollmentEvent{
		OrderID:    order.ID,
		OrderTopic: topic,
		Email:      email,
		ProductID:  item.ProductID,
		CourseID:   item.CourseID,
		Outcome:    string(item.Outcome),
		Error:      item.Error,
	})
	if err != nil {
		ep.logger.Error("Order %s: export failed: %v", order.ID, err)
	}
}

func orderLabel(order *models.Order) string {
	if name := strings.TrimSpace(order.Name); name != "" {
		return name
	}
	return order.ID
}
