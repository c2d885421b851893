package processors

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursebridge/internal/logger"
	"coursebridge/internal/mappings"
	"coursebridge/internal/models"
	"coursebridge/internal/services/courses"
	"coursebridge/internal/services/enrollment"
	"coursebridge/internal/services/lms"
	"coursebridge/internal/worker/processors/export"
)

type stubPlatform struct {
	users       map[string]*lms.User
	enrolled    map[string]bool
	calls       []string
	enrollErrOn string
}

func newStubPlatform() *stubPlatform {
	return &stubPlatform{users: map[string]*lms.User{}, enrolled: map[string]bool{}}
}

func (p *stubPlatform) FindUserByEmail(_ context.Context, email string) (*lms.User, error) {
	p.calls = append(p.calls, "find "+email)
	return p.users[strings.ToLower(email)], nil
}

func (p *stubPlatform) CreateUser(_ context.Context, nu lms.NewUser) (*lms.User, error) {
	p.calls = append(p.calls, "create "+nu.Email)
	u := &lms.User{ID: "u-" + nu.Email, Email: nu.Email}
	p.users[strings.ToLower(nu.Email)] = u
	return u, nil
}

func (p *stubPlatform) Enroll(_ context.Context, userID, courseID string) error {
	p.calls = append(p.calls, "enroll "+userID+" "+courseID)
	if courseID == p.enrollErrOn {
		return &lms.APIError{Method: http.MethodPost, StatusCode: http.StatusInternalServerError}
	}
	p.enrolled[userID+"/"+courseID] = true
	return nil
}

func (p *stubPlatform) Unenroll(_ context.Context, userID, courseID string) error {
	p.calls = append(p.calls, "unenroll "+userID+" "+courseID)
	if !p.enrolled[userID+"/"+courseID] {
		return &lms.APIError{Method: http.MethodDelete, StatusCode: http.StatusNotFound}
	}
	delete(p.enrolled, userID+"/"+courseID)
	return nil
}

type stubFetcher struct {
	orders map[string]*models.Order
	err    error
	calls  int
}

func (f *stubFetcher) FetchOrder(_ context.Context, orderID string) (*models.Order, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	order, ok := f.orders[orderID]
	if !ok {
		return nil, errors.New("order not found")
	}
	return order, nil
}

type countingResolver struct {
	inner CourseResolver
	calls int
}

func (r *countingResolver) Resolve(ctx context.Context, productID, title string) (string, bool) {
	r.calls++
	return r.inner.Resolve(ctx, productID, title)
}

type capturingPublisher struct {
	events []export.EnrollmentEvent
}

func (p *capturingPublisher) Publish(_ context.Context, event export.EnrollmentEvent) error {
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

type harness struct {
	mappings  *mappings.Mappings
	platform  *stubPlatform
	resolver  *countingResolver
	publisher *capturingPublisher
	processor *EventProcessor
}

func newHarness(t *testing.T, fetcher OrderFetcher) *harness {
	t.Helper()
	log := logger.NewNop()
	m := mappings.New(mappings.NewFileBackend(t.TempDir()), log)
	h := &harness{
		mappings:  m,
		platform:  newStubPlatform(),
		resolver:  &countingResolver{inner: courses.NewResolver(m, log)},
		publisher: &capturingPublisher{},
	}
	h.processor = NewEventProcessor(log, fetcher, h.resolver, enrollment.NewReconciler(h.platform, log), h.publisher)
	return h
}

func subscriptionOrder(id string, items ...models.LineItem) *models.Order {
	return &models.Order{
		ID:              id,
		Name:            "#" + id,
		FinancialStatus: "paid",
		Tags:            []string{"subscription"},
		Customer:        models.Customer{ID: "c1", Email: "a@x.com", FirstName: "Ada"},
		LineItems:       items,
	}
}

func TestProcessEnrollsNewCustomer(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	require.NoError(t, h.mappings.Products.Set(ctx, "111", "courseA"))

	result := h.processor.Process(ctx, Event{
		Topic:   TopicOrderCreate,
		OrderID: "1001",
		Order:   subscriptionOrder("1001", models.LineItem{ID: "1", ProductID: "111", Title: "Course A"}),
	})

	assert.True(t, result.Processed)
	assert.Equal(t, 0, result.Failed)
	require.Len(t, result.Items, 1)
	assert.Equal(t, enrollment.OutcomeEnrolled, result.Items[0].Outcome)
	assert.Equal(t, "courseA", result.Items[0].CourseID)

	assert.Contains(t, h.platform.calls, "create a@x.com")
	assert.True(t, h.platform.enrolled["u-a@x.com/courseA"])

	require.Len(t, h.publisher.events, 1)
	assert.Equal(t, "enrolled", h.publisher.events[0].Outcome)
	assert.Equal(t, TopicOrderCreate, h.publisher.events[0].OrderTopic)
}

func TestProcessSkipsNonSubscriptionOrder(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	require.NoError(t, h.mappings.Products.Set(ctx, "111", "courseA"))

	order := subscriptionOrder("1002", models.LineItem{ProductID: "111"})
	order.Tags = []string{"gift-card"}

	result := h.processor.Process(ctx, Event{Topic: TopicOrderPaid, OrderID: "1002", Order: order})

	assert.False(t, result.Processed)
	assert.Equal(t, MessageNotSubscription, result.Message)
	assert.Equal(t, 0, h.resolver.calls)
	assert.Empty(t, h.platform.calls)
}

func TestProcessCancellationWithoutMapping(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	require.NoError(t, h.mappings.Products.Set(ctx, "111", "courseA"))

	result := h.processor.Process(ctx, Event{
		Topic:   TopicOrderCancelled,
		OrderID: "1003",
		Order: subscriptionOrder("1003",
			models.LineItem{ID: "1", ProductID: "222", Title: "Sticker"},
			models.LineItem{ID: "2", ProductID: "111", Title: "Course A"},
		),
	})

	assert.True(t, result.Processed)
	require.Len(t, result.Items, 2)
	assert.Equal(t, OutcomeNoCourse, result.Items[0].Outcome)
	// The customer does not exist upstream, so unenroll is already satisfied.
	assert.Equal(t, enrollment.OutcomeUserAbsent, result.Items[1].Outcome)
	assert.Equal(t, []string{"find a@x.com"}, h.platform.calls)
}

func TestProcessResolvesBundleByTitle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	require.NoError(t, h.mappings.SetBundleName(ctx, "summer bundle", "courseS"))

	result := h.processor.Process(ctx, Event{
		Topic:   TopicOrderPaid,
		OrderID: "1004",
		Order:   subscriptionOrder("1004", models.LineItem{ID: "1", ProductID: "999", Title: "Summer Bundle Pack"}),
	})

	require.Len(t, result.Items, 1)
	assert.Equal(t, "courseS", result.Items[0].CourseID)
	assert.Equal(t, enrollment.OutcomeEnrolled, result.Items[0].Outcome)
}

func TestProcessContinuesAfterItemFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	require.NoError(t, h.mappings.Products.Set(ctx, "1", "broken"))
	require.NoError(t, h.mappings.Products.Set(ctx, "2", "courseB"))
	h.platform.enrollErrOn = "broken"

	result := h.processor.Process(ctx, Event{
		Topic:   TopicOrderCreate,
		OrderID: "1005",
		Order: subscriptionOrder("1005",
			models.LineItem{ID: "a", ProductID: "1"},
			models.LineItem{ID: "b", ProductID: "2"},
		),
	})

	assert.True(t, result.Processed)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Items, 2)
	assert.Equal(t, enrollment.OutcomeFailed, result.Items[0].Outcome)
	assert.NotEmpty(t, result.Items[0].Error)
	assert.Equal(t, enrollment.OutcomeEnrolled, result.Items[1].Outcome)
	assert.Len(t, h.publisher.events, 2)
}

func TestProcessSkipsUnpaidOrderOnEnroll(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	require.NoError(t, h.mappings.Products.Set(ctx, "111", "courseA"))

	order := subscriptionOrder("1006", models.LineItem{ProductID: "111"})
	order.FinancialStatus = "pending"

	result := h.processor.Process(ctx, Event{Topic: TopicOrderCreate, OrderID: "1006", Order: order})
	assert.Equal(t, MessageNotPaid, result.Message)
	assert.Empty(t, h.platform.calls)

	// Refunds unenroll regardless of financial status.
	result = h.processor.Process(ctx, Event{Topic: TopicOrderRefunded, OrderID: "1006", Order: order})
	assert.True(t, result.Processed)
}

func TestProcessUsesFetchedOrder(t *testing.T) {
	ctx := context.Background()
	fetcher := &stubFetcher{orders: map[string]*models.Order{
		"1007": subscriptionOrder("1007", models.LineItem{ID: "1", ProductID: "111"}),
	}}
	h := newHarness(t, fetcher)
	require.NoError(t, h.mappings.Products.Set(ctx, "111", "courseA"))

	// The webhook body is partial; the fetched order is authoritative.
	result := h.processor.Process(ctx, Event{Topic: TopicOrderPaid, OrderID: "1007", Order: &models.Order{ID: "1007"}})

	assert.Equal(t, 1, fetcher.calls)
	assert.True(t, result.Processed)
	require.Len(t, result.Items, 1)
	assert.Equal(t, enrollment.OutcomeEnrolled, result.Items[0].Outcome)
}

func TestProcessFetchFailureIsHandled(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &stubFetcher{err: errors.New("shopify down")})

	result := h.processor.Process(ctx, Event{Topic: TopicOrderPaid, OrderID: "1008"})

	assert.False(t, result.Processed)
	assert.Contains(t, result.Message, "Failed to fetch order")
	assert.Equal(t, 0, h.resolver.calls)
	assert.Empty(t, h.platform.calls)
}

func TestProcessUnhandledTopic(t *testing.T) {
	h := newHarness(t, nil)

	result := h.processor.Process(context.Background(), Event{Topic: "orders/updated", OrderID: "1"})
	assert.False(t, result.Processed)
	assert.Equal(t, "Topic orders/updated not handled.", result.Message)
}

func TestProcessRejectsOrderWithoutEmail(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	order := subscriptionOrder("1009", models.LineItem{ProductID: "111"})
	order.Customer.Email = ""

	result := h.processor.Process(ctx, Event{Topic: TopicOrderPaid, OrderID: "1009", Order: order})
	assert.False(t, result.Processed)
	assert.Contains(t, result.Message, "Invalid order")
	assert.Equal(t, 0, h.resolver.calls)
}

func TestEventFromWebhook(t *testing.T) {
	event, err := EventFromWebhook(TopicOrderPaid, "wh-1", []byte(`{"id":42,"tags":"subscription","line_items":[{"id":1,"product_id":111,"title":"A"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "42", event.OrderID)
	require.NotNil(t, event.Order)
	assert.Equal(t, "111", event.Order.LineItems[0].ProductID)

	event, err = EventFromWebhook(TopicRefundCreate, "wh-2", []byte(`{"id":7,"order_id":42}`))
	require.NoError(t, err)
	assert.Equal(t, "42", event.OrderID)
	assert.Nil(t, event.Order)

	_, err = EventFromWebhook(TopicOrderPaid, "wh-3", []byte(`{}`))
	assert.Error(t, err)
}

func TestDesiredState(t *testing.T) {
	testCases := []struct {
		topic    string
		expected enrollment.State
		ok       bool
	}{
		{TopicOrderCreate, enrollment.Enrolled, true},
		{TopicOrderPaid, enrollment.Enrolled, true},
		{TopicOrderCancelled, enrollment.Unenrolled, true},
		{TopicOrderRefunded, enrollment.Unenrolled, true},
		{TopicRefundCreate, enrollment.Unenrolled, true},
		{"products/update", 0, false},
	}

	for _, tc := range testCases {
		state, ok := DesiredState(tc.topic)
		assert.Equal(t, tc.ok, ok, tc.topic)
		if ok {
			assert.Equal(t, tc.expected, state, tc.topic)
		}
	}
}
