package main

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	SubjectOrderPlaced        = "orders.placed"
	SubjectOrderStatusUpdated = "orders.status_updated"
	SubjectOrderDeleted       = "orders.deleted"

	notifyTimeout = 30 * time.Second
)

type OrderStore interface {
	Create(ctx context.Context, o *Order) error
	// List returns every order when customerEmail is empty.
	List(ctx context.Context, customerEmail string) ([]Order, error)
	Get(ctx context.Context, id string) (*Order, error)
	UpdateStatus(ctx context.Context, id, status string) (*Order, error)
	Delete(ctx context.Context, id string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, subject string, message interface{}) error
}

type OrderNotifier interface {
	OrderPlaced(ctx context.Context, o Order) error
}

type OrderEvent struct {
	Type          string    `json:"type"`
	OrderID       string    `json:"orderId"`
	ProductID     string    `json:"productId,omitempty"`
	ProductName   string    `json:"productName,omitempty"`
	Price         Price     `json:"price"`
	CustomerEmail string    `json:"customerEmail,omitempty"`
	Status        string    `json:"status,omitempty"`
	At            time.Time `json:"at"`
}

type OrderService struct {
	orders   OrderStore
	events   EventPublisher // optional
	notifier OrderNotifier  // optional
	log      *zap.Logger
	wg       sync.WaitGroup
}

func NewOrderService(orders OrderStore, events EventPublisher, notifier OrderNotifier, log *zap.Logger) *OrderService {
	return &OrderService{
		orders:   orders,
		events:   events,
		notifier: notifier,
		log:      log.Named("orders"),
	}
}

func (s *OrderService) PlaceOrder(ctx context.Context, in OrderInput) (*Order, error) {
	if err := validateOrderInput(in); err != nil {
		return nil, err
	}

	o := &Order{
		ProductID:     strings.TrimSpace(in.ProductID),
		ProductName:   in.ProductName,
		Price:         *in.Price,
		CustomerName:  in.CustomerName,
		CustomerEmail: normalizeEmail(in.CustomerEmail),
		Phone:         in.Phone,
		AltPhone:      in.AltPhone,
		Address:       in.Address,
		Pincode:       in.Pincode,
		City:          in.City,
		Taluka:        in.Taluka,
		Status:        StatusPending,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, err
	}
	s.log.Info("order placed",
		zap.String("orderID", o.ID.Hex()),
		zap.String("productID", o.ProductID),
		zap.String("customerEmail", o.CustomerEmail),
	)

	s.publish(ctx, orderEvent(SubjectOrderPlaced, o))
	s.notifyPlaced(*o)
	return o, nil
}

// validateOrderInput names the first missing field, in request order.
func validateOrderInput(in OrderInput) error {
	required := []struct {
		field string
		value string
	}{
		{"productId", in.ProductID},
		{"productName", in.ProductName},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return missingField(r.field)
		}
	}
	if in.Price == nil {
		return missingField("price")
	}
	if *in.Price < 0 {
		return &ValidationError{Field: "price", Msg: "price must not be negative"}
	}
	required = []struct {
		field string
		value string
	}{
		{"customerName", in.CustomerName},
		{"customerEmail", in.CustomerEmail},
		{"phone", in.Phone},
		{"address", in.Address},
		{"pincode", in.Pincode},
		{"city", in.City},
		{"taluka", in.Taluka},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return missingField(r.field)
		}
	}
	return nil
}

func (s *OrderService) ListOrders(ctx context.Context) ([]Order, error) {
	return s.list(ctx, "")
}

// ListOrdersByCustomer matches emails the way accounts do: trimmed and
// lower-cased on both sides.
func (s *OrderService) ListOrdersByCustomer(ctx context.Context, email string) ([]Order, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, missingField("email")
	}
	return s.list(ctx, email)
}

func (s *OrderService) list(ctx context.Context, email string) ([]Order, error) {
	orders, err := s.orders.List(ctx, email)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []Order{}
	}
	return orders, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (*Order, error) {
	return s.orders.Get(ctx, id)
}

// UpdateOrderStatus stores status verbatim; there is no transition graph.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id, status string) (*Order, error) {
	if strings.TrimSpace(status) == "" {
		return nil, missingField("status")
	}
	o, err := s.orders.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.log.Info("order status updated", zap.String("orderID", id), zap.String("status", status))
	s.publish(ctx, orderEvent(SubjectOrderStatusUpdated, o))
	return o, nil
}

func (s *OrderService) DeleteOrder(ctx context.Context, id string) error {
	if err := s.orders.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("order deleted", zap.String("orderID", id))
	s.publish(ctx, OrderEvent{Type: SubjectOrderDeleted, OrderID: id, At: time.Now().UTC()})
	return nil
}

func orderEvent(subject string, o *Order) OrderEvent {
	return OrderEvent{
		Type:          subject,
		OrderID:       o.ID.Hex(),
		ProductID:     o.ProductID,
		ProductName:   o.ProductName,
		Price:         o.Price,
		CustomerEmail: o.CustomerEmail,
		Status:        o.Status,
		At:            time.Now().UTC(),
	}
}

func (s *OrderService) publish(ctx context.Context, evt OrderEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, evt.Type, evt); err != nil {
		s.log.Warn("order event not published", zap.String("subject", evt.Type), zap.String("orderID", evt.OrderID), zap.Error(err))
	}
}

// notifyPlaced mails the customer in the background so a slow SMTP server
// does not hold up checkout.
func (s *OrderService) notifyPlaced(o Order) {
	if s.notifier == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.OrderPlaced(ctx, o); err != nil {
			s.log.Warn("order confirmation not sent", zap.String("orderID", o.ID.Hex()), zap.Error(err))
		}
	}()
}

// Wait blocks until pending confirmation mails are done.
func (s *OrderService) Wait() {
	s.wg.Wait()
}
