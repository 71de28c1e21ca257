package main

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var testLogger = zap.NewNop()

// ----- Stores -----

type memUserStore struct {
	mu    sync.Mutex
	users []User
}

func (s *memUserStore) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return ErrEmailTaken
		}
	}
	u.ID = primitive.NewObjectID()
	u.CreatedAt = now()
	s.users = append(s.users, *u)
	return nil
}

func (s *memUserStore) FindByEmail(_ context.Context, email string) (*User, error) {
	return s.find(func(u User) bool { return u.Email == email })
}

func (s *memUserStore) FindByEmailAndRole(_ context.Context, email, role string) (*User, error) {
	return s.find(func(u User) bool { return u.Email == email && u.Role == role })
}

func (s *memUserStore) find(match func(User) bool) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *memUserStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// memProductStore keeps insertion order; List reverses it. afterList runs
// once the snapshot is taken, before List returns.
type memProductStore struct {
	mu        sync.Mutex
	products  []Product
	afterList func()
}

func (s *memProductStore) List(context.Context) ([]Product, error) {
	s.mu.Lock()
	out := make([]Product, 0, len(s.products))
	for i := len(s.products) - 1; i >= 0; i-- {
		out = append(out, s.products[i])
	}
	hook := s.afterList
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	return out, nil
}

func (s *memProductStore) index(id string) int {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return -1
	}
	for i, p := range s.products {
		if p.ID == oid {
			return i
		}
	}
	return -1
}

func (s *memProductStore) Get(_ context.Context, id string) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return nil, ErrProductNotFound
	}
	p := s.products[i]
	return &p, nil
}

func (s *memProductStore) Create(_ context.Context, p *Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = primitive.NewObjectID()
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt
	s.products = append(s.products, *p)
	return nil
}

func (s *memProductStore) Update(_ context.Context, id string, in ProductInput) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return nil, ErrProductNotFound
	}
	p := &s.products[i]
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.DetailedDescription != nil {
		p.DetailedDescription = *in.DetailedDescription
	}
	if in.MainImage != nil {
		p.MainImage = *in.MainImage
	}
	if in.SubImages != nil {
		p.SubImages = in.SubImages
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	p.UpdatedAt = now()
	out := *p
	return &out, nil
}

func (s *memProductStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return ErrProductNotFound
	}
	s.products = append(s.products[:i], s.products[i+1:]...)
	return nil
}

type memOrderStore struct {
	mu     sync.Mutex
	orders []Order
}

func (s *memOrderStore) Create(_ context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o.ID = primitive.NewObjectID()
	o.CreatedAt = now()
	o.UpdatedAt = o.CreatedAt
	s.orders = append(s.orders, *o)
	return nil
}

func (s *memOrderStore) List(_ context.Context, customerEmail string) ([]Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Order
	for i := len(s.orders) - 1; i >= 0; i-- {
		if customerEmail == "" || s.orders[i].CustomerEmail == customerEmail {
			out = append(out, s.orders[i])
		}
	}
	return out, nil
}

func (s *memOrderStore) index(id string) int {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return -1
	}
	for i, o := range s.orders {
		if o.ID == oid {
			return i
		}
	}
	return -1
}

func (s *memOrderStore) Get(_ context.Context, id string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return nil, ErrOrderNotFound
	}
	o := s.orders[i]
	return &o, nil
}

func (s *memOrderStore) UpdateStatus(_ context.Context, id, status string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return nil, ErrOrderNotFound
	}
	s.orders[i].Status = status
	s.orders[i].UpdatedAt = now()
	o := s.orders[i]
	return &o, nil
}

func (s *memOrderStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return ErrOrderNotFound
	}
	s.orders = append(s.orders[:i], s.orders[i+1:]...)
	return nil
}

// ----- Cache -----

type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	gets    int
	failAll bool
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.failAll {
		return nil, errors.New("connection refused")
	}
	v, ok := c.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failAll {
		return errors.New("connection refused")
	}
	c.entries[key] = value
	return nil
}

func (c *memCache) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failAll {
		return 0, errors.New("connection refused")
	}
	n, _ := strconv.ParseInt(string(c.entries[key]), 10, 64)
	n++
	c.entries[key] = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// ----- Events and mail -----

type MockEventPublisher struct{ mock.Mock }

func (m *MockEventPublisher) Publish(ctx context.Context, subject string, message interface{}) error {
	args := m.Called(ctx, subject, message)
	return args.Error(0)
}

type MockOrderNotifier struct{ mock.Mock }

func (m *MockOrderNotifier) OrderPlaced(ctx context.Context, o Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

// ----- Builders -----

func strPtr(s string) *string { return &s }

func pricePtr(p float64) *Price {
	v := Price(p)
	return &v
}

func validProductInput() ProductInput {
	return ProductInput{
		Name:                strPtr("Kanjivaram Silk"),
		Description:         strPtr("Handwoven silk saree"),
		DetailedDescription: strPtr("Pure mulberry silk with zari border"),
		MainImage:           strPtr("data:image/png;base64,AAAA"),
		SubImages:           []string{"img1", "img2", "img3"},
		Price:               pricePtr(500),
	}
}

func validOrderInput() OrderInput {
	return OrderInput{
		ProductID:     primitive.NewObjectID().Hex(),
		ProductName:   "Kanjivaram Silk",
		Price:         pricePtr(500),
		CustomerName:  "Priya",
		CustomerEmail: "priya@example.com",
		Phone:         "9876543210",
		Address:       "12 Temple Street",
		Pincode:       "600001",
		City:          "Chennai",
		Taluka:        "Egmore",
	}
}
