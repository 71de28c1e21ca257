package main

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"
)

const (
	minSubImages = 3

	// Cached entries are keyed by the catalog generation, which every write
	// bumps. A read that raced a write can only fill a retired generation.
	catalogGenKey     = "catalog:gen"
	catalogListKey    = "catalog:products:"
	catalogProductKey = "catalog:product:"
)

type ProductStore interface {
	List(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id string) (*Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, id string, in ProductInput) (*Product, error)
	Delete(ctx context.Context, id string) error
}

type CatalogService struct {
	products ProductStore
	cache    Cache // nil when caching is off
	log      *zap.Logger
}

func NewCatalogService(products ProductStore, cache Cache, log *zap.Logger) *CatalogService {
	return &CatalogService{products: products, cache: cache, log: log.Named("catalog")}
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]Product, error) {
	gen, cacheable := s.generation(ctx)
	key := catalogListKey + gen
	var cached []Product
	if cacheable && s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []Product{}
	}
	if cacheable {
		s.cacheSet(ctx, key, products)
	}
	return products, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id string) (*Product, error) {
	gen, cacheable := s.generation(ctx)
	key := catalogProductKey + gen + ":" + id
	var cached Product
	if cacheable && s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}
	p, err := s.products.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if cacheable {
		s.cacheSet(ctx, key, p)
	}
	return p, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	required := []struct {
		field string
		value *string
	}{
		{"name", in.Name},
		{"description", in.Description},
		{"detailedDescription", in.DetailedDescription},
		{"mainImage", in.MainImage},
	}
	for _, r := range required {
		if r.value == nil || strings.TrimSpace(*r.value) == "" {
			return nil, missingField(r.field)
		}
	}
	if in.Price == nil {
		return nil, missingField("price")
	}
	if in.SubImages == nil {
		in.SubImages = []string{}
	}
	if err := validateProductValues(in); err != nil {
		return nil, err
	}

	p := &Product{
		Name:                *in.Name,
		Description:         *in.Description,
		DetailedDescription: *in.DetailedDescription,
		MainImage:           *in.MainImage,
		SubImages:           in.SubImages,
		Price:               *in.Price,
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	s.log.Info("product created", zap.String("productID", p.ID.Hex()), zap.String("name", p.Name))
	return p, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id string, in ProductInput) (*Product, error) {
	blank := []struct {
		field string
		value *string
	}{
		{"name", in.Name},
		{"description", in.Description},
		{"detailedDescription", in.DetailedDescription},
		{"mainImage", in.MainImage},
	}
	for _, b := range blank {
		if b.value != nil && strings.TrimSpace(*b.value) == "" {
			return nil, &ValidationError{Field: b.field, Msg: b.field + " cannot be empty"}
		}
	}
	if err := validateProductValues(in); err != nil {
		return nil, err
	}

	p, err := s.products.Update(ctx, id, in)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	s.log.Info("product updated", zap.String("productID", id))
	return p, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.log.Info("product deleted", zap.String("productID", id))
	return nil
}

// validateProductValues checks the fields that are present.
func validateProductValues(in ProductInput) error {
	if in.Price != nil && *in.Price < 0 {
		return &ValidationError{Field: "price", Msg: "price must not be negative"}
	}
	if in.SubImages != nil {
		n := 0
		for _, img := range in.SubImages {
			if strings.TrimSpace(img) != "" {
				n++
			}
		}
		if n < minSubImages {
			return &ValidationError{Field: "subImages", Msg: "at least 3 sub images are required"}
		}
	}
	return nil
}

// generation reads the current catalog generation. It reports false when
// there is no cache or the cache cannot be read.
func (s *CatalogService) generation(ctx context.Context) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	data, err := s.cache.Get(ctx, catalogGenKey)
	switch {
	case err == nil:
		return string(data), true
	case errors.Is(err, ErrCacheMiss):
		return "0", true
	default:
		s.log.Warn("cache read failed", zap.String("key", catalogGenKey), zap.Error(err))
		return "", false
	}
}

func (s *CatalogService) cacheGet(ctx context.Context, key string, dst any) bool {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			s.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		s.log.Warn("cache entry unreadable", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *CatalogService) cacheSet(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data); err != nil {
		s.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// invalidate retires every cached entry by moving to a new generation.
// Retired entries expire on their TTL.
func (s *CatalogService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	gen, err := s.cache.Incr(ctx, catalogGenKey)
	if err != nil {
		s.log.Warn("cache invalidation failed", zap.String("key", catalogGenKey), zap.Error(err))
		return
	}
	s.log.Debug("catalog generation bumped", zap.Int64("generation", gen))
}
