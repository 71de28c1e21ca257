package main

import (
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type routerDeps struct {
	api     *API
	tokens  *TokenIssuer
	metrics *Metrics
	limiter *RateLimiter
	log     *zap.Logger
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

// newEngine returns a bare engine that honours X-Forwarded-For only from
// the given proxies. An empty list means ClientIP is always the peer address.
func newEngine(trustedProxies []string) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(trustedProxies); err != nil {
		return nil, fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}
	return r, nil
}

func newRouter(cfg *Config, d routerDeps) (*gin.Engine, error) {
	r, err := newEngine(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}
	r.Use(
		recovery(d.log),
		requestID(),
		accessLog(d.log),
		d.metrics.Middleware(),
		cors.New(corsConfig(cfg.CORSOrigins)),
		limitBody(cfg.MaxBodyBytes),
		authenticate(d.tokens),
	)
	r.NoRoute(d.api.notFound)

	r.GET("/health", d.api.health)
	r.GET("/metrics", d.metrics.Handler())

	admin := requireAdmin(cfg.AuthEnforce)
	api := r.Group("/api")
	{
		// Auth
		api.POST("/signup", d.limiter.Middleware(), d.api.signup)
		api.POST("/login", d.limiter.Middleware(), d.api.login)

		// Products
		api.GET("/products", d.api.listProducts)
		api.GET("/products/:id", d.api.getProduct)
		api.POST("/products", admin, d.api.createProduct)
		api.PUT("/products/:id", admin, d.api.updateProduct)
		api.DELETE("/products/:id", admin, d.api.deleteProduct)

		// Orders
		api.POST("/orders", d.api.placeOrder)
		api.GET("/orders", admin, d.api.listOrders)
		api.GET("/orders/customer/:email", d.api.listCustomerOrders)
		api.GET("/orders/:id", d.api.getOrder)
		api.PUT("/orders/:id/status", admin, d.api.updateOrderStatus)
		api.DELETE("/orders/:id", admin, d.api.deleteOrder)
	}
	return r, nil
}
