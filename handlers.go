package main

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type API struct {
	auth        *AuthService
	catalog     *CatalogService
	orders      *OrderService
	metrics     *Metrics
	enforceAuth bool
	log         *zap.Logger
}

func NewAPI(auth *AuthService, catalog *CatalogService, orders *OrderService, metrics *Metrics, enforceAuth bool, log *zap.Logger) *API {
	return &API{
		auth:        auth,
		catalog:     catalog,
		orders:      orders,
		metrics:     metrics,
		enforceAuth: enforceAuth,
		log:         log.Named("api"),
	}
}

// writeError maps service errors onto status codes.
func (a *API) writeError(c *gin.Context, err error) {
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error(), "field": vErr.Field})
	case errors.Is(err, ErrConflict), errors.Is(err, ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		a.log.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("requestId", c.GetString(requestIDKey)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// bindJSON decodes the body into dst. An empty body decodes to the zero
// value so the services report which field is missing.
func (a *API) bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	var maxErr *http.MaxBytesError
	var vErr *ValidationError
	switch {
	case errors.As(err, &maxErr):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error(), "field": vErr.Field})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
	}
	return false
}

func (a *API) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
}

func (a *API) notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

// ----- Auth -----

func (a *API) signup(c *gin.Context) {
	var req SignupInput
	if !a.bindJSON(c, &req) {
		return
	}
	// Under enforcement only an admin may create another admin.
	if a.enforceAuth && strings.TrimSpace(req.Role) == RoleAdmin && !callerIsAdmin(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
		return
	}
	user, err := a.auth.Signup(c.Request.Context(), req)
	if err != nil {
		a.writeError(c, err)
		return
	}
	a.metrics.Signups.Inc()
	c.JSON(http.StatusCreated, gin.H{"message": "User created successfully", "user": user})
}

func (a *API) login(c *gin.Context) {
	var req LoginInput
	if !a.bindJSON(c, &req) {
		return
	}
	res, err := a.auth.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			a.metrics.LoginsFailed.Inc()
		}
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "user": res.User, "token": res.Token})
}

// ----- Products -----

func (a *API) listProducts(c *gin.Context) {
	products, err := a.catalog.ListProducts(c.Request.Context())
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (a *API) getProduct(c *gin.Context) {
	p, err := a.catalog.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (a *API) createProduct(c *gin.Context) {
	var req ProductInput
	if !a.bindJSON(c, &req) {
		return
	}
	p, err := a.catalog.CreateProduct(c.Request.Context(), req)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (a *API) updateProduct(c *gin.Context) {
	var req ProductInput
	if !a.bindJSON(c, &req) {
		return
	}
	p, err := a.catalog.UpdateProduct(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (a *API) deleteProduct(c *gin.Context) {
	if err := a.catalog.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

// ----- Orders -----

func (a *API) placeOrder(c *gin.Context) {
	var req OrderInput
	if !a.bindJSON(c, &req) {
		return
	}
	o, err := a.orders.PlaceOrder(c.Request.Context(), req)
	if err != nil {
		a.writeError(c, err)
		return
	}
	a.metrics.OrdersPlaced.Inc()
	c.JSON(http.StatusCreated, gin.H{"message": "Order placed successfully", "orderId": o.ID.Hex(), "order": o})
}

func (a *API) listOrders(c *gin.Context) {
	orders, err := a.orders.ListOrders(c.Request.Context())
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (a *API) listCustomerOrders(c *gin.Context) {
	orders, err := a.orders.ListOrdersByCustomer(c.Request.Context(), c.Param("email"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (a *API) getOrder(c *gin.Context) {
	o, err := a.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (a *API) updateOrderStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status"`
	}
	if !a.bindJSON(c, &req) {
		return
	}
	o, err := a.orders.UpdateOrderStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (a *API) deleteOrder(c *gin.Context) {
	if err := a.orders.DeleteOrder(c.Request.Context(), c.Param("id")); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order deleted successfully"})
}
