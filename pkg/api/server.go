package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/expresskart/marketplace/pkg/config"
	"github.com/expresskart/marketplace/pkg/models"
	"github.com/expresskart/marketplace/pkg/order"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Server exposes the order subsystem over HTTP. Identity arrives in
// X-User-ID/X-User-Role headers set by the upstream auth layer; this
// service trusts them and only enforces ownership and lifecycle rules.
type Server struct {
	config  *config.Config
	logger  *zap.Logger
	router  *gin.Engine
	service *order.Service
}

func NewServer(cfg *config.Config, logger *zap.Logger, service *order.Service) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger))

	s := &Server{
		config:  cfg,
		logger:  logger,
		router:  router,
		service: service,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	v1.Use(identityMiddleware())
	{
		orders := v1.Group("/orders")
		{
			orders.POST("", s.createOrder)
			orders.GET("", s.listOrders)
			orders.GET("/:id", s.getOrder)
			orders.PUT("/:id/status", s.updateOrderStatus)
			orders.POST("/:id/cancel", s.cancelOrder)
		}
	}

	// Swagger
	s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.logger.Info("Order API starting", zap.String("address", addr))
	return s.router.Run(addr)
}

// Router is exposed for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

const actorKey = "actor"

// identityMiddleware lifts the caller identity out of the trusted headers.
func identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-User-ID")
		role, err := models.ParseRole(c.GetHeader("X-User-Role"))
		if id == "" || err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed identity"})
			return
		}
		c.Set(actorKey, models.Actor{ID: id, Role: role})
		c.Next()
	}
}

func actorFrom(c *gin.Context) models.Actor {
	return c.MustGet(actorKey).(models.Actor)
}

type createOrderRequest struct {
	Items []struct {
		ProductID string `json:"product_id" binding:"required"`
		Quantity  int32  `json:"quantity" binding:"required"`
	} `json:"items" binding:"required"`
	Shipping      float64                 `json:"shipping"`
	Discount      float64                 `json:"discount"`
	PaymentMethod string                  `json:"payment_method"`
	Address       models.Address          `json:"address"`
	Customer      models.CustomerSnapshot `json:"customer"`
}

func (s *Server) createOrder(c *gin.Context) {
	actor := actorFrom(c)
	if actor.Role != models.RoleCustomer {
		c.JSON(http.StatusForbidden, gin.H{"error": "only customers can place orders"})
		return
	}

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items := make([]order.CreateItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.CreateItem{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	o, err := s.service.Create(c.Request.Context(), order.CreateRequest{
		CustomerID:    actor.ID,
		Customer:      req.Customer,
		Address:       req.Address,
		PaymentMethod: req.PaymentMethod,
		Items:         items,
		Shipping:      req.Shipping,
		Discount:      req.Discount,
	})
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"order": o})
}

func (s *Server) listOrders(c *gin.Context) {
	actor := actorFrom(c)
	ctx := c.Request.Context()

	var (
		orders []models.Order
		err    error
	)
	switch actor.Role {
	case models.RoleCustomer:
		orders, err = s.service.ListForCustomer(ctx, actor.ID)
	case models.RoleVendor:
		orders, err = s.service.ListForVendor(ctx, actor.ID)
	case models.RoleAdmin:
		orders, err = s.service.ListAll(ctx, actor)
	}
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"total":  len(orders),
	})
}

func (s *Server) getOrder(c *gin.Context) {
	o, err := s.service.Get(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": o})
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (s *Server) updateOrderStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	o, err := s.service.Transition(c.Request.Context(), c.Param("id"), req.Status, actorFrom(c))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": o})
}

func (s *Server) cancelOrder(c *gin.Context) {
	o, err := s.service.RequestCancellation(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": o})
}

func (s *Server) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, order.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, order.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, order.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, order.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		s.logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
