package httpserver

import (
	"context"
	"time"

	"mmdr-storefront/internal/domain"
	productrepo "mmdr-storefront/internal/repository/product"
	salerepo "mmdr-storefront/internal/repository/sale"
	productsvc "mmdr-storefront/internal/service/product"
	reviewsvc "mmdr-storefront/internal/service/review"
	salesvc "mmdr-storefront/internal/service/sale"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ProductService interface {
	List(ctx context.Context, f productrepo.ListFilter) ([]domain.Product, int, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, in productsvc.Input) (*domain.Product, error)
	Update(ctx context.Context, id string, in productsvc.Input) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*domain.ProductStats, error)
}

type SaleService interface {
	Create(ctx context.Context, in domain.Sale) (*domain.Sale, error)
	List(ctx context.Context, f salerepo.ListFilter) ([]domain.Sale, int, error)
	Get(ctx context.Context, id string) (*domain.Sale, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Sale, error)
	UpdateStatus(ctx context.Context, id string, status domain.SaleStatus, notes string) (*domain.Sale, error)
	Stats(ctx context.Context, rg salerepo.Range) (*salesvc.StatsReport, error)
	TopProducts(ctx context.Context, limit int, rg salerepo.Range) ([]domain.TopProduct, error)
	ByPeriod(ctx context.Context, from, to time.Time, g domain.Granularity) ([]domain.PeriodBucket, error)
	Dashboard(ctx context.Context, now time.Time) (*domain.Dashboard, error)
}

type ReviewService interface {
	List(ctx context.Context, productID string) (*reviewsvc.Listing, error)
	Create(ctx context.Context, productID string, in reviewsvc.CreateInput) (*domain.Review, error)
	Update(ctx context.Context, id string, in reviewsvc.UpdateInput) (*domain.Review, error)
	Delete(ctx context.Context, id string) error
	Moderate(ctx context.Context, id string, approved bool) (*domain.Review, error)
}

// Deps groups the services the router exposes. A nil service leaves its routes unregistered.
type Deps struct {
	Products ProductService
	Sales    SaleService
	Reviews  ReviewService
	Now      func() time.Time
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, db Pinger, deps Deps, corsOrigins []string) *gin.Engine {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	router := gin.New()
	router.Use(gin.Recovery(), accessLog(logger))
	if len(corsOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     corsOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	api := router.Group("/api")
	if deps.Products != nil {
		h := &productHandler{svc: deps.Products, logger: logger}
		products := api.Group("/products")
		products.GET("", h.list)
		products.GET("/stats", h.stats)
		products.GET("/:id", h.get)
		products.POST("", h.create)
		products.PUT("/:id", h.update)
		products.DELETE("/:id", h.delete)
	}
	if deps.Sales != nil {
		h := &saleHandler{svc: deps.Sales, logger: logger, now: deps.Now}
		sales := api.Group("/sales")
		sales.POST("", h.create)
		sales.GET("", h.list)
		sales.GET("/orden/:numeroOrden", h.getByOrderNumber)
		sales.GET("/analytics/estadisticas", h.stats)
		sales.GET("/analytics/productos-mas-vendidos", h.topProducts)
		sales.GET("/analytics/ventas-por-periodo", h.byPeriod)
		sales.GET("/analytics/dashboard", h.dashboard)
		sales.GET("/:id", h.get)
		sales.PUT("/:id/estado", h.updateStatus)
	}
	if deps.Reviews != nil {
		h := &reviewHandler{svc: deps.Reviews, logger: logger}
		reviews := api.Group("/reviews")
		reviews.GET("/product/:productId", h.list)
		reviews.POST("/product/:productId", h.create)
		reviews.PUT("/:reviewId", h.update)
		reviews.DELETE("/:reviewId", h.delete)
		reviews.PATCH("/:reviewId/moderate", h.moderate)
	}

	return router
}

func accessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		if c.Writer.Status() >= 500 {
			logger.Error("request", fields...)
			return
		}
		logger.Info("request", fields...)
	}
}
