package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"sickbeasts-storefront/internal/catalog"
	"sickbeasts-storefront/internal/domain"
	cartsvc "sickbeasts-storefront/internal/service/cart"
	newslettersvc "sickbeasts-storefront/internal/service/newsletter"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type productService interface {
	List(ctx context.Context, opts catalog.ListOptions) ([]domain.Product, error)
	Get(ctx context.Context, id string) (domain.Product, error)
	GetBySlug(ctx context.Context, slug string) (domain.Product, error)
	Create(ctx context.Context, fields map[string]interface{}) (domain.Product, error)
}

type newsletterService interface {
	Subscribe(ctx context.Context, in newslettersvc.SubscribeInput) (newslettersvc.Result, error)
	Unsubscribe(ctx context.Context, email string) (newslettersvc.Result, error)
	UpdatePreferences(ctx context.Context, email string, patch newslettersvc.PreferencesPatch) (newslettersvc.Result, error)
	ListSubscribers(ctx context.Context, in newslettersvc.ListInput) ([]domain.Subscriber, error)
}

type cartService interface {
	Session(ctx context.Context, id string) *cartsvc.Session
	Snapshot(sess *cartsvc.Session) cartsvc.View
	AddItem(ctx context.Context, sess *cartsvc.Session, in cartsvc.AddInput) (cartsvc.View, error)
	UpdateQuantity(sess *cartsvc.Session, in cartsvc.UpdateInput) cartsvc.View
	RemoveItem(sess *cartsvc.Session, productID, size string) cartsvc.View
	Toggle(sess *cartsvc.Session) cartsvc.View
	Clear(sess *cartsvc.Session) cartsvc.View
}

// Pinger is a dependency checked by /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps holds everything the router needs.
type Deps struct {
	ProductSvc    productService
	NewsletterSvc newsletterService
	CartSvc       cartService
	// ReadyChecks are pinged by /readyz, keyed by a name reported on failure.
	ReadyChecks map[string]Pinger
	// AdminJWTSecret enables signature checks on bearer tokens when set.
	AdminJWTSecret string
	CORSOrigins    []string
	CartSessionTTL time.Duration
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, deps Deps) (*gin.Engine, error) {
	if deps.ProductSvc == nil || deps.NewsletterSvc == nil || deps.CartSvc == nil {
		return nil, errors.New("httpserver: product, newsletter and cart services are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(requestLogger(logger), gin.Recovery())
	if len(deps.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.ReadyChecks))

	admin := requireBearer(deps.AdminJWTSecret)
	api := router.Group("/api")

	products := &productHandlers{svc: deps.ProductSvc, logger: logger}
	api.GET("/products", products.list)
	api.GET("/products/:id", products.get)
	api.POST("/products", admin, products.create)

	news := &newsletterHandlers{svc: deps.NewsletterSvc, logger: logger}
	api.POST("/newsletter", news.subscribe)
	api.DELETE("/newsletter", news.unsubscribe)
	api.PATCH("/newsletter", news.updatePreferences)
	api.GET("/newsletter/subscribers", admin, news.listSubscribers)

	carts := &cartHandlers{svc: deps.CartSvc, logger: logger, cookieMaxAge: int(deps.CartSessionTTL.Seconds())}
	api.GET("/cart", carts.get)
	api.DELETE("/cart", carts.clear)
	api.POST("/cart/items", carts.addItem)
	api.PATCH("/cart/items", carts.updateItem)
	api.DELETE("/cart/items", carts.removeItem)
	api.POST("/cart/toggle", carts.toggle)

	return router, nil
}

// requestLogger writes one structured line per request.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	logger = logger.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("request", fields...)
			return
		}
		logger.Info("request", fields...)
	}
}
