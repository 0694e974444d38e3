package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"sickbeasts-storefront/internal/catalog"
	"sickbeasts-storefront/internal/domain"
	productsvc "sickbeasts-storefront/internal/service/product"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type productHandlers struct {
	svc    productService
	logger *zap.Logger
}

// list serves GET /api/products?featured=&limit=&sort=.
func (h *productHandlers) list(c *gin.Context) {
	var opts catalog.ListOptions
	if raw := strings.TrimSpace(c.Query("featured")); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "featured must be true or false"})
			return
		}
		opts.Featured = &featured
	}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		opts.Limit = limit
	}
	opts.Sort = c.Query("sort")

	products, err := h.svc.List(c.Request.Context(), opts)
	if errors.Is(err, catalog.ErrInvalidSort) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sort"})
		return
	}
	if err != nil {
		h.logger.Error("list products", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": toProductViews(products)})
}

// get serves GET /api/products/:id, or a slug lookup with ?by=slug.
func (h *productHandlers) get(c *gin.Context) {
	key := c.Param("id")
	var (
		product domain.Product
		err     error
	)
	switch c.DefaultQuery("by", "id") {
	case "id":
		product, err = h.svc.Get(c.Request.Context(), key)
	case "slug":
		product, err = h.svc.GetBySlug(c.Request.Context(), key)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "by must be id or slug"})
		return
	}
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	case errors.Is(err, catalog.ErrInvalidDocument):
		// A document the storefront cannot serve is treated as absent.
		h.logger.Warn("unservable product document", zap.String("key", key), zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	default:
		h.logger.Error("get product", zap.String("key", key), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch product"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": toProductView(product)})
}

// create serves POST /api/products. The body is a loose product document.
func (h *productHandlers) create(c *gin.Context) {
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil || fields == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	product, err := h.svc.Create(c.Request.Context(), fields)
	switch {
	case errors.Is(err, productsvc.ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields: title and price are required"})
		return
	case errors.Is(err, productsvc.ErrInvalidPrice), errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, productsvc.ErrSlugTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logger.Error("create product", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create product"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product": toProductView(product)})
}
