package httpserver

import (
	"errors"
	"net/http"
	"strings"

	cartsvc "sickbeasts-storefront/internal/service/cart"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const cartCookieName = "cart_session"

type cartHandlers struct {
	svc          cartService
	logger       *zap.Logger
	cookieMaxAge int
}

// session resolves the caller's cart session and refreshes its cookie.
func (h *cartHandlers) session(c *gin.Context) *cartsvc.Session {
	id, _ := c.Cookie(cartCookieName)
	sess := h.svc.Session(c.Request.Context(), id)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cartCookieName, sess.ID, h.cookieMaxAge, "/", "", false, true)
	return sess
}

func (h *cartHandlers) respond(c *gin.Context, status int, view cartsvc.View) {
	c.JSON(status, gin.H{"cart": toCartView(view)})
}

func (h *cartHandlers) get(c *gin.Context) {
	sess := h.session(c)
	h.respond(c, http.StatusOK, h.svc.Snapshot(sess))
}

func (h *cartHandlers) addItem(c *gin.Context) {
	var in cartsvc.AddInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	if strings.TrimSpace(in.ProductID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "productId required"})
		return
	}
	sess := h.session(c)
	view, err := h.svc.AddItem(c.Request.Context(), sess, in)
	switch {
	case errors.Is(err, cartsvc.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	case errors.Is(err, cartsvc.ErrInvalidQuantity),
		errors.Is(err, cartsvc.ErrSizeRequired),
		errors.Is(err, cartsvc.ErrSizeUnavailable),
		errors.Is(err, cartsvc.ErrOutOfStock):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logger.Error("add cart item", zap.String("session", sess.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add item to cart"})
		return
	}
	h.respond(c, http.StatusOK, view)
}

func (h *cartHandlers) updateItem(c *gin.Context) {
	var in cartsvc.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	if strings.TrimSpace(in.ProductID) == "" || strings.TrimSpace(in.Size) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "productId and size required"})
		return
	}
	sess := h.session(c)
	h.respond(c, http.StatusOK, h.svc.UpdateQuantity(sess, in))
}

func (h *cartHandlers) removeItem(c *gin.Context) {
	productID := strings.TrimSpace(c.Query("productId"))
	size := strings.TrimSpace(c.Query("size"))
	if productID == "" || size == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "productId and size required"})
		return
	}
	sess := h.session(c)
	h.respond(c, http.StatusOK, h.svc.RemoveItem(sess, productID, size))
}

func (h *cartHandlers) toggle(c *gin.Context) {
	sess := h.session(c)
	h.respond(c, http.StatusOK, h.svc.Toggle(sess))
}

func (h *cartHandlers) clear(c *gin.Context) {
	sess := h.session(c)
	h.respond(c, http.StatusOK, h.svc.Clear(sess))
}
