package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"sickbeasts-storefront/internal/domain"
	newslettersvc "sickbeasts-storefront/internal/service/newsletter"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type newsletterHandlers struct {
	svc    newsletterService
	logger *zap.Logger
}

type subscribeRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Source    string `json:"source"`
}

type preferencesRequest struct {
	Email       string                          `json:"email"`
	Preferences *newslettersvc.PreferencesPatch `json:"preferences"`
}

// newsletterError maps service errors onto status codes and client messages.
func (h *newsletterHandlers) newsletterError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, newslettersvc.ErrEmailRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email is required"})
	case errors.Is(err, newslettersvc.ErrInvalidEmail):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email address"})
	case errors.Is(err, newslettersvc.ErrPreferencesRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Preferences are required"})
	case errors.Is(err, newslettersvc.ErrEmailNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email not found in newsletter list"})
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("newsletter "+op, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + op})
	}
}

func (h *newsletterHandlers) subscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	res, err := h.svc.Subscribe(c.Request.Context(), newslettersvc.SubscribeInput(req))
	if err != nil {
		h.newsletterError(c, "subscribe to newsletter", err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *newsletterHandlers) unsubscribe(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email is required"})
		return
	}
	res, err := h.svc.Unsubscribe(c.Request.Context(), email)
	if err != nil {
		h.newsletterError(c, "unsubscribe from newsletter", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *newsletterHandlers) updatePreferences(c *gin.Context) {
	var req preferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email is required"})
		return
	}
	if req.Preferences == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Preferences are required"})
		return
	}
	res, err := h.svc.UpdatePreferences(c.Request.Context(), req.Email, *req.Preferences)
	if err != nil {
		h.newsletterError(c, "update newsletter preferences", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// listSubscribers serves GET /api/newsletter/subscribers?status=&page=&pageSize=.
func (h *newsletterHandlers) listSubscribers(c *gin.Context) {
	page, err := optionalInt(c.Query("page"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page must be an integer"})
		return
	}
	pageSize, err := optionalInt(c.Query("pageSize"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pageSize must be an integer"})
		return
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = newslettersvc.DefaultPageSize
	}
	subs, err := h.svc.ListSubscribers(c.Request.Context(), newslettersvc.ListInput{
		Status:   c.Query("status"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		h.newsletterError(c, "list newsletter subscribers", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscribers": subs, "page": page, "pageSize": pageSize})
}

func optionalInt(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
