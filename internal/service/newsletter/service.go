package newsletter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"sickbeasts-storefront/internal/domain"
	"sickbeasts-storefront/internal/repository/document"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	DocumentType    = "newsletter"
	DefaultSource   = "website"
	DefaultPageSize = 20
	maxPageSize     = 100

	// Fixed-width so stored timestamps sort chronologically as strings.
	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

var (
	// ErrEmailRequired is returned when the email is blank.
	ErrEmailRequired = errors.New("email is required")
	// ErrInvalidEmail is returned when the email is not an address.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrPreferencesRequired is returned when a preference update carries nothing.
	ErrPreferencesRequired = errors.New("preferences are required")
	// ErrEmailNotFound is returned when no subscriber has the email.
	ErrEmailNotFound = errors.New("email not found in newsletter list")
)

// Result is the outcome reported to API callers.
type Result struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	SubscriberID string `json:"subscriberId,omitempty"`
}

type SubscribeInput struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Source    string `json:"source"`
}

// PreferencesPatch carries only the preferences being changed.
type PreferencesPatch struct {
	Promotions  *bool `json:"promotions,omitempty"`
	NewArrivals *bool `json:"newArrivals,omitempty"`
}

func (p PreferencesPatch) empty() bool {
	return p.Promotions == nil && p.NewArrivals == nil
}

type ListInput struct {
	Status   string
	Page     int
	PageSize int
}

type docStore interface {
	document.Reader
	Create(ctx context.Context, doc document.Document) (document.Document, error)
	Patch(id string) *document.Patch
}

// Service manages newsletter subscriber documents.
type Service struct {
	docs     docStore
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

func New(docs docStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		docs:     docs,
		validate: validator.New(),
		logger:   logger.Named("newsletter"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Subscribe creates a subscriber, re-activates an unsubscribed one, or
// reports an existing subscription.
func (s *Service) Subscribe(ctx context.Context, in SubscribeInput) (Result, error) {
	email, err := s.normalizeEmail(in.Email)
	if err != nil {
		return Result{}, err
	}
	existing, err := s.findByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return Result{}, err
	case stringField(existing, "status") == domain.SubscriberUnsubscribed:
		return s.resubscribe(ctx, existing, in)
	default:
		return Result{Success: true, Message: "Already subscribed to newsletter", SubscriberID: existing.ID()}, nil
	}

	source := strings.TrimSpace(in.Source)
	if source == "" {
		source = DefaultSource
	}
	doc := document.Document{
		document.FieldType: DocumentType,
		"email":            email,
		"status":           domain.SubscriberSubscribed,
		"source":           source,
		"subscribedAt":     s.now().Format(timestampLayout),
		"preferences":      map[string]interface{}{"promotions": true, "newArrivals": true},
	}
	if v := strings.TrimSpace(in.FirstName); v != "" {
		doc["firstName"] = v
	}
	if v := strings.TrimSpace(in.LastName); v != "" {
		doc["lastName"] = v
	}
	created, err := s.docs.Create(ctx, doc)
	if errors.Is(err, domain.ErrAlreadyExists) {
		// Lost a race with a concurrent signup for the same address.
		existing, ferr := s.findByEmail(ctx, email)
		if ferr != nil {
			return Result{}, fmt.Errorf("subscribe: %w", ferr)
		}
		return Result{Success: true, Message: "Already subscribed to newsletter", SubscriberID: existing.ID()}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("subscribe: %w", err)
	}
	s.logger.Info("subscriber created", zap.String("id", created.ID()), zap.String("source", source))
	return Result{Success: true, Message: "Successfully subscribed to newsletter", SubscriberID: created.ID()}, nil
}

func (s *Service) resubscribe(ctx context.Context, existing document.Document, in SubscribeInput) (Result, error) {
	set := map[string]interface{}{
		"status":       domain.SubscriberSubscribed,
		"subscribedAt": s.now().Format(timestampLayout),
	}
	for field, v := range map[string]string{"firstName": in.FirstName, "lastName": in.LastName, "source": in.Source} {
		if v = strings.TrimSpace(v); v != "" {
			set[field] = v
		}
	}
	if _, err := s.docs.Patch(existing.ID()).Set(set).Unset("unsubscribedAt").Commit(ctx); err != nil {
		return Result{}, fmt.Errorf("resubscribe: %w", err)
	}
	s.logger.Info("subscriber re-subscribed", zap.String("id", existing.ID()))
	return Result{Success: true, Message: "Re-subscribed to newsletter", SubscriberID: existing.ID()}, nil
}

// Unsubscribe marks the subscriber as unsubscribed.
func (s *Service) Unsubscribe(ctx context.Context, email string) (Result, error) {
	email, err := s.normalizeEmail(email)
	if err != nil {
		return Result{}, err
	}
	existing, err := s.findByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return Result{}, ErrEmailNotFound
	}
	if err != nil {
		return Result{}, err
	}
	_, err = s.docs.Patch(existing.ID()).Set(map[string]interface{}{
		"status":         domain.SubscriberUnsubscribed,
		"unsubscribedAt": s.now().Format(timestampLayout),
	}).Commit(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("unsubscribe: %w", err)
	}
	return Result{Success: true, Message: "Successfully unsubscribed from newsletter"}, nil
}

// UpdatePreferences merges patch into the stored preferences.
func (s *Service) UpdatePreferences(ctx context.Context, email string, patch PreferencesPatch) (Result, error) {
	email, err := s.normalizeEmail(email)
	if err != nil {
		return Result{}, err
	}
	if patch.empty() {
		return Result{}, ErrPreferencesRequired
	}
	existing, err := s.findByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return Result{}, ErrEmailNotFound
	}
	if err != nil {
		return Result{}, err
	}

	merged := map[string]interface{}{}
	if prev, ok := existing["preferences"].(map[string]interface{}); ok {
		for k, v := range prev {
			merged[k] = v
		}
	}
	if patch.Promotions != nil {
		merged["promotions"] = *patch.Promotions
	}
	if patch.NewArrivals != nil {
		merged["newArrivals"] = *patch.NewArrivals
	}
	if _, err := s.docs.Patch(existing.ID()).Set(map[string]interface{}{"preferences": merged}).Commit(ctx); err != nil {
		return Result{}, fmt.Errorf("update preferences: %w", err)
	}
	return Result{Success: true, Message: "Successfully updated newsletter preferences"}, nil
}

// ListSubscribers returns one page of subscribers, newest first.
func (s *Service) ListSubscribers(ctx context.Context, in ListInput) ([]domain.Subscriber, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	size := in.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	q := document.Query{
		Type:   DocumentType,
		Sort:   &document.Sort{Field: "subscribedAt", Desc: true},
		Offset: (page - 1) * size,
		Limit:  size,
	}
	if status := strings.TrimSpace(in.Status); status != "" {
		switch status {
		case domain.SubscriberSubscribed, domain.SubscriberUnsubscribed, domain.SubscriberPending:
		default:
			return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, status)
		}
		q.Filters = []document.Filter{{Field: "status", Value: status}}
	}
	docs, err := s.docs.Fetch(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	out := make([]domain.Subscriber, 0, len(docs))
	for _, d := range docs {
		sub, err := toSubscriber(d)
		if err != nil {
			s.logger.Warn("skip subscriber document", zap.String("id", d.ID()), zap.Error(err))
			continue
		}
		out = append(out, sub)
	}
	return out, nil
}

func (s *Service) normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", ErrEmailRequired
	}
	if err := s.validate.Var(email, "email"); err != nil {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func (s *Service) findByEmail(ctx context.Context, email string) (document.Document, error) {
	doc, err := s.docs.FetchOne(ctx, document.Query{
		Type:    DocumentType,
		Filters: []document.Filter{{Field: "email", Value: email}},
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find subscriber: %w", err)
	}
	return doc, nil
}

type rawSubscriber struct {
	ID           string                        `json:"_id"`
	Email        string                        `json:"email"`
	FirstName    string                        `json:"firstName"`
	LastName     string                        `json:"lastName"`
	Status       string                        `json:"status"`
	Source       string                        `json:"source"`
	SubscribedAt string                        `json:"subscribedAt"`
	Preferences  *domain.NewsletterPreferences `json:"preferences"`
}

func toSubscriber(d document.Document) (domain.Subscriber, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return domain.Subscriber{}, err
	}
	var rs rawSubscriber
	if err := json.Unmarshal(raw, &rs); err != nil {
		return domain.Subscriber{}, err
	}
	sub := domain.Subscriber{
		ID:          rs.ID,
		Email:       rs.Email,
		FirstName:   rs.FirstName,
		LastName:    rs.LastName,
		Status:      rs.Status,
		Source:      rs.Source,
		Preferences: domain.NewsletterPreferences{Promotions: true, NewArrivals: true},
	}
	if rs.Preferences != nil {
		sub.Preferences = *rs.Preferences
	}
	if rs.SubscribedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, rs.SubscribedAt); err == nil {
			sub.SubscribedAt = &t
		}
	}
	return sub, nil
}

func stringField(d document.Document, key string) string {
	s, _ := d[key].(string)
	return s
}
