package domain

import "time"

const (
	SubscriberSubscribed   = "subscribed"
	SubscriberUnsubscribed = "unsubscribed"
	SubscriberPending      = "pending"
)

type NewsletterPreferences struct {
	Promotions  bool `json:"promotions"`
	NewArrivals bool `json:"newArrivals"`
}

// Subscriber is a newsletter document as returned by the listing endpoint.
type Subscriber struct {
	ID           string                `json:"id"`
	Email        string                `json:"email"`
	FirstName    string                `json:"firstName,omitempty"`
	LastName     string                `json:"lastName,omitempty"`
	Status       string                `json:"status"`
	Source       string                `json:"source,omitempty"`
	SubscribedAt *time.Time            `json:"subscribedAt,omitempty"`
	Preferences  NewsletterPreferences `json:"preferences"`
}
