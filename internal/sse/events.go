// Package sse broadcasts catalog changes to subscribers inside the process
// and to browsers over Server-Sent Events.
package sse

import (
	"time"

	"github.com/purriosity/purriosity-server/internal/domain"
)

// EventType represents the type of an Event.
type EventType string

const (
	// EventPurrUpdated carries the reconciled purr count of a product.
	EventPurrUpdated EventType = "purr.updated"

	EventProductCreated EventType = "product.created"
	EventProductUpdated EventType = "product.updated"
	EventProductDeleted EventType = "product.deleted"

	EventBlogPostPublished EventType = "blog.published"
	EventBlogPostDeleted   EventType = "blog.deleted"

	// EventCategoriesChanged is sent after any category add, edit, delete or reorder.
	EventCategoriesChanged EventType = "categories.changed"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event is a message delivered to subscribers.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// ProductID scopes product events; subscribers filtering by product
	// only receive events whose ProductID they asked for.
	ProductID string `json:"-"`
}

// ProductDeletedEventData is the payload of product.deleted.
type ProductDeletedEventData struct {
	ProductID string `json:"product_id"`
}

// BlogPostDeletedEventData is the payload of blog.deleted.
type BlogPostDeletedEventData struct {
	Slug string `json:"slug"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewPurrUpdatedEvent creates a purr.updated event.
func NewPurrUpdatedEvent(update domain.PurrUpdate) Event {
	return Event{
		Type:      EventPurrUpdated,
		Timestamp: time.Now(),
		Data:      update,
		ProductID: update.ProductID,
	}
}

// NewProductCreatedEvent creates a product.created event.
func NewProductCreatedEvent(p domain.Product) Event {
	return Event{Type: EventProductCreated, Timestamp: time.Now(), Data: p, ProductID: p.ID}
}

// NewProductUpdatedEvent creates a product.updated event.
func NewProductUpdatedEvent(p domain.Product) Event {
	return Event{Type: EventProductUpdated, Timestamp: time.Now(), Data: p, ProductID: p.ID}
}

// NewProductDeletedEvent creates a product.deleted event.
func NewProductDeletedEvent(productID string) Event {
	return Event{
		Type:      EventProductDeleted,
		Timestamp: time.Now(),
		Data:      ProductDeletedEventData{ProductID: productID},
		ProductID: productID,
	}
}

// NewBlogPostPublishedEvent creates a blog.published event.
func NewBlogPostPublishedEvent(post domain.BlogPost) Event {
	return Event{Type: EventBlogPostPublished, Timestamp: time.Now(), Data: post}
}

// NewBlogPostDeletedEvent creates a blog.deleted event.
func NewBlogPostDeletedEvent(slug string) Event {
	return Event{Type: EventBlogPostDeleted, Timestamp: time.Now(), Data: BlogPostDeletedEventData{Slug: slug}}
}

// NewCategoriesChangedEvent creates a categories.changed event.
func NewCategoriesChangedEvent(categories []domain.Category) Event {
	return Event{Type: EventCategoriesChanged, Timestamp: time.Now(), Data: categories}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return Event{
		Type:      EventHeartbeat,
		Timestamp: time.Now(),
		Data:      HeartbeatEventData{ServerTime: time.Now()},
	}
}
