package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"autoblog/eventbus"
	"autoblog/events"
	"autoblog/models"
	"autoblog/trace"
)

const eventSource = "web"

// EventDispatcher 포스트 이벤트 발행 서비스
type EventDispatcher struct {
	bus eventbus.EventBus
}

// NewEventDispatcher 새로운 이벤트 디스패처 생성
func NewEventDispatcher(bus eventbus.EventBus) *EventDispatcher {
	return &EventDispatcher{
		bus: bus,
	}
}

func newBaseEvent(ctx context.Context, t events.EventType) events.BaseEvent {
	return events.BaseEvent{
		ID:        uuid.New().String(),
		Type:      t,
		Timestamp: time.Now(),
		Source:    eventSource,
		Version:   "1.0",
		RequestID: trace.RequestIDFromContext(ctx),
	}
}

// PublishPostCreated 새 포스트 생성 이벤트 발행
func (s *EventDispatcher) PublishPostCreated(ctx context.Context, post *models.Post, origin, link string) error {
	e := events.PostCreatedEvent{
		BaseEvent: newBaseEvent(ctx, events.PostCreated),
		PostID:    post.ID,
		Summary:   post.Summary,
		Tags:      post.TagList(),
		Origin:    origin,
		Link:      link,
	}
	return s.publish(ctx, e.ID, e.Type, e)
}

// PublishPostDeleted 포스트 삭제 이벤트 발행
func (s *EventDispatcher) PublishPostDeleted(ctx context.Context, postID uint) error {
	e := events.PostDeletedEvent{
		BaseEvent: newBaseEvent(ctx, events.PostDeleted),
		PostID:    postID,
	}
	return s.publish(ctx, e.ID, e.Type, e)
}

func (s *EventDispatcher) publish(ctx context.Context, id string, t events.EventType, payload any) error {
	evt, err := eventbus.NewJSONEvent(id, string(t), payload)
	if err != nil {
		return fmt.Errorf("failed to build event: %w", err)
	}
	return s.bus.Publish(ctx, eventbus.TopicPostEvents.Base(), evt)
}
