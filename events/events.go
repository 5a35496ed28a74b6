package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType 이벤트 타입 정의
type EventType string

const (
	PostCreated EventType = "post.created"
	PostDeleted EventType = "post.deleted"
)

// BaseEvent 모든 이벤트의 기본 구조
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
	RequestID string    `json:"request_id,omitempty"`
}

// PostCreatedEvent 새 포스트가 저장된 뒤 발행되는 이벤트
type PostCreatedEvent struct {
	BaseEvent
	PostID  uint     `json:"post_id"`
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
	Origin  string   `json:"origin,omitempty"` // "form", "api", "import", "feed"
	Link    string   `json:"link,omitempty"`
}

// PostDeletedEvent 포스트가 삭제된 뒤 발행되는 이벤트
type PostDeletedEvent struct {
	BaseEvent
	PostID uint `json:"post_id"`
}

// SerializeEvent 이벤트를 JSON으로 직렬화하고 타입 정보 반환
func SerializeEvent(event any) ([]byte, EventType, error) {
	var eventType EventType

	switch e := event.(type) {
	case PostCreatedEvent:
		eventType = e.Type
	case PostDeletedEvent:
		eventType = e.Type
	default:
		return nil, "", fmt.Errorf("unknown event type: %T", event)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal event: %w", err)
	}

	return data, eventType, nil
}

// DeserializeEvent 이벤트 타입에 따라 적절한 구조체로 역직렬화
func DeserializeEvent(eventType EventType, data []byte) (any, error) {
	var event any

	switch eventType {
	case PostCreated:
		event = &PostCreatedEvent{}
	case PostDeleted:
		event = &PostDeletedEvent{}
	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	return event, nil
}
