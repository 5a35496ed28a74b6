package eventbus

import (
	"context"
	"encoding/json"
)

// Topic은 토픽의 기본 이름을 관리합니다.
type Topic struct {
	base string
}

func NewTopic(base string) Topic {
	return Topic{base: base}
}

func (t Topic) Base() string {
	return t.base
}

// Event는 Kafka 메시지의 페이로드로 사용되는 구조체입니다.
type Event struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// EventBus 인터페이스는 이벤트 발행의 추상화를 정의합니다.
type EventBus interface {
	Publish(ctx context.Context, topic string, event Event) error
	Close()
}

// NopEventBus는 브로커가 설정되지 않았을 때 사용하는 구현체입니다. 모든 이벤트를 버립니다.
type NopEventBus struct{}

func (NopEventBus) Publish(ctx context.Context, topic string, event Event) error {
	return nil
}

func (NopEventBus) Close() {}
