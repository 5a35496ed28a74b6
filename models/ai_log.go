package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AILogKind identifies which inference call produced the log.
type AILogKind string

const (
	AILogKindSummarize AILogKind = "summarize"
	AILogKindTag       AILogKind = "tag"
)

// AILog stores inference usage logs (system monitoring purpose)
// Collection: ai_logs
type AILog struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Kind           AILogKind          `bson:"kind" json:"kind"`
	Provider       string             `bson:"provider" json:"provider"`
	ModelName      string             `bson:"model_name" json:"model_name"`
	RequestID      string             `bson:"request_id,omitempty" json:"request_id,omitempty"`
	DurationMs     int64              `bson:"duration_ms" json:"duration_ms"`
	Success        bool               `bson:"success" json:"success"`
	ErrorMessage   *string            `bson:"error_message,omitempty" json:"error_message,omitempty"`
	InputExcerpt   string             `bson:"input_excerpt" json:"input_excerpt"`
	OutputResponse string             `bson:"output_response" json:"output_response"`
	RequestedAt    time.Time          `bson:"requested_at" json:"requested_at"`
	CompletedAt    time.Time          `bson:"completed_at" json:"completed_at"`
}
