package dto

import (
	"time"

	"autoblog/models"
)

// PostDTO exposes a stored post to templates and API consumers.
// Tags is the stored tag string split back into labels; TagsRaw keeps the
// stored form.
type PostDTO struct {
	ID        uint      `json:"id"`
	Content   string    `json:"content"`
	Summary   string    `json:"summary"`
	Tags      []string  `json:"tags"`
	TagsRaw   string    `json:"tags_raw"`
	CreatedAt time.Time `json:"created_at"`
}

// NewPostDTO constructs PostDTO from models.Post
func NewPostDTO(p models.Post) PostDTO {
	return PostDTO{
		ID:        p.ID,
		Content:   p.Content,
		Summary:   p.Summary,
		Tags:      p.TagList(),
		TagsRaw:   p.Tags,
		CreatedAt: p.CreatedAt,
	}
}

// CreatePostRequest is the JSON body of POST /api/v1/posts.
type CreatePostRequest struct {
	Content string `json:"content"`
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
