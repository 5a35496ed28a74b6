package models

import (
	"strings"
	"time"
)

const (
	// SummaryMaxLen and TagsMaxLen are the column caps, in characters.
	SummaryMaxLen = 500
	TagsMaxLen    = 100

	// TagSeparator joins the ranked labels stored in Post.Tags.
	TagSeparator = ", "
)

// Post is a submitted blog post with its generated summary and tags.
// Table: blog_posts
//
// A post is written once and never updated; deletion is permanent.
type Post struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Summary   string    `gorm:"size:500;not null" json:"summary"`
	Tags      string    `gorm:"size:100;not null" json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}

func (Post) TableName() string { return "blog_posts" }

// TagList splits the stored tag string back into labels.
func (p Post) TagList() []string {
	if strings.TrimSpace(p.Tags) == "" {
		return []string{}
	}
	parts := strings.Split(p.Tags, TagSeparator)
	out := make([]string, 0, len(parts))
	for _, s := range parts {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
