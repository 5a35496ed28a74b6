package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"autoblog/models"
)

// ErrPostNotFound is returned when no post has the requested id.
var ErrPostNotFound = errors.New("post not found")

type PostRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db}
}

// Insert writes a new post inside a single transaction and fills p.ID.
// If the commit fails nothing is persisted.
func (r *PostRepository) Insert(ctx context.Context, p *models.Post) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(p).Error
	})
}

// ListDesc returns every post, most recent (highest id) first.
func (r *PostRepository) ListDesc(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	if err := r.db.WithContext(ctx).Order("id desc").Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// FindByID returns a post by id or ErrPostNotFound.
func (r *PostRepository) FindByID(ctx context.Context, id uint) (*models.Post, error) {
	var p models.Post
	err := r.db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteByID loads and removes a post in one transaction and returns the
// removed record. Deletion is permanent.
func (r *PostRepository) DeleteByID(ctx context.Context, id uint) (*models.Post, error) {
	var deleted models.Post
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&deleted, id).Error; err != nil {
			return err
		}
		return tx.Delete(&deleted).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return &deleted, nil
}

// Count returns the number of stored posts.
func (r *PostRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Post{}).Count(&n).Error
	return n, err
}

// Ping checks the underlying database connection.
func (r *PostRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
