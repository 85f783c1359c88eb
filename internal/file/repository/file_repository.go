package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"realtime_chat_service/internal/file/domain"
	errprocess "realtime_chat_service/pkg/err"
)

// FileRepository storage contract for upload bookkeeping
type FileRepository interface {
	Create(ctx context.Context, upload *domain.FileUpload) error
	FindByID(ctx context.Context, fileID string) (*domain.FileUpload, error)
	IncrementChunks(ctx context.Context, fileID string) error
	MarkCompleted(ctx context.Context, fileID, storageKey, checksum string, at time.Time) error
	MarkFailed(ctx context.Context, fileID string) error
}

type fileRepository struct {
	db *gorm.DB
}

// NewFileRepository create a gorm backed FileRepository
func NewFileRepository(db *gorm.DB) FileRepository {
	return &fileRepository{db: db}
}

func (r *fileRepository) Create(ctx context.Context, upload *domain.FileUpload) error {
	return r.db.WithContext(ctx).Create(upload).Error
}

func (r *fileRepository) FindByID(ctx context.Context, fileID string) (*domain.FileUpload, error) {
	var upload domain.FileUpload
	err := r.db.WithContext(ctx).First(&upload, "id = ?", fileID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errprocess.ErrNotFound
		}
		return nil, err
	}
	return &upload, nil
}

func (r *fileRepository) IncrementChunks(ctx context.Context, fileID string) error {
	res := r.db.WithContext(ctx).
		Model(&domain.FileUpload{}).
		Where("id = ?", fileID).
		Update("chunks_uploaded", gorm.Expr("chunks_uploaded + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errprocess.ErrNotFound
	}
	return nil
}

func (r *fileRepository) MarkCompleted(ctx context.Context, fileID, storageKey, checksum string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.FileUpload{}).
		Where("id = ?", fileID).
		Updates(map[string]interface{}{
			"status":       domain.UploadStatusCompleted,
			"storage_key":  storageKey,
			"checksum":     checksum,
			"completed_at": at,
		}).Error
}

func (r *fileRepository) MarkFailed(ctx context.Context, fileID string) error {
	return r.db.WithContext(ctx).
		Model(&domain.FileUpload{}).
		Where("id = ?", fileID).
		Update("status", domain.UploadStatusFailed).Error
}
