package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"realtime_chat_service/internal/file/domain"
	"realtime_chat_service/internal/file/repository"
	errprocess "realtime_chat_service/pkg/err"
	"realtime_chat_service/pkg/logger"
)

// ObjectStore destination for merged uploads, backed by MinIO
type ObjectStore interface {
	UploadFile(ctx context.Context, objectName, filePath, contentType string) error
	PresignGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

// UploadUseCase chunked upload lifecycle. Chunks land on local disk,
// Complete merges them in index order, verifies the sha256 checksum
// and pushes the merged file to object storage.
type UploadUseCase interface {
	Initiate(ctx context.Context, ownerID, fileName, mimeType string, fileSize int64) (*domain.FileUpload, error)
	SaveChunk(ctx context.Context, ownerID, fileID string, index int, data io.Reader) error
	Complete(ctx context.Context, ownerID, fileID, checksum string) (*domain.FileUpload, error)
	DownloadURL(ctx context.Context, userID, fileID string) (string, error)
}

type uploadUseCase struct {
	fileRepo  repository.FileRepository
	store     ObjectStore
	uploadDir string
}

// NewUploadUseCase create UploadUseCase. uploadDir holds in-flight
// chunks and is wiped per upload on completion.
func NewUploadUseCase(fileRepo repository.FileRepository, store ObjectStore, uploadDir string) UploadUseCase {
	return &uploadUseCase{
		fileRepo:  fileRepo,
		store:     store,
		uploadDir: uploadDir,
	}
}

// Initiate register a new upload and create its staging directory
func (uc *uploadUseCase) Initiate(ctx context.Context, ownerID, fileName, mimeType string, fileSize int64) (*domain.FileUpload, error) {
	if fileName == "" || fileSize <= 0 {
		return nil, errprocess.Wrap(errprocess.ErrInvalidOperation, "file name and positive size are required")
	}

	upload := &domain.FileUpload{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		FileName:    fileName,
		FileSize:    fileSize,
		MimeType:    mimeType,
		TotalChunks: domain.ExpectedChunks(fileSize),
		Status:      domain.UploadStatusUploading,
	}

	if err := os.MkdirAll(uc.stagingDir(upload.ID), 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	if err := uc.fileRepo.Create(ctx, upload); err != nil {
		return nil, err
	}
	return upload, nil
}

// SaveChunk persist one chunk to staging. Chunks may arrive in any
// order; a re-sent index overwrites the previous copy.
func (uc *uploadUseCase) SaveChunk(ctx context.Context, ownerID, fileID string, index int, data io.Reader) error {
	upload, err := uc.fileRepo.FindByID(ctx, fileID)
	if err != nil {
		return err
	}
	if upload.OwnerID != ownerID {
		return errprocess.Wrap(errprocess.ErrPermissionDenied, "upload belongs to another user")
	}
	if upload.Status != domain.UploadStatusUploading {
		return errprocess.Wrap(errprocess.ErrInvalidOperation, "upload is no longer accepting chunks")
	}
	if index < 0 || index >= upload.TotalChunks {
		return errprocess.Wrap(errprocess.ErrInvalidOperation, "chunk index out of range")
	}

	path := uc.chunkPath(fileID, index)
	replacing := false
	if _, err := os.Stat(path); err == nil {
		replacing = true
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chunk file: %w", err)
	}
	written, err := io.Copy(out, io.LimitReader(data, domain.ChunkSize+1))
	closeErr := out.Close()
	if err != nil {
		return fmt.Errorf("write chunk: %w", err)
	}
	if closeErr != nil {
		return closeErr
	}
	if written > domain.ChunkSize {
		_ = os.Remove(path)
		return errprocess.Wrap(errprocess.ErrInvalidOperation, "chunk exceeds maximum chunk size")
	}

	if replacing {
		return nil
	}
	return uc.fileRepo.IncrementChunks(ctx, fileID)
}

// Complete merge staged chunks in index order, verify the declared
// sha256 and move the result to object storage. A checksum mismatch
// fails the upload permanently.
func (uc *uploadUseCase) Complete(ctx context.Context, ownerID, fileID, checksum string) (*domain.FileUpload, error) {
	upload, err := uc.fileRepo.FindByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if upload.OwnerID != ownerID {
		return nil, errprocess.Wrap(errprocess.ErrPermissionDenied, "upload belongs to another user")
	}
	if upload.Status != domain.UploadStatusUploading {
		return nil, errprocess.Wrap(errprocess.ErrInvalidOperation, "upload already finalized")
	}
	if upload.ChunksUploaded != upload.TotalChunks {
		return nil, errprocess.Wrap(errprocess.ErrInvalidOperation,
			fmt.Sprintf("missing chunks: have %d of %d", upload.ChunksUploaded, upload.TotalChunks))
	}

	mergedPath := filepath.Join(uc.stagingDir(fileID), "merged")
	digest, err := uc.merge(fileID, upload.TotalChunks, mergedPath)
	if err != nil {
		_ = uc.fileRepo.MarkFailed(ctx, fileID)
		uc.cleanup(fileID)
		return nil, err
	}

	if digest != checksum {
		logger.Log.Warnf("upload(%s) checksum mismatch: declared %s, computed %s", fileID, checksum, digest)
		_ = uc.fileRepo.MarkFailed(ctx, fileID)
		uc.cleanup(fileID)
		return nil, errprocess.Wrap(errprocess.ErrChecksumMismatch, "uploaded data does not match declared checksum")
	}

	storageKey := fileID + "/" + upload.FileName
	if err := uc.store.UploadFile(ctx, storageKey, mergedPath, upload.MimeType); err != nil {
		_ = uc.fileRepo.MarkFailed(ctx, fileID)
		uc.cleanup(fileID)
		return nil, fmt.Errorf("store merged file: %w", err)
	}

	now := time.Now().UTC()
	if err := uc.fileRepo.MarkCompleted(ctx, fileID, storageKey, digest, now); err != nil {
		return nil, err
	}
	uc.cleanup(fileID)

	upload.Status = domain.UploadStatusCompleted
	upload.StorageKey = storageKey
	upload.Checksum = digest
	upload.CompletedAt = &now
	return upload, nil
}

// DownloadURL presigned URL for a completed upload
func (uc *uploadUseCase) DownloadURL(ctx context.Context, userID, fileID string) (string, error) {
	upload, err := uc.fileRepo.FindByID(ctx, fileID)
	if err != nil {
		return "", err
	}
	if upload.Status != domain.UploadStatusCompleted {
		return "", errprocess.Wrap(errprocess.ErrNotFound, "file is not available")
	}
	return uc.store.PresignGetURL(ctx, upload.StorageKey, 15*time.Minute)
}

// merge concatenate chunks 0..total-1 into dest, returning the sha256
// hex digest of the merged bytes
func (uc *uploadUseCase) merge(fileID string, total int, dest string) (string, error) {
	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create merged file: %w", err)
	}
	defer out.Close()

	hasher := sha256.New()
	sink := io.MultiWriter(out, hasher)

	for i := 0; i < total; i++ {
		chunk, err := os.Open(uc.chunkPath(fileID, i))
		if err != nil {
			return "", fmt.Errorf("open chunk %d: %w", i, err)
		}
		_, err = io.Copy(sink, chunk)
		chunk.Close()
		if err != nil {
			return "", fmt.Errorf("merge chunk %d: %w", i, err)
		}
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func (uc *uploadUseCase) cleanup(fileID string) {
	if err := os.RemoveAll(uc.stagingDir(fileID)); err != nil {
		logger.Log.Warnf("cleanup staging dir of upload(%s) failed: %v", fileID, err)
	}
}

func (uc *uploadUseCase) stagingDir(fileID string) string {
	return filepath.Join(uc.uploadDir, fileID)
}

func (uc *uploadUseCase) chunkPath(fileID string, index int) string {
	return filepath.Join(uc.stagingDir(fileID), fmt.Sprintf("chunk_%06d", index))
}
