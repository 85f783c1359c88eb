package app

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"testing"
	"time"

	"realtime_chat_service/internal/file/domain"
	errprocess "realtime_chat_service/pkg/err"
	"realtime_chat_service/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockFileRepository Mock FileRepository
type MockFileRepository struct {
	mock.Mock
}

// Create mock upload record insert
func (m *MockFileRepository) Create(ctx context.Context, upload *domain.FileUpload) error {
	args := m.Called(ctx, upload)
	return args.Error(0)
}

// FindByID mock upload lookup
func (m *MockFileRepository) FindByID(ctx context.Context, fileID string) (*domain.FileUpload, error) {
	args := m.Called(ctx, fileID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.FileUpload), args.Error(1)
	}
	return nil, args.Error(1)
}

// IncrementChunks mock chunk counter bump
func (m *MockFileRepository) IncrementChunks(ctx context.Context, fileID string) error {
	args := m.Called(ctx, fileID)
	return args.Error(0)
}

// MarkCompleted mock completion write
func (m *MockFileRepository) MarkCompleted(ctx context.Context, fileID, storageKey, checksum string, at time.Time) error {
	args := m.Called(ctx, fileID, storageKey, checksum, at)
	return args.Error(0)
}

// MarkFailed mock failure write
func (m *MockFileRepository) MarkFailed(ctx context.Context, fileID string) error {
	args := m.Called(ctx, fileID)
	return args.Error(0)
}

// MockObjectStore Mock ObjectStore
type MockObjectStore struct {
	mock.Mock
}

// UploadFile mock object storage push
func (m *MockObjectStore) UploadFile(ctx context.Context, objectName, filePath, contentType string) error {
	args := m.Called(ctx, objectName, filePath, contentType)
	return args.Error(0)
}

// PresignGetURL mock presigned URL
func (m *MockObjectStore) PresignGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, objectName, expiry)
	return args.String(0), args.Error(1)
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func TestExpectedChunks(t *testing.T) {
	assert.Equal(t, 0, domain.ExpectedChunks(0))
	assert.Equal(t, 1, domain.ExpectedChunks(1))
	assert.Equal(t, 1, domain.ExpectedChunks(domain.ChunkSize))
	assert.Equal(t, 2, domain.ExpectedChunks(domain.ChunkSize+1))
	assert.Equal(t, 3, domain.ExpectedChunks(domain.ChunkSize*2+5))
}

func TestInitiate_CreatesStagingAndRecord(t *testing.T) {
	logger.SetNewNop()
	ctx := context.Background()
	owner := uuid.New().String()

	repo := new(MockFileRepository)
	repo.On("Create", ctx, mock.MatchedBy(func(u *domain.FileUpload) bool {
		return u.OwnerID == owner && u.TotalChunks == 2 && u.Status == domain.UploadStatusUploading
	})).Return(nil)

	uc := NewUploadUseCase(repo, new(MockObjectStore), t.TempDir())
	upload, err := uc.Initiate(ctx, owner, "video.mp4", "video/mp4", domain.ChunkSize+10)

	assert.NoError(t, err)
	assert.Equal(t, 2, upload.TotalChunks)
	repo.AssertExpectations(t)
}

func TestSaveChunk_RejectsForeignUpload(t *testing.T) {
	logger.SetNewNop()
	ctx := context.Background()
	fileID := uuid.New().String()

	repo := new(MockFileRepository)
	repo.On("FindByID", ctx, fileID).Return(&domain.FileUpload{
		ID:          fileID,
		OwnerID:     uuid.New().String(),
		Status:      domain.UploadStatusUploading,
		TotalChunks: 1,
	}, nil)

	uc := NewUploadUseCase(repo, new(MockObjectStore), t.TempDir())
	err := uc.SaveChunk(ctx, uuid.New().String(), fileID, 0, bytes.NewReader([]byte("data")))

	assert.ErrorIs(t, err, errprocess.ErrPermissionDenied)
}

func TestSaveChunk_IndexOutOfRange(t *testing.T) {
	logger.SetNewNop()
	ctx := context.Background()
	owner := uuid.New().String()
	fileID := uuid.New().String()

	repo := new(MockFileRepository)
	repo.On("FindByID", ctx, fileID).Return(&domain.FileUpload{
		ID:          fileID,
		OwnerID:     owner,
		Status:      domain.UploadStatusUploading,
		TotalChunks: 2,
	}, nil)

	uc := NewUploadUseCase(repo, new(MockObjectStore), t.TempDir())
	err := uc.SaveChunk(ctx, owner, fileID, 2, bytes.NewReader([]byte("data")))

	assert.ErrorIs(t, err, errprocess.ErrInvalidOperation)
}

func TestComplete_MergesChunksInOrder(t *testing.T) {
	logger.SetNewNop()
	ctx := context.Background()
	owner := uuid.New().String()
	fileID := uuid.New().String()
	dir := t.TempDir()

	chunkA := []byte("first-part-")
	chunkB := []byte("second-part")
	whole := append(append([]byte{}, chunkA...), chunkB...)
	checksum := sha256Hex(whole)

	repo := new(MockFileRepository)
	store := new(MockObjectStore)

	uploading := &domain.FileUpload{
		ID:          fileID,
		OwnerID:     owner,
		FileName:    "doc.txt",
		MimeType:    "text/plain",
		Status:      domain.UploadStatusUploading,
		TotalChunks: 2,
	}
	repo.On("FindByID", ctx, fileID).Return(uploading, nil)
	repo.On("IncrementChunks", ctx, fileID).Return(nil).Twice()

	uc := NewUploadUseCase(repo, store, dir)

	// stage the two chunks out of order
	assert.NoError(t, os.MkdirAll(dir+"/"+fileID, 0o755))
	assert.NoError(t, uc.SaveChunk(ctx, owner, fileID, 1, bytes.NewReader(chunkB)))
	assert.NoError(t, uc.SaveChunk(ctx, owner, fileID, 0, bytes.NewReader(chunkA)))
	uploading.ChunksUploaded = 2

	var mergedContent []byte
	store.On("UploadFile", ctx, fileID+"/doc.txt", mock.Anything, "text/plain").
		Run(func(args mock.Arguments) {
			f, err := os.Open(args.String(2))
			assert.NoError(t, err)
			defer f.Close()
			mergedContent, err = io.ReadAll(f)
			assert.NoError(t, err)
		}).Return(nil)
	repo.On("MarkCompleted", ctx, fileID, fileID+"/doc.txt", checksum, mock.Anything).Return(nil)

	completed, err := uc.Complete(ctx, owner, fileID, checksum)

	assert.NoError(t, err)
	assert.Equal(t, domain.UploadStatusCompleted, completed.Status)
	assert.Equal(t, whole, mergedContent)
	// staging is gone after completion
	_, statErr := os.Stat(dir + "/" + fileID)
	assert.True(t, os.IsNotExist(statErr))
	repo.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestComplete_ChecksumMismatchFailsUpload(t *testing.T) {
	logger.SetNewNop()
	ctx := context.Background()
	owner := uuid.New().String()
	fileID := uuid.New().String()
	dir := t.TempDir()

	repo := new(MockFileRepository)
	store := new(MockObjectStore)

	repo.On("FindByID", ctx, fileID).Return(&domain.FileUpload{
		ID:             fileID,
		OwnerID:        owner,
		FileName:       "doc.txt",
		Status:         domain.UploadStatusUploading,
		TotalChunks:    1,
		ChunksUploaded: 1,
	}, nil)
	repo.On("IncrementChunks", ctx, fileID).Return(nil)
	repo.On("MarkFailed", ctx, fileID).Return(nil)

	uc := NewUploadUseCase(repo, store, dir)
	assert.NoError(t, os.MkdirAll(dir+"/"+fileID, 0o755))
	assert.NoError(t, uc.SaveChunk(ctx, owner, fileID, 0, bytes.NewReader([]byte("actual-bytes"))))

	_, err := uc.Complete(ctx, owner, fileID, sha256Hex([]byte("declared-other-bytes")))

	assert.ErrorIs(t, err, errprocess.ErrChecksumMismatch)
	store.AssertNotCalled(t, "UploadFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	repo.AssertCalled(t, "MarkFailed", ctx, fileID)
}

func TestComplete_MissingChunksRejected(t *testing.T) {
	logger.SetNewNop()
	ctx := context.Background()
	owner := uuid.New().String()
	fileID := uuid.New().String()

	repo := new(MockFileRepository)
	repo.On("FindByID", ctx, fileID).Return(&domain.FileUpload{
		ID:             fileID,
		OwnerID:        owner,
		Status:         domain.UploadStatusUploading,
		TotalChunks:    3,
		ChunksUploaded: 2,
	}, nil)

	uc := NewUploadUseCase(repo, new(MockObjectStore), t.TempDir())
	_, err := uc.Complete(ctx, owner, fileID, "whatever")

	assert.ErrorIs(t, err, errprocess.ErrInvalidOperation)
}

func TestDownloadURL_OnlyForCompletedUploads(t *testing.T) {
	logger.SetNewNop()
	ctx := context.Background()
	fileID := uuid.New().String()

	repo := new(MockFileRepository)
	repo.On("FindByID", ctx, fileID).Return(&domain.FileUpload{
		ID:     fileID,
		Status: domain.UploadStatusUploading,
	}, nil)

	uc := NewUploadUseCase(repo, new(MockObjectStore), t.TempDir())
	_, err := uc.DownloadURL(ctx, uuid.New().String(), fileID)

	assert.ErrorIs(t, err, errprocess.ErrNotFound)
}
