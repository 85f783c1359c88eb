package domain

import "time"

// ChunkSize fixed chunk size for multi-part uploads, 5 MiB
const ChunkSize int64 = 5 * 1024 * 1024

// UploadStatus lifecycle of an upload
type UploadStatus string

const (
	//UploadStatusUploading chunks still arriving
	UploadStatusUploading UploadStatus = "uploading"
	//UploadStatusCompleted merged, verified and stored
	UploadStatusCompleted UploadStatus = "completed"
	//UploadStatusFailed checksum mismatch or merge failure
	UploadStatusFailed UploadStatus = "failed"
)

// FileUpload upload bookkeeping record. StorageKey is set once the
// merged file lands in object storage.
type FileUpload struct {
	ID             string       `gorm:"primaryKey;type:uuid" json:"file_id"`
	OwnerID        string       `gorm:"type:uuid;index:idx_uploads_owner" json:"owner_id"`
	FileName       string       `json:"file_name"`
	FileSize       int64        `json:"file_size"`
	MimeType       string       `json:"mime_type"`
	TotalChunks    int          `json:"total_chunks"`
	ChunksUploaded int          `json:"chunks_uploaded"`
	Checksum       string       `json:"checksum,omitempty"`
	Status         UploadStatus `gorm:"type:varchar(12);index:idx_uploads_status" json:"status"`
	StorageKey     string       `json:"storage_key,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// TableName gorm table name
func (FileUpload) TableName() string { return "file_uploads" }

// ExpectedChunks number of chunks a file of size bytes splits into
func ExpectedChunks(size int64) int {
	if size <= 0 {
		return 0
	}
	n := size / ChunkSize
	if size%ChunkSize != 0 {
		n++
	}
	return int(n)
}
