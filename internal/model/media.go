package model

import "time"

// Storage types for a media item's blob.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Media is one uploaded photo or video. Filename is the storage key the
// blob was written under; OriginalName is what the client called it.
type Media struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"original_name"`
	ContentType  string    `json:"content_type"`
	Size         int64     `json:"size"`
	StorageType  string    `json:"storage_type"`
	S3Key        *string   `json:"s3_key,omitempty"`
	CreatedAt    time.Time `json:"created_at"`

	// URL is resolved at read time from the storage backend; it is not
	// persisted.
	URL string `json:"url,omitempty"`
}
