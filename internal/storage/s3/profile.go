package s3

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// ProfileImageStore keeps member profile images in MinIO
type ProfileImageStore struct {
	client     *minio.Client
	bucketName string
}

func NewProfileImageStore(client *minio.Client, bucketName string) *ProfileImageStore {
	return &ProfileImageStore{
		client:     client,
		bucketName: bucketName,
	}
}

// generateObjectName creates a consistent S3 key for profile images.
// One object per member, so a re-upload replaces the previous image.
func (m *ProfileImageStore) generateObjectName(memberID uuid.UUID, contentType string) string {
	return fmt.Sprintf("profiles/%s.%s", memberID.String(), extensionFor(contentType))
}

// UploadProfileImage uploads a profile image to MinIO
func (m *ProfileImageStore) UploadProfileImage(
	ctx context.Context,
	memberID uuid.UUID,
	reader io.Reader,
	size int64,
	contentType string,
) (string, error) {
	objectName := m.generateObjectName(memberID, contentType)

	_, err := m.client.PutObject(
		ctx,
		m.bucketName,
		objectName,
		reader,
		size,
		minio.PutObjectOptions{
			ContentType: contentType,
			UserMetadata: map[string]string{
				"member-id": memberID.String(),
				"uploaded":  time.Now().Format(time.RFC3339),
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to upload to minio: %w", err)
	}

	return objectName, nil
}

// GetPresignedURL generates a temporary download URL for an object
func (m *ProfileImageStore) GetPresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	url, err := m.client.PresignedGetObject(ctx, m.bucketName, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned url: %w", err)
	}
	return url.String(), nil
}

// DeleteProfileImage deletes a profile image from MinIO
func (m *ProfileImageStore) DeleteProfileImage(ctx context.Context, objectName string) error {
	err := m.client.RemoveObject(ctx, m.bucketName, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	default:
		return "bin"
	}
}
