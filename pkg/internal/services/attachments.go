package services

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/chorushq/chorus/pkg/internal/models"
	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// MaxAttachmentSize caps a single uploaded blob at 5 MiB.
const MaxAttachmentSize = 5 << 20

// BlobStore keeps attachment payloads outside the database. Resolve turns
// a storage id into a client-reachable URL.
type BlobStore interface {
	Store(file *multipart.FileHeader) (models.Attachment, error)
	Resolve(storageId string) string
	Remove(storageId string) error
}

// Blobs is the process-wide store, wired during startup. A nil store
// disables uploads but keeps the rest of the messaging surface alive.
var Blobs BlobStore

// LocalBlobStore writes blobs into a flat directory and serves them back
// through the static file route.
type LocalBlobStore struct {
	Root    string
	BaseURL string
}

func NewLocalBlobStore() (*LocalBlobStore, error) {
	root := viper.GetString("attachments.path")
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to prepare attachment directory: %v", err)
	}
	return &LocalBlobStore{
		Root:    root,
		BaseURL: strings.TrimSuffix(viper.GetString("attachments.base_url"), "/"),
	}, nil
}

func (v *LocalBlobStore) Store(file *multipart.FileHeader) (models.Attachment, error) {
	var attachment models.Attachment
	if file.Size > MaxAttachmentSize {
		return attachment, fmt.Errorf("%w: attachment cannot be larger than %d bytes", ErrInvalidRequest, MaxAttachmentSize)
	}

	in, err := file.Open()
	if err != nil {
		return attachment, err
	}
	defer in.Close()

	head := make([]byte, 512)
	n, _ := io.ReadFull(in, head)
	if _, err := in.Seek(0, io.SeekStart); err != nil {
		return attachment, err
	}

	storageId := uuid.NewString()
	out, err := os.Create(filepath.Join(v.Root, storageId))
	if err != nil {
		return attachment, err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		_ = os.Remove(filepath.Join(v.Root, storageId))
		return attachment, err
	}

	mimetype := file.Header.Get("Content-Type")
	if len(mimetype) == 0 {
		mimetype = http.DetectContentType(head[:n])
	}

	return models.Attachment{
		StorageID: storageId,
		Name:      file.Filename,
		Size:      file.Size,
		Type:      mimetype,
	}, nil
}

func (v *LocalBlobStore) Resolve(storageId string) string {
	return fmt.Sprintf("%s/%s", v.BaseURL, storageId)
}

func (v *LocalBlobStore) Remove(storageId string) error {
	return os.Remove(filepath.Join(v.Root, storageId))
}

// ValidateAttachments runs the constraints every message mutation shares.
func ValidateAttachments(attachments []models.Attachment) error {
	for _, attachment := range attachments {
		if attachment.Size > MaxAttachmentSize {
			return fmt.Errorf("%w: attachment %s exceeds the %d byte limit", ErrInvalidRequest, attachment.Name, MaxAttachmentSize)
		}
		if len(attachment.StorageID) == 0 {
			return fmt.Errorf("%w: attachment %s is missing its storage reference", ErrInvalidRequest, attachment.Name)
		}
	}
	return nil
}
