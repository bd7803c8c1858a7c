package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/rs/zerolog"

	"coursehub/internal/apperr"
	"coursehub/internal/ids"
	"coursehub/internal/media/sniffer"
	"coursehub/internal/media/svg"
)

const MaxImageBytes = 5 << 20

type UploadInput struct {
	Bucket   string
	Folder   string
	Data     []byte
	Declared string
}

// StoredImage identifies an uploaded object; PublicID is its object key.
type StoredImage struct {
	PublicID string
	URL      string
}

type MediaService struct {
	store ObjectStorage
	log   zerolog.Logger
}

func NewMediaService(store ObjectStorage, log zerolog.Logger) *MediaService {
	return &MediaService{store: store, log: log}
}

func (s *MediaService) Upload(ctx context.Context, input UploadInput) (StoredImage, error) {
	if len(input.Data) == 0 {
		return StoredImage{}, apperr.Validation("empty image")
	}
	if len(input.Data) > MaxImageBytes {
		return StoredImage{}, apperr.Validation("image exceeds 5MB")
	}

	result, err := sniffer.Detect(input.Data)
	if err != nil {
		return StoredImage{}, ErrUnsupportedMedia
	}
	if input.Declared != "" && input.Declared != result.MIME {
		return StoredImage{}, apperr.Validation(fmt.Sprintf("content type mismatch: declared %s, actual %s", input.Declared, result.MIME))
	}

	data := input.Data
	if result.Type == sniffer.TypeSVG {
		clean, err := svg.Sanitize(data)
		if err != nil {
			return StoredImage{}, ErrUnsupportedMedia
		}
		data = clean
	}

	key := buildObjectKey(input.Folder, result.Ext())
	if err := s.store.Put(ctx, input.Bucket, key, bytes.NewReader(data), int64(len(data)), result.MIME); err != nil {
		return StoredImage{}, apperr.Dependency("image upload failed", err)
	}

	return StoredImage{
		PublicID: key,
		URL:      s.store.PublicURL(input.Bucket, key),
	}, nil
}

// UploadDataURI uploads a base64 image as sent by JSON clients.
func (s *MediaService) UploadDataURI(ctx context.Context, bucket, folder, dataURI string) (StoredImage, error) {
	data, declared, err := sniffer.DecodeDataURI(dataURI)
	if err != nil {
		if errors.Is(err, sniffer.ErrBadDataURI) {
			return StoredImage{}, apperr.Validation("image must be a base64 data uri")
		}
		return StoredImage{}, err
	}
	return s.Upload(ctx, UploadInput{Bucket: bucket, Folder: folder, Data: data, Declared: declared})
}

// Remove deletes a previous upload. Failures are logged only; a stale
// object is harmless.
func (s *MediaService) Remove(ctx context.Context, bucket, publicID string) {
	if publicID == "" {
		return
	}
	if err := s.store.Remove(ctx, bucket, publicID); err != nil {
		s.log.Warn().Err(err).Str("bucket", bucket).Str("object", publicID).Msg("remove object failed")
	}
}

func buildObjectKey(folder, ext string) string {
	datePrefix := time.Now().UTC().Format("2006/01/02")
	return path.Join(folder, datePrefix, fmt.Sprintf("%s.%s", ids.New(), ext))
}
