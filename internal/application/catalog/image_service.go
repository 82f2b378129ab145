package catalog

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/google/uuid"
	appshared "github.com/thirdhand/marketplace/internal/application/shared"
	"github.com/thirdhand/marketplace/internal/domain/identity"
	"github.com/thirdhand/marketplace/internal/domain/shared"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
)

const (
	// MaxImageSize is the largest accepted upload
	MaxImageSize = 10 << 20
	// MinImageDimension is the smallest accepted width and height in pixels
	MinImageDimension = 500
)

// AllowedImageTypes is the whitelist of accepted content types. SVG is
// not accepted.
var AllowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

var formatExt = map[string]string{
	"jpeg": "jpg",
	"png":  "png",
	"gif":  "gif",
	"webp": "webp",
}

// ImageService stores artwork images
type ImageService struct {
	storage ImageStorage
	logger  *zap.Logger
}

// NewImageService creates a new ImageService
func NewImageService(storage ImageStorage, logger *zap.Logger) *ImageService {
	return &ImageService{storage: storage, logger: logger}
}

// UploadImage validates an image and stores it under
// artworks/{artist}/{uuid}.{ext}
func (s *ImageService) UploadImage(ctx context.Context, viewer appshared.Viewer, input UploadImageInput) (*UploadImageResult, error) {
	if viewer.Role != identity.RoleArtist {
		return nil, errArtistOnly
	}
	if len(input.Data) == 0 {
		return nil, shared.NewDomainError("NO_FILE", "No image uploaded")
	}
	if len(input.Data) > MaxImageSize {
		return nil, shared.NewDomainError("FILE_TOO_LARGE", "File size too large. Maximum size is 10MB.")
	}

	contentType := strings.ToLower(strings.TrimSpace(strings.SplitN(input.ContentType, ";", 2)[0]))
	if !AllowedImageTypes[contentType] {
		return nil, shared.NewDomainError("INVALID_FILE_TYPE", "Only JPEG, PNG, GIF and WebP images are allowed")
	}

	// the declared type is not trusted, the decoder decides
	cfg, format, err := image.DecodeConfig(bytes.NewReader(input.Data))
	if err != nil {
		return nil, shared.NewDomainError("INVALID_IMAGE", "File is not a valid image")
	}
	ext, ok := formatExt[format]
	if !ok {
		return nil, shared.NewDomainError("INVALID_FILE_TYPE", "Only JPEG, PNG, GIF and WebP images are allowed")
	}
	if cfg.Width < MinImageDimension || cfg.Height < MinImageDimension {
		return nil, shared.NewDomainErrorf("IMAGE_TOO_SMALL",
			"Image must be at least %dx%d pixels, got %dx%d", MinImageDimension, MinImageDimension, cfg.Width, cfg.Height)
	}

	storedType := "image/" + format
	key := fmt.Sprintf("artworks/%s/%s.%s", viewer.UserID, uuid.New(), ext)
	if err := s.storage.Upload(ctx, key, input.Data, storedType); err != nil {
		s.logger.Error("Failed to store artwork image", zap.String("key", key), zap.Error(err))
		return nil, shared.WrapDomainError("UPLOAD_FAILED", "Failed to upload image", err)
	}

	s.logger.Info("Artwork image uploaded",
		zap.String("key", key),
		zap.String("artist_id", viewer.UserID.String()),
		zap.Int("size", len(input.Data)))
	return &UploadImageResult{
		URL:         s.storage.PublicURL(key),
		Key:         key,
		Width:       cfg.Width,
		Height:      cfg.Height,
		Size:        len(input.Data),
		ContentType: storedType,
	}, nil
}
