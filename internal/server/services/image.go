package services

import (
	"context"
	"database/sql"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/aiexplorer/internal/logging"
	"github.com/dmitrijs2005/aiexplorer/internal/server/config"
	"github.com/dmitrijs2005/aiexplorer/internal/server/models"
	"github.com/dmitrijs2005/aiexplorer/internal/server/repositories/repomanager"
)

const maxPromptLen = 1000

var (
	allowedDimensions = []int{256, 512, 768, 1024}
	allowedSteps      = []int{10, 20, 30, 40, 50}
)

// ImageProvider is the external image generation capability.
type ImageProvider interface {
	GenerateImage(ctx context.Context, prompt string, p models.ImageParameters) (models.Artifact, error)
}

// ArtifactStore archives inline images and resolves archived ones to URLs.
type ArtifactStore interface {
	Put(ctx context.Context, ownerID, dataURI string) (string, error)
	URL(ctx context.Context, key string) (string, error)
}

// ImageResult is the outcome of GenerateImage. ID is empty unless saved.
type ImageResult struct {
	models.ImageRecord
	Saved bool `json:"saved"`
}

type ImageService struct {
	persistence
	provider ImageProvider
	store    ArtifactStore
	timeout  time.Duration
	now      func() time.Time
}

// NewImageService builds the service. store may be nil, in which case
// inline images are kept in the database as data URIs.
func NewImageService(db *sql.DB, m repomanager.RepositoryManager, p ImageProvider, store ArtifactStore, cfg *config.Config, log logging.Logger) *ImageService {
	return &ImageService{
		persistence: persistence{
			db:             db,
			repomanager:    m,
			acquireTimeout: cfg.DBAcquireTimeout,
			log:            log.With("module", "image"),
		},
		provider: p,
		store:    store,
		timeout:  cfg.ImageTimeout,
		now:      time.Now,
	}
}

func validateImage(prompt string, p models.ImageParameters) error {
	if strings.TrimSpace(prompt) == "" {
		return validationError("prompt must not be empty")
	}
	if utf8.RuneCountInString(prompt) > maxPromptLen {
		return validationError("prompt must be at most %d characters", maxPromptLen)
	}
	if !slices.Contains(allowedDimensions, p.Width) {
		return validationError("width must be one of %v", allowedDimensions)
	}
	if !slices.Contains(allowedDimensions, p.Height) {
		return validationError("height must be one of %v", allowedDimensions)
	}
	if !slices.Contains(allowedSteps, p.Steps) {
		return validationError("steps must be one of %v", allowedSteps)
	}
	return nil
}

// GenerateImage validates, calls the provider under the image deadline and
// optionally persists the outcome. With an archive configured, inline images
// are uploaded and the record keeps only the storage key.
func (s *ImageService) GenerateImage(ctx context.Context, caller Caller, prompt string, p models.ImageParameters, save bool) (*ImageResult, error) {
	if err := validateImage(prompt, p); err != nil {
		return nil, err
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	artifact, err := s.provider.GenerateImage(pctx, prompt, p)
	if err != nil {
		s.log.Warn(ctx, "image provider failed", "user_id", caller.UserID, "error", err)
		return nil, err
	}

	rec := models.ImageRecord{
		OwnerID:    caller.UserID,
		Prompt:     prompt,
		Parameters: p,
		Artifact:   artifact,
		CreatedAt:  s.now().UTC(),
	}

	if !save {
		return &ImageResult{ImageRecord: rec}, nil
	}

	stored := s.archive(ctx, caller, artifact)
	rec.Artifact = stored

	dctx, dcancel := s.bounded(ctx)
	defer dcancel()

	saved, err := s.repomanager.Images(s.db).Create(dctx, &rec)
	if err != nil {
		return nil, s.internal(ctx, "save image", err)
	}

	// the caller gets the artifact as generated, not the storage key
	saved.Artifact = artifact
	s.log.Info(ctx, "image saved", "user_id", caller.UserID, "record_id", saved.ID, "archived", stored.StorageKey != "")
	return &ImageResult{ImageRecord: *saved, Saved: true}, nil
}

// archive uploads inline data when a store is configured. Upload failures
// fall back to keeping the data URI in the record.
func (s *ImageService) archive(ctx context.Context, caller Caller, a models.Artifact) models.Artifact {
	if s.store == nil || a.Data == "" {
		return a
	}
	key, err := s.store.Put(context.WithoutCancel(ctx), caller.UserID, a.Data)
	if err != nil {
		s.log.Warn(ctx, "archive image failed, keeping inline data", "user_id", caller.UserID, "error", err)
		return a
	}
	return models.Artifact{StorageKey: key}
}

// resolveArtifacts replaces storage keys with presigned URLs in place.
func resolveArtifacts(ctx context.Context, store ArtifactStore, log logging.Logger, recs []models.ImageRecord) {
	for i := range recs {
		key := recs[i].Artifact.StorageKey
		if key == "" {
			continue
		}
		recs[i].Artifact.StorageKey = ""
		if store == nil {
			log.Warn(ctx, "archived image without a configured store", "record_id", recs[i].ID)
			continue
		}
		u, err := store.URL(ctx, key)
		if err != nil {
			log.Warn(ctx, "presign archived image failed", "record_id", recs[i].ID, "error", err)
			continue
		}
		recs[i].Artifact.URL = u
	}
}
