// Package history persists successful generations: the image goes to the
// blob store, the metadata to the history table.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"

	"setka/internal/domain"
	"setka/internal/generation"
	"setka/internal/infra"
	"setka/internal/storage"
)

// Blobs stores image bytes under a key.
type Blobs interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
}

// Sink is a generation.Sink that records every successful item of one user.
// Failures are logged and never reach the batch.
type Sink struct {
	blobs   Blobs
	repo    domain.HistoryRepository
	userID  string
	logger  *infra.Logger
	timeout time.Duration
	newID   func() string
}

// NewSink records results for userID.
func NewSink(blobs Blobs, repo domain.HistoryRepository, userID string, logger *infra.Logger) *Sink {
	return &Sink{
		blobs:   blobs,
		repo:    repo,
		userID:  userID,
		logger:  infra.OrNop(logger),
		timeout: 15 * time.Second,
		newID:   uuid.NewString,
	}
}

func (s *Sink) Publish(res generation.Result) {
	if res.Status != generation.StatusSuccess || res.Image == nil || len(res.Image.Data) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	mimeType := res.Image.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	log := s.logger.With().Str("batch_id", res.BatchID).Str("item_id", res.ID).Logger()

	key, err := s.blobs.Write(ctx, storage.ImageKey(s.userID, res.BatchID, res.ID, mimeType), res.Image.Data)
	if err != nil {
		log.Error().Err(err).Msg("history: store image failed")
		return
	}
	entry := &domain.HistoryEntry{
		ID:          s.newID(),
		UserID:      s.userID,
		BatchID:     res.BatchID,
		Provider:    res.Provider,
		Prompt:      res.Prompt,
		AspectRatio: res.AspectRatio,
		StorageKey:  key,
		MIMEType:    mimeType,
	}
	if err := s.repo.Insert(ctx, entry); err != nil {
		log.Error().Err(err).Str("storage_key", key).Msg("history: insert failed")
		return
	}
	log.Debug().Str("history_id", entry.ID).Str("storage_key", key).Msg("history: recorded")
}

var _ generation.Sink = (*Sink)(nil)
