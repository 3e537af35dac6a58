package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/kotoba-api/internal/domain"
	"github.com/phrazzld/kotoba-api/internal/platform/logger"
	"github.com/phrazzld/kotoba-api/internal/store"
)

// PostgresSynonymStore implements the store.SynonymStore interface
// using a PostgreSQL database as the storage backend.
type PostgresSynonymStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSynonymStore creates a new PostgreSQL implementation of the SynonymStore interface.
func NewPostgresSynonymStore(db store.DBTX, logger *slog.Logger) *PostgresSynonymStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresSynonymStore{
		db:     db,
		logger: logger.With(slog.String("component", "synonym_store")),
	}
}

// Ensure PostgresSynonymStore implements store.SynonymStore interface
var _ store.SynonymStore = (*PostgresSynonymStore)(nil)

// GetSynonyms implements store.SynonymStore.GetSynonyms.
func (s *PostgresSynonymStore) GetSynonyms(ctx context.Context, learnerID uuid.UUID, subjectID int64) ([]string, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT synonyms FROM learner_synonyms WHERE learner_id = $1 AND subject_id = $2`,
		learnerID, subjectID,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []string{}, nil
		}
		log.Error("failed to get synonyms",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()),
			slog.Int64("subject_id", subjectID))
		return nil, MapError(err)
	}

	synonyms := []string{}
	if err := json.Unmarshal(raw, &synonyms); err != nil {
		return nil, fmt.Errorf("failed to decode synonyms: %w", err)
	}
	return synonyms, nil
}

// SetSynonyms implements store.SynonymStore.SetSynonyms. Entries are
// trimmed and empty ones dropped.
func (s *PostgresSynonymStore) SetSynonyms(
	ctx context.Context,
	learnerID uuid.UUID,
	subjectID int64,
	synonyms []string,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	raw, err := json.Marshal(domain.CleanSynonyms(synonyms))
	if err != nil {
		return fmt.Errorf("failed to encode synonyms: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO learner_synonyms (learner_id, subject_id, synonyms, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (learner_id, subject_id) DO UPDATE SET
			synonyms = EXCLUDED.synonyms,
			updated_at = EXCLUDED.updated_at
	`, learnerID, subjectID, raw, time.Now().UTC())
	if err != nil {
		if IsForeignKeyViolation(err) {
			return store.ErrSubjectNotFound
		}
		log.Error("failed to set synonyms",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()),
			slog.Int64("subject_id", subjectID))
		return MapError(err)
	}
	return nil
}
