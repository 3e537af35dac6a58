package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/kotoba-api/internal/domain"
	"github.com/phrazzld/kotoba-api/internal/platform/logger"
	"github.com/phrazzld/kotoba-api/internal/store"
)

const subjectColumns = `id, subject_type, level, lesson_position, characters, meanings, readings`

// PostgresSubjectStore implements the store.SubjectStore interface
// using a PostgreSQL database as the storage backend.
type PostgresSubjectStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSubjectStore creates a new PostgreSQL implementation of the SubjectStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresSubjectStore(db store.DBTX, logger *slog.Logger) *PostgresSubjectStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresSubjectStore{
		db:     db,
		logger: logger.With(slog.String("component", "subject_store")),
	}
}

// Ensure PostgresSubjectStore implements store.SubjectStore interface
var _ store.SubjectStore = (*PostgresSubjectStore)(nil)

// GetByID implements store.SubjectStore.GetByID.
func (s *PostgresSubjectStore) GetByID(ctx context.Context, id int64) (*domain.Subject, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	row := s.db.QueryRowContext(ctx, `SELECT `+subjectColumns+` FROM subjects WHERE id = $1`, id)
	subject, err := scanSubject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("subject not found", slog.Int64("subject_id", id))
			return nil, store.ErrSubjectNotFound
		}
		log.Error("failed to get subject by ID",
			slog.String("error", err.Error()),
			slog.Int64("subject_id", id))
		return nil, MapError(err)
	}
	return subject, nil
}

// ListByLevel implements store.SubjectStore.ListByLevel.
func (s *PostgresSubjectStore) ListByLevel(ctx context.Context, level int) ([]domain.Subject, error) {
	return s.query(ctx, "list subjects by level",
		`SELECT `+subjectColumns+` FROM subjects WHERE level = $1 ORDER BY lesson_position, id`,
		slog.Int("level", level), level)
}

// FindByCharacters implements store.SubjectStore.FindByCharacters.
func (s *PostgresSubjectStore) FindByCharacters(ctx context.Context, characters string) ([]domain.Subject, error) {
	if characters == "" {
		return []domain.Subject{}, nil
	}
	return s.query(ctx, "find subjects by characters",
		`SELECT `+subjectColumns+` FROM subjects WHERE characters = $1 ORDER BY id`,
		slog.String("characters", characters), characters)
}

// MaxLessonPosition implements store.SubjectStore.MaxLessonPosition.
func (s *PostgresSubjectStore) MaxLessonPosition(ctx context.Context, level int) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var maxPosition int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(lesson_position), $2) FROM subjects WHERE level = $1`,
		level, domain.BeforeFirstPosition,
	).Scan(&maxPosition)
	if err != nil {
		log.Error("failed to get max lesson position",
			slog.String("error", err.Error()),
			slog.Int("level", level))
		return 0, MapError(err)
	}
	return maxPosition, nil
}

// UpsertSubjects inserts subjects or replaces existing ones with the same ID.
// It is used to load curriculum content and is not part of store.SubjectStore.
func (s *PostgresSubjectStore) UpsertSubjects(ctx context.Context, subjects []domain.Subject) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	const query = `
		INSERT INTO subjects (` + subjectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			subject_type = EXCLUDED.subject_type,
			level = EXCLUDED.level,
			lesson_position = EXCLUDED.lesson_position,
			characters = EXCLUDED.characters,
			meanings = EXCLUDED.meanings,
			readings = EXCLUDED.readings
	`

	for i := range subjects {
		subject := &subjects[i]
		if err := subject.Validate(); err != nil {
			return fmt.Errorf("subject %d: %w", subject.ID, err)
		}
		meanings, err := json.Marshal(nonNil(subject.Meanings))
		if err != nil {
			return fmt.Errorf("failed to encode meanings of subject %d: %w", subject.ID, err)
		}
		readings, err := json.Marshal(nonNil(subject.Readings))
		if err != nil {
			return fmt.Errorf("failed to encode readings of subject %d: %w", subject.ID, err)
		}

		if _, err := s.db.ExecContext(ctx, query,
			subject.ID,
			string(subject.Type),
			subject.Level,
			subject.LessonPosition,
			subject.Characters,
			meanings,
			readings,
		); err != nil {
			log.Error("failed to upsert subject",
				slog.String("error", err.Error()),
				slog.Int64("subject_id", subject.ID))
			return MapError(err)
		}
	}

	log.Info("subjects upserted", slog.Int("count", len(subjects)))
	return nil
}

func (s *PostgresSubjectStore) query(
	ctx context.Context,
	op string,
	query string,
	attr slog.Attr,
	args ...any,
) ([]domain.Subject, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to "+op, slog.String("error", err.Error()), attr)
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	subjects := []domain.Subject{}
	for rows.Next() {
		subject, err := scanSubject(rows)
		if err != nil {
			log.Error("failed to scan subject row", slog.String("error", err.Error()))
			return nil, err
		}
		subjects = append(subjects, *subject)
	}
	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	log.Debug(op, attr, slog.Int("count", len(subjects)))
	return subjects, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubject(row rowScanner) (*domain.Subject, error) {
	var (
		subject  domain.Subject
		typ      string
		meanings []byte
		readings []byte
	)
	if err := row.Scan(
		&subject.ID,
		&typ,
		&subject.Level,
		&subject.LessonPosition,
		&subject.Characters,
		&meanings,
		&readings,
	); err != nil {
		return nil, err
	}

	subject.Type = domain.SubjectType(typ)
	if err := json.Unmarshal(meanings, &subject.Meanings); err != nil {
		return nil, fmt.Errorf("failed to decode meanings of subject %d: %w", subject.ID, err)
	}
	if err := json.Unmarshal(readings, &subject.Readings); err != nil {
		return nil, fmt.Errorf("failed to decode readings of subject %d: %w", subject.ID, err)
	}
	return &subject, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
