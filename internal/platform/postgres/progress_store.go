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

// PostgresProgressStore implements the store.ProgressStore interface
// using a PostgreSQL database as the storage backend. Progress lives in
// learner_progress and cards in review_cards; SaveProgress writes both in
// one transaction guarded by the version column.
type PostgresProgressStore struct {
	db     store.DBTX
	sqlDB  *sql.DB // nil when db is already a transaction
	logger *slog.Logger
}

// NewPostgresProgressStore creates a new PostgreSQL implementation of the ProgressStore interface.
// When db is a *sql.DB, SaveProgress opens its own transaction; otherwise it
// runs on db and the caller owns the transaction.
func NewPostgresProgressStore(db store.DBTX, logger *slog.Logger) *PostgresProgressStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	sqlDB, _ := db.(*sql.DB)
	return &PostgresProgressStore{
		db:     db,
		sqlDB:  sqlDB,
		logger: logger.With(slog.String("component", "progress_store")),
	}
}

// Ensure PostgresProgressStore implements store.ProgressStore interface
var _ store.ProgressStore = (*PostgresProgressStore)(nil)

// WithTx returns a store that runs every statement on tx.
func (s *PostgresProgressStore) WithTx(tx *sql.Tx) *PostgresProgressStore {
	return &PostgresProgressStore{db: tx, logger: s.logger}
}

// GetOrCreateProgress implements store.ProgressStore.GetOrCreateProgress.
// The insert is ON CONFLICT DO NOTHING, so concurrent first requests for a
// learner converge on one record.
func (s *PostgresProgressStore) GetOrCreateProgress(
	ctx context.Context,
	learnerID uuid.UUID,
	defaults *domain.LearnerProgress,
) (*domain.LearnerProgress, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("learner_id", learnerID.String()))

	if defaults == nil || defaults.LearnerID != learnerID {
		return nil, fmt.Errorf("%w: defaults must belong to learner %s", store.ErrInvalidEntity, learnerID)
	}

	params, err := json.Marshal(defaults.SchedulerParams)
	if err != nil {
		return nil, fmt.Errorf("failed to encode scheduler params: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO learner_progress (
			learner_id, level, last_lesson_position, maximum_lessons_per_day, lessons_per_session,
			lessons_today_date, lessons_today_count, scheduler_params, version, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (learner_id) DO NOTHING
	`,
		learnerID,
		defaults.Level,
		defaults.LastLessonPosition,
		defaults.Settings.MaximumLessonsPerDay,
		defaults.Settings.LessonsPerSession,
		defaults.LessonsToday.Date,
		defaults.LessonsToday.Count,
		params,
		defaults.Version,
		defaults.CreatedAt,
		defaults.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create progress", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		log.Info("created learner progress")
	}

	return s.load(ctx, log, learnerID)
}

func (s *PostgresProgressStore) load(
	ctx context.Context,
	log *slog.Logger,
	learnerID uuid.UUID,
) (*domain.LearnerProgress, error) {
	var (
		p      domain.LearnerProgress
		params []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT learner_id, level, last_lesson_position, maximum_lessons_per_day, lessons_per_session,
			lessons_today_date, lessons_today_count, scheduler_params, version, created_at, updated_at
		FROM learner_progress
		WHERE learner_id = $1
	`, learnerID).Scan(
		&p.LearnerID,
		&p.Level,
		&p.LastLessonPosition,
		&p.Settings.MaximumLessonsPerDay,
		&p.Settings.LessonsPerSession,
		&p.LessonsToday.Date,
		&p.LessonsToday.Count,
		&params,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrProgressNotFound
		}
		log.Error("failed to load progress", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	if err := json.Unmarshal(params, &p.SchedulerParams); err != nil {
		return nil, fmt.Errorf("failed to decode scheduler params: %w", err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()

	cards, err := s.loadCards(ctx, learnerID)
	if err != nil {
		log.Error("failed to load cards", slog.String("error", err.Error()))
		return nil, err
	}
	p.Cards = cards

	log.Debug("loaded learner progress",
		slog.Int("level", p.Level),
		slog.Int("cards", len(p.Cards)),
		slog.Int64("version", p.Version))
	return &p, nil
}

func (s *PostgresProgressStore) loadCards(ctx context.Context, learnerID uuid.UUID) ([]domain.ReviewCard, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT subject_type, subject_id, aspect, due, stability, difficulty,
			elapsed_days, scheduled_days, reps, lapses, state, last_review
		FROM review_cards
		WHERE learner_id = $1
		ORDER BY due, subject_id, aspect
	`, learnerID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	cards := []domain.ReviewCard{}
	for rows.Next() {
		var (
			c          domain.ReviewCard
			typ        string
			aspect     string
			state      string
			lastReview sql.NullTime
		)
		if err := rows.Scan(
			&typ,
			&c.SubjectID,
			&aspect,
			&c.Due,
			&c.Stability,
			&c.Difficulty,
			&c.ElapsedDays,
			&c.ScheduledDays,
			&c.Reps,
			&c.Lapses,
			&state,
			&lastReview,
		); err != nil {
			return nil, err
		}
		c.SubjectType = domain.SubjectType(typ)
		c.Aspect = domain.Aspect(aspect)
		c.State = domain.CardState(state)
		c.Due = c.Due.UTC()
		if lastReview.Valid {
			lr := lastReview.Time.UTC()
			c.LastReview = &lr
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return cards, nil
}

// SaveProgress implements store.ProgressStore.SaveProgress.
func (s *PostgresProgressStore) SaveProgress(
	ctx context.Context,
	progress *domain.LearnerProgress,
	changed []domain.CardKey,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("learner_id", progress.LearnerID.String()),
		slog.Int64("version", progress.Version))

	for _, key := range changed {
		card := progress.Card(key)
		if card == nil {
			return fmt.Errorf("%w: %s", store.ErrCardNotFound, key)
		}
		if err := card.Validate(); err != nil {
			return fmt.Errorf("%w: card %s: %v", store.ErrInvalidEntity, key, err)
		}
	}

	save := func(ctx context.Context, db store.DBTX) error {
		return s.save(ctx, db, progress, changed)
	}

	var err error
	if s.sqlDB != nil {
		err = store.RunInTransaction(ctx, s.sqlDB, func(ctx context.Context, tx *sql.Tx) error {
			return save(ctx, tx)
		})
	} else {
		err = save(ctx, s.db)
	}
	if err != nil {
		if errors.Is(err, store.ErrConcurrentUpdate) {
			log.Debug("progress changed concurrently")
		} else {
			log.Error("failed to save progress", slog.String("error", err.Error()))
		}
		return err
	}

	progress.Version++
	log.Debug("saved learner progress", slog.Int("changed_cards", len(changed)))
	return nil
}

func (s *PostgresProgressStore) save(
	ctx context.Context,
	db store.DBTX,
	p *domain.LearnerProgress,
	changed []domain.CardKey,
) error {
	params, err := json.Marshal(p.SchedulerParams)
	if err != nil {
		return fmt.Errorf("failed to encode scheduler params: %w", err)
	}

	result, err := db.ExecContext(ctx, `
		UPDATE learner_progress SET
			level = $2,
			last_lesson_position = $3,
			maximum_lessons_per_day = $4,
			lessons_per_session = $5,
			lessons_today_date = $6,
			lessons_today_count = $7,
			scheduler_params = $8,
			updated_at = $9,
			version = version + 1
		WHERE learner_id = $1 AND version = $10
	`,
		p.LearnerID,
		p.Level,
		p.LastLessonPosition,
		p.Settings.MaximumLessonsPerDay,
		p.Settings.LessonsPerSession,
		p.LessonsToday.Date,
		p.LessonsToday.Count,
		params,
		time.Now().UTC(),
		p.Version,
	)
	if err != nil {
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "progress"); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		var exists bool
		if err := db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM learner_progress WHERE learner_id = $1)`, p.LearnerID,
		).Scan(&exists); err != nil {
			return MapError(err)
		}
		if !exists {
			return store.ErrProgressNotFound
		}
		return store.ErrConcurrentUpdate
	}

	for _, key := range changed {
		if err := upsertCard(ctx, db, p.LearnerID, p.Card(key)); err != nil {
			return err
		}
	}
	return nil
}

func upsertCard(ctx context.Context, db store.DBTX, learnerID uuid.UUID, c *domain.ReviewCard) error {
	var lastReview sql.NullTime
	if c.LastReview != nil {
		lastReview = sql.NullTime{Time: *c.LastReview, Valid: true}
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO review_cards (
			learner_id, subject_id, aspect, subject_type, due, stability, difficulty,
			elapsed_days, scheduled_days, reps, lapses, state, last_review
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (learner_id, subject_id, aspect) DO UPDATE SET
			due = EXCLUDED.due,
			stability = EXCLUDED.stability,
			difficulty = EXCLUDED.difficulty,
			elapsed_days = EXCLUDED.elapsed_days,
			scheduled_days = EXCLUDED.scheduled_days,
			reps = EXCLUDED.reps,
			lapses = EXCLUDED.lapses,
			state = EXCLUDED.state,
			last_review = EXCLUDED.last_review
	`,
		learnerID,
		c.SubjectID,
		string(c.Aspect),
		string(c.SubjectType),
		c.Due.UTC(),
		c.Stability,
		c.Difficulty,
		c.ElapsedDays,
		c.ScheduledDays,
		c.Reps,
		c.Lapses,
		string(c.State),
		lastReview,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: %v", store.ErrSubjectNotFound, err)
		}
		return MapError(err)
	}
	return nil
}
