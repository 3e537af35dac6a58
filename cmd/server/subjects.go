package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/phrazzld/kotoba-api/internal/domain"
)

// subjectSeeder is implemented by the subject stores that accept writes.
type subjectSeeder interface {
	UpsertSubjects(ctx context.Context, subjects []domain.Subject) error
}

// loadSubjects reads a JSON array of subjects from path and validates each.
func loadSubjects(path string) ([]domain.Subject, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open subjects file: %w", err)
	}
	defer f.Close()

	var subjects []domain.Subject
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&subjects); err != nil {
		return nil, fmt.Errorf("failed to decode subjects file %s: %w", path, err)
	}

	seen := make(map[int64]struct{}, len(subjects))
	for i := range subjects {
		if err := subjects[i].Validate(); err != nil {
			return nil, fmt.Errorf("subject %d in %s: %w", i, path, err)
		}
		if _, dup := seen[subjects[i].ID]; dup {
			return nil, fmt.Errorf("subject %d in %s: duplicate id %d", i, path, subjects[i].ID)
		}
		seen[subjects[i].ID] = struct{}{}
	}
	return subjects, nil
}

// seedSubjects loads path into seeder.
func seedSubjects(ctx context.Context, seeder subjectSeeder, path string) (int, error) {
	subjects, err := loadSubjects(path)
	if err != nil {
		return 0, err
	}
	if err := seeder.UpsertSubjects(ctx, subjects); err != nil {
		return 0, fmt.Errorf("failed to store subjects: %w", err)
	}
	return len(subjects), nil
}
