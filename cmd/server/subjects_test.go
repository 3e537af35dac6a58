package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/phrazzld/kotoba-api/internal/domain"
	"github.com/phrazzld/kotoba-api/internal/platform/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSubjects(t *testing.T) {
	t.Parallel()

	subjects, err := loadSubjects(writeSubjectsFile(t, testSubjects))
	require.NoError(t, err)
	require.Len(t, subjects, 2)
	assert.Equal(t, domain.SubjectTypeKanji, subjects[1].Type)
	assert.Equal(t, []string{"いち"}, subjects[1].AcceptedReadings())
}

func TestLoadSubjects_Errors(t *testing.T) {
	t.Parallel()

	write := func(t *testing.T, body string) string {
		path := filepath.Join(t.TempDir(), "subjects.json")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		return path
	}

	tests := []struct {
		name string
		path func(t *testing.T) string
		want string
	}{
		{
			name: "missing file",
			path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.json") },
			want: "failed to open subjects file",
		},
		{
			name: "malformed json",
			path: func(t *testing.T) string { return write(t, `[{"id": 1,`) },
			want: "failed to decode subjects file",
		},
		{
			name: "unknown field",
			path: func(t *testing.T) string { return write(t, `[{"id": 1, "colour": "red"}]`) },
			want: "failed to decode subjects file",
		},
		{
			name: "invalid subject",
			path: func(t *testing.T) string { return write(t, `[{"id": 0, "type": "kanji", "level": 1}]`) },
			want: "subject 0",
		},
		{
			name: "duplicate id",
			path: func(t *testing.T) string {
				return write(t, `[{"id": 3, "type": "radical", "level": 1},{"id": 3, "type": "kanji", "level": 1}]`)
			},
			want: "duplicate id 3",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := loadSubjects(tt.path(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSeedSubjects(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	subjects := memory.NewSubjectStore()

	n, err := seedSubjects(ctx, subjects, writeSubjectsFile(t, testSubjects))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := subjects.FindByCharacters(ctx, "一")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
