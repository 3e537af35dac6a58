package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/kotoba-api/internal/config"
	"github.com/phrazzld/kotoba-api/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// runRoot executes the root command with args and returns stdout and the
// error. Configuration comes from the environment only.
func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("KOTOBA_AUTH_JWT_SECRET", testSecret)
	learnerID := uuid.New()

	out, err := runRoot(t, "token", learnerID.String())
	require.NoError(t, err)

	token := strings.TrimSpace(out)
	require.NotEmpty(t, token)

	jwtService, err := auth.NewJWTService(config.AuthConfig{JWTSecret: testSecret, TokenLifetimeMinutes: 60})
	require.NoError(t, err)
	claims, err := jwtService.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, learnerID, claims.LearnerID)
}

func TestTokenCommand_InvalidLearnerID(t *testing.T) {
	t.Setenv("KOTOBA_AUTH_JWT_SECRET", testSecret)

	for _, arg := range []string{"not-a-uuid", uuid.Nil.String()} {
		_, err := runRoot(t, "token", arg)
		require.Error(t, err, arg)
		assert.Contains(t, err.Error(), "invalid learner id")
	}
}

func TestTokenCommand_MissingSecret(t *testing.T) {
	t.Setenv("KOTOBA_AUTH_JWT_SECRET", "")

	_, err := runRoot(t, "token", uuid.New().String())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func TestEnvFileIsLoaded(t *testing.T) {
	// Unset so the dotenv value applies; godotenv never overrides.
	t.Setenv("KOTOBA_AUTH_JWT_SECRET", "")
	require.NoError(t, os.Unsetenv("KOTOBA_AUTH_JWT_SECRET"))

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("KOTOBA_AUTH_JWT_SECRET="+testSecret+"\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("KOTOBA_AUTH_JWT_SECRET") })

	var stdout bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--env-file", envFile, "token", uuid.New().String()})

	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	require.NoError(t, cmd.Execute())
	assert.NotEmpty(t, strings.TrimSpace(stdout.String()))
}

func TestMigrateCommand_UnknownCommand(t *testing.T) {
	_, err := runRoot(t, "migrate", "sideways")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown migration command "sideways"`)
}

func TestMigrateCommand_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("KOTOBA_AUTH_JWT_SECRET", testSecret)
	t.Setenv("KOTOBA_DATABASE_URL", "")

	_, err := runRoot(t, "migrate", "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database url is required")
}

func TestMigrateCreateCommand(t *testing.T) {
	dir := t.TempDir()

	_, err := runRoot(t, "migrate", "create", "add_level_index", "--dir", dir)
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(dir, "*_add_level_index.sql"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestServeCommand_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("KOTOBA_AUTH_JWT_SECRET", testSecret)
	t.Setenv("KOTOBA_DATABASE_URL", "")

	_, err := runRoot(t, "serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database url is required unless --memory is set")
}
