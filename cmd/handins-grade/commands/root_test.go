package commands

import (
	"bytes"
	"context"
	"errors"
	"handins-grader/internal/config"
	"handins-grader/internal/handins"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func execute(t testing.TB, args ...string) (string, error) {
	t.Helper()
	stdout, stderr, err := executeWithInput(t, "", args...)
	return stdout + stderr, err
}

func executeWithInput(t testing.TB, input string, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		*configPath = ""
		*debug = false
		*dumpDir = ""
	})

	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestCoursesCommand(t *testing.T) {
	out, err := execute(t, "courses")
	require.NoError(t, err)
	for _, course := range handins.Courses() {
		require.Contains(t, out, course.Name)
	}
	require.Contains(t, out, "cs2510a")
}

func TestUnknownCourse(t *testing.T) {
	_, err := execute(t, "cs2501")
	require.ErrorIs(t, err, handins.ErrUnknownCourse)
	require.Contains(t, err.Error(), "cs2510")
}

func TestInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "handins.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{ requests_per_second: -2 }`), 0600))

	_, err := execute(t, "--config", path, "cs2510")
	require.ErrorContains(t, err, "requests_per_second")
}

func TestTooManyArgs(t *testing.T) {
	_, err := execute(t, "cs2510", "cs2510a")
	require.Error(t, err)
}

func TestPromptStaysOffStdout(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseUrl := server.URL
	server.Close()
	t.Setenv(config.EnvBaseUrl, baseUrl)

	stdout, stderr, err := executeWithInput(t, "student\nhunter2\n", "cs2510")

	var authErr *handins.AuthError
	require.True(t, errors.As(err, &authErr), err)
	require.Empty(t, stdout)
	require.Contains(t, stderr, "username: ")
	require.Contains(t, stderr, "password: ")
	require.NotContains(t, stderr, "hunter2")
}
