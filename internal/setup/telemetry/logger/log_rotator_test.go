package logger_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lunalog/lunalog/internal/setup/telemetry/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogRotatorKeepsTail(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "main.log")
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	require.NoError(t, err)

	rotator := logger.NewLogRotator(file, 3, path)
	for i := range 6 {
		_, err := fmt.Fprintf(rotator, "line %d\n", i)
		require.NoError(t, err)
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "line 3\nline 4\nline 5\n", string(data))

	// Writes continue after rotation.
	_, err = rotator.Write([]byte("line 6\n"))
	require.NoError(t, err)

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "line 5\nline 6\n"))
}

func TestLogRotatorMultiLineWrite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "main.log")
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	require.NoError(t, err)

	rotator := logger.NewLogRotator(file, 2, path)
	_, err = rotator.Write([]byte("a\nb\nc\nd\n"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "c\nd\n", string(data))
}

func TestLogRotatorDisabled(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	rotator := logger.NewLogRotator(&sb, 0, "")
	for range 10 {
		_, err := rotator.Write([]byte("x\n"))
		require.NoError(t, err)
	}
	assert.Equal(t, strings.Repeat("x\n", 10), sb.String())
}
