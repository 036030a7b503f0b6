package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()

	logger, err := New(Config{
		Level:    "debug",
		Dir:      tmpDir,
		Filename: "test.log",
	})

	assert.NoError(t, err)
	assert.NotNil(t, logger)

	err = logger.Close()
	assert.NoError(t, err)
}

func TestLogger_InfoWritesFile(t *testing.T) {
	tmpDir := t.TempDir()

	logger, err := New(Config{
		Level:    "info",
		Dir:      tmpDir,
		Filename: "info.log",
	})
	require.NoError(t, err)
	defer logger.Close()

	testMsg := "transcription finished"
	logger.Info(testMsg)

	time.Sleep(10 * time.Millisecond)

	content, err := os.ReadFile(filepath.Join(tmpDir, "info.log"))
	require.NoError(t, err)
	assert.Contains(t, string(content), testMsg)
}

func TestLogger_TagHelpers(t *testing.T) {
	tmpDir := t.TempDir()

	logger, err := New(Config{
		Level:    "info",
		Dir:      tmpDir,
		Filename: "tag.log",
	})
	require.NoError(t, err)
	defer logger.Close()

	logger.InfoTag("PIPE", "run started")

	time.Sleep(10 * time.Millisecond)

	content, err := os.ReadFile(filepath.Join(tmpDir, "tag.log"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "[PIPE] run started")
}

func TestFormatTag(t *testing.T) {
	assert.Equal(t, "[STT] sent", FormatTag("STT", "sent"))
	assert.Equal(t, "[STT] already tagged", FormatTag("LLM", "[STT] already tagged"))
	assert.Equal(t, "plain", FormatTag("", "plain"))
}

func TestLogger_LevelFiltering(t *testing.T) {
	tmpDir := t.TempDir()

	logger, err := New(Config{
		Level:    "error",
		Dir:      tmpDir,
		Filename: "lvl.log",
	})
	require.NoError(t, err)
	defer logger.Close()

	logger.Info("should be filtered")
	logger.Error("should be written")

	time.Sleep(10 * time.Millisecond)

	content, err := os.ReadFile(filepath.Join(tmpDir, "lvl.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(content), "should be filtered")
	assert.Contains(t, string(content), "should be written")
}
