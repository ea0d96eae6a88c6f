package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_ExtractorConfig(t *testing.T) {
	// Setup environment variables
	os.Setenv("EXTRACTOR_BASE_URL", "http://test-extractor:9000")
	os.Setenv("EXTRACTOR_API_KEY", "test-key")
	defer func() {
		os.Unsetenv("EXTRACTOR_BASE_URL")
		os.Unsetenv("EXTRACTOR_API_KEY")
	}()

	// Load config
	cfg, err := Load()
	assert.NoError(t, err)

	// Verify extractor config
	assert.Equal(t, "http://test-extractor:9000", cfg.Extractor.BaseURL)
	assert.Equal(t, "test-key", cfg.Extractor.APIKey)
}

func TestLoad_Defaults(t *testing.T) {
	// Ensure env vars are cleared
	os.Unsetenv("EXTRACTOR_BASE_URL")
	os.Unsetenv("PROCESSING_TASK_TIMEOUT")
	os.Unsetenv("PROCESSING_MAX_CONCURRENT_TASKS")
	os.Unsetenv("STORAGE_BACKEND")

	cfg, err := Load()
	assert.NoError(t, err)

	// Verify defaults
	assert.Equal(t, "", cfg.Extractor.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Processing.TaskTimeout)
	assert.Equal(t, 0, cfg.Processing.MaxConcurrentTasks)
	assert.Equal(t, "postgres", cfg.Processing.StorageBackend)
}

func TestLoad_ProcessingOverrides(t *testing.T) {
	os.Setenv("PROCESSING_TASK_TIMEOUT", "5s")
	os.Setenv("PROCESSING_MAX_CONCURRENT_TASKS", "4")
	os.Setenv("STORAGE_BACKEND", "memory")
	defer func() {
		os.Unsetenv("PROCESSING_TASK_TIMEOUT")
		os.Unsetenv("PROCESSING_MAX_CONCURRENT_TASKS")
		os.Unsetenv("STORAGE_BACKEND")
	}()

	cfg, err := Load()
	assert.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Processing.TaskTimeout)
	assert.Equal(t, 4, cfg.Processing.MaxConcurrentTasks)
	assert.Equal(t, "memory", cfg.Processing.StorageBackend)
}
