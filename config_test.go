package querycore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 4096, cfg.Execution.BatchSize)
}

func TestConfigValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Execution.BatchSize = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Execution.Concurrency = -1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Logging.SlowQueryThreshold = -1
	assert.Error(t, cfg.Validate())
}
