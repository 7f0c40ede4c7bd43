package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		logger, err := New(Config{Level: level})
		require.NoError(t, err, level)
		assert.NotNil(t, logger.Logger)
	}

	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	l, err := parseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, l)

	l, err = parseLevel("bogus")
	assert.Error(t, err)
	assert.Equal(t, zapcore.InfoLevel, l)
}

func TestEncoding(t *testing.T) {
	assert.Equal(t, "console", encodingFormat(true))
	assert.Equal(t, "json", encodingFormat(false))
	assert.Equal(t, "message", encoderConfig(false).MessageKey)
	assert.Equal(t, "M", encoderConfig(true).MessageKey)
}

func TestDefaultsWriteToStderr(t *testing.T) {
	assert.Equal(t, []string{"stderr"}, DefaultConfig().OutputPaths)
	assert.Equal(t, []string{"stderr"}, DevelopmentConfig().OutputPaths)
	assert.NotNil(t, NewDefault())
	assert.NotNil(t, NewDevelopment())
}

func TestTaskLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := &Logger{Logger: zap.New(core)}

	log := base.WithRun("run_1").Task("consumer", 3, "cons_1")
	log.Debug("consumed")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "consumer", entries[0].LoggerName)

	fields := entries[0].ContextMap()
	assert.Equal(t, "run_1", fields["run_id"])
	assert.Equal(t, int64(3), fields["consumer"])
	assert.Equal(t, "cons_1", fields["task_id"])
}
