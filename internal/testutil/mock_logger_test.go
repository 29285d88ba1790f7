package testutil_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/platemap/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/platemap/internal/testutil"
)

func TestMockLogger(t *testing.T) {
	logger := testutil.NewMockLogger()

	logger.Info("test info", logging.String("key", "value"))

	messages := logger.GetMessages()
	require.Len(t, messages, 1)
	assert.Equal(t, "info", messages[0].Level)
	assert.Equal(t, "test info", messages[0].Message)

	logger.Clear()
	assert.Empty(t, logger.GetMessages())

	logger.Error("test error")
	assert.True(t, logger.HasMessage("error", "test error"))
	assert.False(t, logger.HasMessage("info", "test info"))
}

func TestMockLogger_ChildrenShareRecord(t *testing.T) {
	root := testutil.NewMockLogger()
	child := root.Named("pipeline").With(logging.String("run_id", "r1")).Named("publish")

	child.Warn("artifact upload failed", logging.Int("files", 3))
	root.WithError(errors.New("boom")).Debug("retry")

	warns := root.Filter("warn")
	require.Len(t, warns, 1)
	assert.Equal(t, "pipeline.publish", warns[0].Logger)

	runID, ok := warns[0].Field("run_id")
	require.True(t, ok)
	assert.Equal(t, "r1", runID)
	files, ok := warns[0].Field("files")
	require.True(t, ok)
	assert.Equal(t, 3, files)

	_, ok = root.Filter("debug")[0].Field("error")
	assert.True(t, ok)
}

func TestMockLogger_FatalDoesNotExit(t *testing.T) {
	logger := testutil.NewMockLogger()
	logger.Fatal("stop")
	assert.True(t, logger.HasMessage("fatal", "stop"))
}

var _ logging.Logger = (*testutil.MockLogger)(nil)

//Personal.AI order the ending
