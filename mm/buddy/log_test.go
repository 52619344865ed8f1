package buddy

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/pagekit/internal/logger"
)

func TestLogging_SplitMergeAndFreeTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, logger.Init(logger.Options{Enabled: true, Writer: &buf, Level: slog.LevelDebug}))
	saved := logAlloc
	logAlloc = true
	t.Cleanup(func() {
		logAlloc = saved
		_ = logger.Init(logger.Options{})
	})

	p := newTestPool(t, 4)
	c, err := p.Allocate(0)
	require.NoError(t, err)
	require.NoError(t, p.Free(c))
	p.FreeBytes()

	out := buf.String()
	require.Contains(t, out, "msg=split")
	require.Contains(t, out, "msg=merge")
	require.Contains(t, out, `msg="buddy memory chunk"`)
}

func TestLogging_EveryRefusal(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, logger.Init(logger.Options{Enabled: true, Writer: &buf, Level: slog.LevelDebug}))
	saved := logAlloc
	logAlloc = true
	t.Cleanup(func() {
		logAlloc = saved
		_ = logger.Init(logger.Options{})
	})

	// Order-0 pages stay free while the larger request is refused.
	p := newTestPool(t, 3)
	_, err := p.Allocate(2)
	require.ErrorIs(t, err, ErrNoSpace)
	require.NotZero(t, p.FreeBytes())

	out := buf.String()
	require.Contains(t, out, `msg="allocation refused"`)
	require.Contains(t, out, "order=2")
}

func TestLogging_CorruptionLoggedAtError(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, logger.Init(logger.Options{Enabled: true, Writer: &buf, Level: slog.LevelError}))
	t.Cleanup(func() { _ = logger.Init(logger.Options{}) })

	p := newTestPool(t, 2)
	c, err := p.Allocate(0)
	require.NoError(t, err)
	require.NoError(t, p.Free(c))
	require.Error(t, p.Free(c))

	require.Contains(t, buf.String(), "level=ERROR")
	require.Contains(t, buf.String(), "op=free")
}
