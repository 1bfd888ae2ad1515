package journal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureMirror struct {
	events []Event
	err    error
}

func (m *captureMirror) Publish(e Event) error {
	m.events = append(m.events, e)
	return m.err
}

func (m *captureMirror) Close() error { return nil }

func TestAppendAndReadBack(t *testing.T) {
	j, err := Open(":memory:")
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	require.NoError(t, j.Append(ctx, "run-1", EventRunStarted, map[string]string{"project": "acme"}))
	require.NoError(t, j.Append(ctx, "run-1", EventPlanReady, map[string]int{"sections": 5}))
	require.NoError(t, j.Append(ctx, "run-2", EventRunStarted, nil))

	events, err := j.EventsForRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventRunStarted, events[0].EventType)
	assert.Equal(t, EventPlanReady, events[1].EventType)
	assert.JSONEq(t, `{"sections":5}`, string(events[1].Payload))
	assert.Less(t, events[0].ID, events[1].ID)
}

func TestRunsNewestFirst(t *testing.T) {
	j, err := Open(":memory:")
	require.NoError(t, err)
	defer j.Close()

	ts := time.Now().Unix()
	j.now = func() time.Time { return time.Unix(ts, 0) }
	require.NoError(t, j.Append(context.Background(), "old-run", EventRunStarted, nil))
	j.now = func() time.Time { return time.Unix(ts+60, 0) }
	require.NoError(t, j.Append(context.Background(), "new-run", EventRunStarted, nil))

	runs, err := j.Runs(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, []string{"new-run", "old-run"}, runs)
}

func TestMirrorReceivesCopies(t *testing.T) {
	j, err := Open(":memory:")
	require.NoError(t, err)
	defer j.Close()

	mirror := &captureMirror{}
	j.WithMirror(mirror)

	require.NoError(t, j.Append(context.Background(), "run-1", EventSectionWritten, nil))
	require.Len(t, mirror.events, 1)
	assert.Equal(t, "run-1", mirror.events[0].RunID)
	assert.Equal(t, EventSectionWritten, mirror.events[0].EventType)
}

func TestMirrorFailureDoesNotFailAppend(t *testing.T) {
	j, err := Open(":memory:")
	require.NoError(t, err)
	defer j.Close()

	j.WithMirror(&captureMirror{err: assert.AnError})
	require.NoError(t, j.Append(context.Background(), "run-1", EventRunStarted, nil))

	events, err := j.EventsForRun(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestEventsForUnknownRun(t *testing.T) {
	j, err := Open(":memory:")
	require.NoError(t, err)
	defer j.Close()

	events, err := j.EventsForRun(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, events)
}
