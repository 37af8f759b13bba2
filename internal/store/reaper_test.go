package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaper_SweepsRegisteredStores(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ms := NewMemoryStore[widget]()
	require.NoError(t, ms.Set(context.Background(), "a", widget{Name: "a"}, time.Millisecond))

	r := NewReaper(5 * time.Millisecond)
	r.Add(ms)

	go r.Run(ctx)
	time.Sleep(30 * time.Millisecond)
	cancel()

	ms.mu.Lock()
	_, present := ms.data["a"]
	ms.mu.Unlock()
	assert.False(t, present, "reaper should have evicted the expired key")
}

type panickyTarget struct{}

func (panickyTarget) ReapExpired(time.Time) int { panic("boom") }

func TestReaper_SurvivesPanickingTarget(t *testing.T) {
	t.Parallel()
	r := NewReaper(time.Millisecond)
	r.Add(panickyTarget{})

	assert.NotPanics(t, func() { r.sweep() }, "a reaper failure must be swallowed, never crash the task")
}
