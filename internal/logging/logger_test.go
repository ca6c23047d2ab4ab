package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_RingBufferBounded(t *testing.T) {
	l := New(WithCapacity(3), WithColorize(false))

	for i := 0; i < 5; i++ {
		l.Info(CategorySystem, "t1", "msg", nil)
	}

	entries := l.Read(Filter{})
	require.Len(t, entries, 3, "ring buffer should cap at capacity")
	assert.Equal(t, uint64(3), entries[0].Seq, "oldest surviving entry should be the 3rd write")
	assert.Equal(t, uint64(5), entries[2].Seq)
}

func TestLogger_FilterByCategoryAndLevel(t *testing.T) {
	l := New(WithColorize(false))

	l.Info(CategoryLLM, "trace-a", "llm call", nil)
	l.Error(CategoryTool, "trace-a", "tool failed", nil)
	l.Debug(CategoryLLM, "trace-b", "debug detail", nil)

	got := l.Read(Filter{Category: CategoryLLM})
	require.Len(t, got, 2)

	got = l.Read(Filter{Level: LevelError})
	require.Len(t, got, 1)
	assert.Equal(t, CategoryTool, got[0].Category)
}

func TestLogger_TraceOrderingMonotonic(t *testing.T) {
	l := New(WithColorize(false))

	for i := 0; i < 10; i++ {
		l.Info(CategoryRequest, "trace-x", "step", nil)
	}

	got := l.Read(Filter{TraceID: "trace-x"})
	require.Len(t, got, 10)
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i].Seq, got[i-1].Seq)
	}
}

func TestLogger_UnknownCategoryFallsBackToSystem(t *testing.T) {
	l := New(WithColorize(false))
	l.Log(LevelInfo, Category("bogus"), "", "msg", nil)

	got := l.Read(Filter{})
	require.Len(t, got, 1)
	assert.Equal(t, CategorySystem, got[0].Category)
}

func TestLogger_Subscribe(t *testing.T) {
	l := New(WithColorize(false))
	ch, cancel := l.Subscribe(4)
	defer cancel()

	l.Info(CategorySystem, "", "hello", nil)

	select {
	case e := <-ch:
		assert.Equal(t, "hello", e.Message)
	default:
		t.Fatal("expected subscriber to receive entry")
	}
}

func TestMetricsRegistry_RecordsAveragesAndCounts(t *testing.T) {
	m := NewMetricsRegistry()
	m.Record("providerA", true, 100)
	m.Record("providerA", false, 200)
	m.Record("providerA", true, 300)

	got := m.Get("providerA")
	assert.Equal(t, int64(3), got.TotalCalls)
	assert.Equal(t, int64(2), got.Successes)
	assert.Equal(t, int64(1), got.Failures)
	assert.InDelta(t, 200.0, got.AverageMs, 0.001)
}

func TestMetricsRegistry_UnknownComponentIsZeroValue(t *testing.T) {
	m := NewMetricsRegistry()
	got := m.Get("missing")
	assert.Equal(t, int64(0), got.TotalCalls)
}
