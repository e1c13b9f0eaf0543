package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/multiio/internal/config"
	"github.com/roach88/multiio/internal/format"
)

func TestClockStartsAfterResumePoint(t *testing.T) {
	assert.Equal(t, int64(0), NewClock().Current())

	c := NewClockAt(41)
	assert.Equal(t, int64(41), c.Current())
	assert.Equal(t, int64(42), c.Next())
	assert.Equal(t, int64(43), c.Next())
	assert.Equal(t, int64(43), c.Current())
}

func TestClockConcurrentNextIsUnique(t *testing.T) {
	c := NewClock()
	const workers, calls = 50, 200

	var wg sync.WaitGroup
	seqs := make(chan int64, workers*calls)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range calls {
				seqs <- c.Next()
			}
		}()
	}
	wg.Wait()
	close(seqs)

	seen := make(map[int64]bool)
	for seq := range seqs {
		assert.False(t, seen[seq], "seq %d handed out twice", seq)
		seen[seq] = true
	}
	assert.Len(t, seen, workers*calls)
	assert.Equal(t, int64(workers*calls), c.Current())
}

func TestRunsShareClock(t *testing.T) {
	clock := NewClockAt(5)
	var seqs []int64
	for name, newEngine := range engines {
		t.Run(name, func(t *testing.T) {
			_, out := memOut("out", "out.json")
			e := newEngine(format.NewDefault(), config.Accumulate,
				[]Input{stub("in", "in.json", "1", nil)}, []Output{out}, WithClock(clock))

			report, err := e.Run(context.Background())
			require.NoError(t, err)
			seqs = append(seqs, report.Seq)
		})
	}
	assert.ElementsMatch(t, []int64{6, 7}, seqs)
}
