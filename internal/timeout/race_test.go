package timeout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRace_CallWins(t *testing.T) {
	v, err := Race(context.Background(), time.Second, func(context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestRace_CallError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Race(context.Background(), time.Second, func(context.Context) (string, error) {
		return "", boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestRace_TimerWins(t *testing.T) {
	start := time.Now()
	v, err := Race(context.Background(), 20*time.Millisecond, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 7, nil
	})
	assert.ErrorIs(t, err, ErrTimedOut)
	assert.Zero(t, v)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRace_ParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Race(ctx, time.Second, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCell_SingleWinner(t *testing.T) {
	c := newCell[int]()
	var wg sync.WaitGroup
	wins := make(chan int, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if c.deliver(outcome[int]{value: i}) {
				wins <- i
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	var winners []int
	for w := range wins {
		winners = append(winners, w)
	}
	require.Len(t, winners, 1)
	o := <-c.ch
	assert.Equal(t, winners[0], o.value)
}

func TestSleep(t *testing.T) {
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}
