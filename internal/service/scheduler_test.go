package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jjenkins/billpulse/internal/logger"
)

func TestScheduler_RunsJobsUntilCanceled(t *testing.T) {
	// Arrange
	var fast, failing int32
	ctx, cancel := context.WithCancel(context.Background())
	scheduler := NewScheduler(logger.Nop(),
		Job{Name: "fast", Every: 5 * time.Millisecond, Run: func(context.Context) error {
			atomic.AddInt32(&fast, 1)
			return nil
		}},
		Job{Name: "failing", Every: 5 * time.Millisecond, Run: func(context.Context) error {
			atomic.AddInt32(&failing, 1)
			return errors.New("upstream down")
		}},
	)

	done := make(chan error, 1)
	go func() { done <- scheduler.Run(ctx) }()

	// Act
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&fast) >= 2 && atomic.LoadInt32(&failing) >= 2
	}, 2*time.Second, 5*time.Millisecond)
	cancel()

	// Assert
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}

func TestScheduler_JobsDoNotOverlap(t *testing.T) {
	var mu sync.Mutex
	running, maxRunning, runs := 0, 0, 0
	track := func(context.Context) error {
		mu.Lock()
		running++
		runs++
		if running > maxRunning {
			maxRunning = running
		}
		mu.Unlock()

		time.Sleep(3 * time.Millisecond)

		mu.Lock()
		running--
		mu.Unlock()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	scheduler := NewScheduler(logger.Nop(),
		Job{Name: "a", Every: time.Millisecond, Run: track},
		Job{Name: "b", Every: time.Millisecond, Run: track},
	)
	done := make(chan error, 1)
	go func() { done <- scheduler.Run(ctx) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return runs >= 6
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, maxRunning)
}

func TestScheduler_CancelsJobAfterTimeout(t *testing.T) {
	// Arrange
	deadlines := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	scheduler := NewScheduler(logger.Nop(),
		Job{Name: "slow", Every: time.Millisecond, Timeout: 10 * time.Millisecond, Run: func(ctx context.Context) error {
			<-ctx.Done()
			select {
			case deadlines <- ctx.Err():
			default:
			}
			return ctx.Err()
		}},
	)

	// Act
	go scheduler.Run(ctx)

	// Assert
	select {
	case err := <-deadlines:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not canceled at its timeout")
	}
}

func TestJob_DefaultTimeout(t *testing.T) {
	assert.Equal(t, DefaultJobTimeout, Job{Name: "plain"}.timeout())
	assert.Equal(t, time.Minute, Job{Name: "bounded", Timeout: time.Minute}.timeout())
}
