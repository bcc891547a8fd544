package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/forgo/cityquest/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	calls int32
	err   error
	delay time.Duration
}

func (f *fakeSource) DispatchDue(ctx context.Context) (service.DispatchReport, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return service.DispatchReport{}, ctx.Err()
		}
	}
	if f.err != nil {
		return service.DispatchReport{}, f.err
	}
	return service.DispatchReport{Processed: 2, Sent: 2}, nil
}

func TestNewNotificationDispatcher_Schedule(t *testing.T) {
	t.Parallel()

	_, err := NewNotificationDispatcher(&fakeSource{}, "@every 1m")
	require.NoError(t, err)

	_, err = NewNotificationDispatcher(&fakeSource{}, "*/5 * * * *")
	require.NoError(t, err)

	d, err := NewNotificationDispatcher(&fakeSource{}, "")
	require.NoError(t, err)
	assert.Equal(t, "@every 1m", d.expr)

	_, err = NewNotificationDispatcher(&fakeSource{}, "every minute")
	assert.Error(t, err)
}

func TestRunOnce(t *testing.T) {
	t.Parallel()

	source := &fakeSource{}
	d, err := NewNotificationDispatcher(source, "@every 1m")
	require.NoError(t, err)

	report, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Sent)
	assert.EqualValues(t, 1, atomic.LoadInt32(&source.calls))

	source.err = errors.New("bot api down")
	_, err = d.RunOnce(context.Background())
	assert.Error(t, err)
}

func TestRunOnce_DoesNotOverlap(t *testing.T) {
	t.Parallel()

	source := &fakeSource{delay: 300 * time.Millisecond}
	d, err := NewNotificationDispatcher(source, "@every 1m")
	require.NoError(t, err)

	first := make(chan error, 1)
	go func() {
		_, err := d.RunOnce(context.Background())
		first <- err
	}()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&source.calls) == 1
	}, time.Second, 5*time.Millisecond)

	_, err = d.RunOnce(context.Background())
	assert.ErrorIs(t, err, service.ErrDispatchRunning)
	assert.EqualValues(t, 1, atomic.LoadInt32(&source.calls), "second run never reached the queue")

	require.NoError(t, <-first)

	// once the first run is done the next one goes through
	_, err = d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&source.calls))
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	source := &fakeSource{}
	d, err := NewNotificationDispatcher(source, "@every 1s")
	require.NoError(t, err)

	d.Start()
	d.Start()
	assert.True(t, d.IsRunning())

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&source.calls) >= 1
	}, 3*time.Second, 20*time.Millisecond)

	d.Stop()
	d.Stop()
	assert.False(t, d.IsRunning())

	calls := atomic.LoadInt32(&source.calls)
	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, calls, atomic.LoadInt32(&source.calls), "no runs after Stop")
}

func TestTick_SurvivesErrors(t *testing.T) {
	t.Parallel()

	d, err := NewNotificationDispatcher(&fakeSource{err: errors.New("surreal timeout")}, "@every 1m")
	require.NoError(t, err)

	assert.NotPanics(t, d.tick)
}
