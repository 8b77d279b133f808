package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errPermanent = errors.New("bad credentials")

func testPolicy() Policy {
	return Policy{
		Attempts:        3,
		Timeout:         time.Second,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Permanent:       func(err error) bool { return errors.Is(err, errPermanent) },
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := testPolicy().Do(context.Background(), "fetch", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("503")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsAfterAttempts(t *testing.T) {
	calls := 0
	err := testPolicy().Do(context.Background(), "fetch", func(context.Context) error {
		calls++
		return errors.New("503")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "fetch")
}

func TestDo_PermanentErrorNotRetried(t *testing.T) {
	calls := 0
	err := testPolicy().Do(context.Background(), "login", func(context.Context) error {
		calls++
		return errPermanent
	})

	assert.ErrorIs(t, err, errPermanent)
	assert.Equal(t, 1, calls)
}

func TestDo_AttemptHasDeadline(t *testing.T) {
	p := testPolicy()
	p.Attempts = 1
	p.Timeout = 20 * time.Millisecond

	err := p.Do(context.Background(), "hang", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDo_CancelledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := testPolicy().Do(ctx, "fetch", func(context.Context) error {
		calls++
		cancel()
		return errors.New("503")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
