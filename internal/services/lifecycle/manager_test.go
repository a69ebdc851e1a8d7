package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownRunsHooksInReverse(t *testing.T) {
	m := New(time.Second, nil)
	var order []string

	m.Register("store", func(context.Context) error { order = append(order, "store"); return nil })
	m.RegisterCloser("alarms", func() error { order = append(order, "alarms"); return nil })
	m.Register("http", func(context.Context) error { order = append(order, "http"); return nil })

	require.NoError(t, m.Shutdown(context.Background()))
	assert.Equal(t, []string{"http", "alarms", "store"}, order)

	require.NoError(t, m.Shutdown(context.Background()))
	assert.Len(t, order, 3, "hooks run once")
}

func TestShutdownJoinsErrors(t *testing.T) {
	m := New(time.Second, nil)
	errA := errors.New("a")
	errB := errors.New("b")
	ran := false

	m.Register("a", func(context.Context) error { return errA })
	m.Register("ok", func(context.Context) error { ran = true; return nil })
	m.Register("b", func(context.Context) error { return errB })

	err := m.Shutdown(context.Background())
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.True(t, ran)
}

func TestShutdownHonoursTimeout(t *testing.T) {
	m := New(20*time.Millisecond, nil)
	m.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	err := m.Shutdown(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNotifyContextCancel(t *testing.T) {
	m := New(time.Second, nil)
	ctx, cancel := m.NotifyContext(context.Background())
	cancel()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled")
	}
}
