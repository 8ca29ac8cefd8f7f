package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/LJTian/NILHub/internal/collector"
	"github.com/LJTian/NILHub/internal/crawler"
	"github.com/LJTian/NILHub/internal/logger"
)

type fakeRunner struct {
	kind  collector.Kind
	calls atomic.Int32
	panic bool
}

func (f *fakeRunner) Kind() collector.Kind { return f.kind }

func (f *fakeRunner) RunPass(context.Context) (crawler.PassStats, error) {
	f.calls.Add(1)
	if f.panic {
		panic("boom")
	}
	return crawler.PassStats{Kind: string(f.kind)}, nil
}

func (f *fakeRunner) Status() crawler.Status { return crawler.Status{Panics: 0} }

func TestRunOnceRecoversPanics(t *testing.T) {
	bad := &fakeRunner{kind: collector.KindStory, panic: true}
	good := &fakeRunner{kind: collector.KindSocial}

	s, err := New(context.Background(), time.Hour, logger.Discard(),
		Job{Spec: "*/5 * * * *", Runner: bad},
		Job{Spec: "*/10 * * * *", Runner: good},
	)
	require.NoError(t, err)

	require.NotPanics(t, s.RunOnce)
	require.Equal(t, int32(1), bad.calls.Load())
	require.Equal(t, int32(1), good.calls.Load())
}

func TestInvalidCronExpression(t *testing.T) {
	_, err := New(context.Background(), time.Second, logger.Discard(),
		Job{Spec: "not a cron", Runner: &fakeRunner{kind: collector.KindStory}})
	require.Error(t, err)
}

func TestStartupPassAndHealth(t *testing.T) {
	r := &fakeRunner{kind: collector.KindStory}
	s, err := New(context.Background(), 10*time.Millisecond, logger.Discard(), Job{Spec: "@every 1h", Runner: r})
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool { return r.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	h := s.Health()
	require.Contains(t, h, "story")
	require.Equal(t, "@every 1h", h["story"].Spec)
	require.NotNil(t, h["story"].NextRun)
}

func TestCancelledContextSkipsRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &fakeRunner{kind: collector.KindStory}
	s, err := New(ctx, time.Hour, logger.Discard(), Job{Spec: "@hourly", Runner: r})
	require.NoError(t, err)
	s.RunOnce()
	require.Zero(t, r.calls.Load())
}
