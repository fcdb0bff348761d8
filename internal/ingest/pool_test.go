package ingest_test

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/proman/internal/apperror"
	"github.com/sakif/proman/internal/ingest"
)

// slowIngester records how many calls run at once.
type slowIngester struct {
	delay   time.Duration
	running atomic.Int32
	peak    atomic.Int32
	calls   atomic.Int32
}

func (s *slowIngester) Ingest(src string, kind ingest.Kind) (string, error) {
	s.calls.Add(1)
	now := s.running.Add(1)
	for {
		peak := s.peak.Load()
		if now <= peak || s.peak.CompareAndSwap(peak, now) {
			break
		}
	}
	time.Sleep(s.delay)
	s.running.Add(-1)
	if src == "bad" {
		return "", apperror.Ingestion(src, errors.New("boom"))
	}
	return "media/" + kind.String() + "_" + src, nil
}

func TestPool_IngestWithPipeline(t *testing.T) {
	p, media := newTestPipeline(t)
	cfg := ingest.DefaultConfig()
	pool := ingest.NewPool(p, cfg, quietLogger())
	defer pool.Stop()

	src := writeImage(t, t.TempDir(), "a.png", 1200, 800, color.White)
	stored, err := pool.Ingest(src, ingest.KindThumbnail)
	require.NoError(t, err)
	assert.Len(t, leftovers(t, media), 1)

	b := readPNG(t, stored).Bounds()
	assert.Equal(t, 300, b.Dx())
	assert.Equal(t, 200, b.Dy())
}

func TestPool_BoundsConcurrency(t *testing.T) {
	fake := &slowIngester{delay: 20 * time.Millisecond}
	cfg := ingest.DefaultConfig()
	cfg.Workers = 2
	pool := ingest.NewPool(fake, cfg, quietLogger())
	defer pool.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := pool.Ingest("ok", ingest.KindReference)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(8), fake.calls.Load())
	assert.LessOrEqual(t, fake.peak.Load(), int32(2), "never more jobs in flight than workers")
}

func TestPool_SubmitDeliversResult(t *testing.T) {
	fake := &slowIngester{}
	pool := ingest.NewPool(fake, ingest.DefaultConfig(), quietLogger())
	defer pool.Stop()

	ok, err := pool.Submit(context.Background(), ingest.Job{Source: "x.png", Kind: ingest.KindThumbnail})
	require.NoError(t, err)
	bad, err := pool.Submit(context.Background(), ingest.Job{Source: "bad", Kind: ingest.KindReference})
	require.NoError(t, err)

	res := <-ok
	assert.NoError(t, res.Err)
	assert.Equal(t, "media/thumb_x.png", res.Path)
	assert.Equal(t, "x.png", res.Job.Source)

	res = <-bad
	assert.True(t, errors.Is(res.Err, apperror.ErrIngestion))
	assert.Empty(t, res.Path)
}

func TestPool_StopDrainsAndRejects(t *testing.T) {
	fake := &slowIngester{delay: 10 * time.Millisecond}
	cfg := ingest.DefaultConfig()
	cfg.Workers = 1
	pool := ingest.NewPool(fake, cfg, quietLogger())

	reply, err := pool.Submit(context.Background(), ingest.Job{Source: "queued"})
	require.NoError(t, err)

	pool.Stop()
	pool.Stop() // second call is a no-op

	res := <-reply
	assert.NoError(t, res.Err, "a job queued before Stop still runs")

	_, err = pool.Submit(context.Background(), ingest.Job{Source: "late"})
	assert.ErrorIs(t, err, ingest.ErrPoolClosed)
	_, err = pool.Ingest("late", ingest.KindReference)
	assert.ErrorIs(t, err, ingest.ErrPoolClosed)
}

func TestPool_SubmitHonoursContext(t *testing.T) {
	block := make(chan struct{})
	cfg := ingest.DefaultConfig()
	cfg.Workers = 1
	pool := ingest.NewPool(blockingIngester(block), cfg, quietLogger())
	defer func() {
		close(block)
		pool.Stop()
	}()

	// One job occupies the worker and one fills the queue.
	_, err := pool.Submit(context.Background(), ingest.Job{Source: "a"})
	require.NoError(t, err)
	_, err = pool.Submit(context.Background(), ingest.Job{Source: "b"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = pool.Submit(ctx, ingest.Job{Source: "c"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type blockingIngester chan struct{}

func (b blockingIngester) Ingest(src string, _ ingest.Kind) (string, error) {
	<-b
	return src, nil
}

// A failed job is reported through its Result only; logging it is left to
// the caller, which knows what the image was for.
func TestPool_FailureReturnedNotLogged(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	pool := ingest.NewPool(&slowIngester{}, ingest.DefaultConfig(), logger)
	_, err := pool.Ingest("bad", ingest.KindReference)
	pool.Stop()

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrIngestion))
	assert.NotContains(t, logs.String(), "level=WARN")
	assert.NotContains(t, logs.String(), "bad")
}
