package embedding

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueberrycongee/recall/internal/embedcache"
	"github.com/blueberrycongee/recall/internal/embedcache/memstore"
	llmerrors "github.com/blueberrycongee/recall/pkg/errors"
)

type fakeEmbedder struct {
	calls   atomic.Int64
	batches atomic.Int64
	batched atomic.Int64
	short   bool
	dims    int
	err     error
	entered chan struct{}
	release chan struct{}
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	f.calls.Add(1)
	if f.entered != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	return []float64{float64(len(text)), 1}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	f.batches.Add(1)
	f.batched.Add(int64(len(texts)))
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, 0, len(texts))
	for _, text := range texts {
		out = append(out, []float64{float64(len(text)), 1})
	}
	if f.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (f *fakeEmbedder) Model() string  { return "fake-embed" }
func (f *fakeEmbedder) Dimension() int {
	if f.dims != 0 {
		return f.dims
	}
	return 2
}

func newCache(t *testing.T) *embedcache.Cache {
	t.Helper()
	c, err := embedcache.New(memstore.New())
	require.NoError(t, err)
	return c
}

func TestService_CacheIdempotence(t *testing.T) {
	emb := &fakeEmbedder{}
	cache := newCache(t)
	svc := NewService(emb, cache)
	ctx := context.Background()

	first, err := svc.Embed(ctx, "we discussed pricing")
	require.NoError(t, err)
	second, err := svc.Embed(ctx, "we discussed pricing")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, emb.calls.Load())

	stats := cache.Stats()
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)
	assert.EqualValues(t, 1, stats.Puts)

	// Put starts at 0 and the second Embed was the only read so far.
	entry, err := cache.Touch(ctx, embedcache.KeyFor("we discussed pricing", "fake-embed"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, entry.AccessCount)
}

func TestService_EmptyText(t *testing.T) {
	emb := &fakeEmbedder{}
	cache := newCache(t)
	svc := NewService(emb, cache)

	for _, text := range []string{"", "   ", "\n\t"} {
		v, err := svc.Embed(context.Background(), text)
		assert.ErrorIs(t, err, ErrEmptyText)
		assert.Nil(t, v)
	}
	assert.Zero(t, emb.calls.Load())
	assert.Zero(t, cache.Stats().Misses)
}

func TestService_NoCache(t *testing.T) {
	emb := &fakeEmbedder{}
	cache := newCache(t)
	svc := NewService(emb, cache)
	ctx := context.Background()

	_, err := svc.Embed(ctx, "x", NoCache())
	require.NoError(t, err)
	_, err = svc.Embed(ctx, "x", NoCache())
	require.NoError(t, err)

	assert.EqualValues(t, 2, emb.calls.Load())
	n, err := cache.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestService_NilCache(t *testing.T) {
	emb := &fakeEmbedder{}
	svc := NewService(emb, nil)

	_, err := svc.Embed(context.Background(), "x")
	require.NoError(t, err)
	_, err = svc.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.EqualValues(t, 2, emb.calls.Load())
}

func TestService_ErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want llmerrors.ErrorKind
	}{
		{"structured rate limit", llmerrors.NewRateLimitError("gemini", "m", "slow down"), llmerrors.KindQuotaExceeded},
		{"quota text", errors.New("Quota exceeded for quota metric"), llmerrors.KindQuotaExceeded},
		{"429 text", errors.New("googleapi: Error 429"), llmerrors.KindQuotaExceeded},
		{"other", errors.New("connection reset by peer"), llmerrors.KindGenericProviderError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := newCache(t)
			svc := NewService(&fakeEmbedder{err: tt.err}, cache)

			v, err := svc.Embed(context.Background(), "hello")
			require.Error(t, err)
			assert.Nil(t, v)
			assert.Equal(t, tt.want, KindOf(err))
			assert.ErrorIs(t, err, tt.err)

			n, err := cache.Len(context.Background())
			require.NoError(t, err)
			assert.Zero(t, n, "failures must not be cached")
		})
	}
}

func TestService_DimensionMismatch(t *testing.T) {
	cache := newCache(t)
	svc := NewService(&fakeEmbedder{dims: 3}, cache)
	ctx := context.Background()

	_, err := svc.Embed(ctx, "hello")
	require.Error(t, err)
	assert.Equal(t, llmerrors.KindGenericProviderError, KindOf(err))
	assert.Contains(t, err.Error(), "expected 3")

	out := svc.EmbedBatch(ctx, []string{"a", "b"})
	assert.Equal(t, [][]float64{nil, nil}, out)

	n, err := cache.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, llmerrors.KindNone, KindOf(nil))
	assert.Equal(t, llmerrors.KindQuotaExceeded, KindOf(errors.New("rate limit hit")))
}

func TestService_EmbedBatch(t *testing.T) {
	emb := &fakeEmbedder{}
	cache := newCache(t)
	svc := NewService(emb, cache)
	ctx := context.Background()

	_, err := svc.Embed(ctx, "cached")
	require.NoError(t, err)

	out := svc.EmbedBatch(ctx, []string{"a", "", "a", "bb", "cached"})
	require.Len(t, out, 5)
	assert.Equal(t, []float64{1, 1}, out[0])
	assert.Nil(t, out[1])
	assert.Equal(t, out[0], out[2])
	assert.Equal(t, []float64{2, 1}, out[3])
	assert.Equal(t, []float64{6, 1}, out[4])

	assert.EqualValues(t, 1, emb.calls.Load(), "only the warm-up Embed")
	assert.EqualValues(t, 1, emb.batches.Load())
	assert.EqualValues(t, 2, emb.batched.Load(), "distinct uncached texts only")

	n, err := cache.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	again := svc.EmbedBatch(ctx, []string{"a", "bb"})
	assert.Equal(t, [][]float64{{1, 1}, {2, 1}}, again)
	assert.EqualValues(t, 1, emb.batches.Load(), "second batch is served from the cache")
}

func TestService_EmbedBatchFailures(t *testing.T) {
	emb := &fakeEmbedder{err: errors.New("boom")}
	cache := newCache(t)
	svc := NewService(emb, cache)

	out := svc.EmbedBatch(context.Background(), []string{"a", "b"})
	assert.Equal(t, [][]float64{nil, nil}, out)
	assert.EqualValues(t, 1, emb.batches.Load())

	n, err := cache.Len(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestService_EmbedBatchLengthMismatch(t *testing.T) {
	svc := NewService(&fakeEmbedder{short: true}, nil)

	out := svc.EmbedBatch(context.Background(), []string{"a", "b"})
	assert.Equal(t, [][]float64{nil, nil}, out)
}

func TestService_EmbedBatchAllEmpty(t *testing.T) {
	emb := &fakeEmbedder{}
	svc := NewService(emb, nil)

	out := svc.EmbedBatch(context.Background(), []string{"", " "})
	assert.Equal(t, [][]float64{nil, nil}, out)
	assert.Zero(t, emb.batches.Load())
}

func TestService_CancelledWaiterDoesNotFailOthers(t *testing.T) {
	emb := &fakeEmbedder{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	svc := NewService(emb, newCache(t))

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := svc.Embed(leaderCtx, "shared")
		leaderErr <- err
	}()
	<-emb.entered

	followerVec := make(chan []float64, 1)
	go func() {
		v, err := svc.Embed(context.Background(), "shared")
		assert.NoError(t, err)
		followerVec <- v
	}()

	cancel()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)

	close(emb.release)
	assert.Equal(t, []float64{6, 1}, <-followerVec)
	assert.EqualValues(t, 1, emb.calls.Load())
}

func TestService_ConcurrentMissesShareOneCall(t *testing.T) {
	emb := &fakeEmbedder{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	svc := NewService(emb, newCache(t))

	const workers = 8
	var wg sync.WaitGroup
	results := make([][]float64, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := svc.Embed(context.Background(), "same text")
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	<-emb.entered
	time.Sleep(50 * time.Millisecond)
	close(emb.release)
	wg.Wait()

	assert.EqualValues(t, 1, emb.calls.Load())
	for _, v := range results {
		assert.Equal(t, []float64{9, 1}, v)
	}
}
