package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type countingFetcher struct {
	calls int
	pem   string
	err   error
}

func (f *countingFetcher) PublicKey(context.Context) (string, error) {
	f.calls++
	return f.pem, f.err
}

func TestKeyCacheFetchesOnce(t *testing.T) {
	fetcher := &countingFetcher{pem: "-----BEGIN PUBLIC KEY-----"}
	cache := NewKeyCache(fetcher, zerolog.Nop())

	for i := 0; i < 3; i++ {
		pem, ok := cache.Get(context.Background())
		require.True(t, ok)
		require.Equal(t, fetcher.pem, pem)
	}
	require.Equal(t, 1, fetcher.calls)
}

func TestKeyCacheDoesNotCacheFailures(t *testing.T) {
	fetcher := &countingFetcher{err: errors.New("boom")}
	cache := NewKeyCache(fetcher, zerolog.Nop())

	_, ok := cache.Get(context.Background())
	require.False(t, ok)
	_, ok = cache.Get(context.Background())
	require.False(t, ok)
	require.Equal(t, 2, fetcher.calls)

	fetcher.err = nil
	fetcher.pem = "key"
	pem, ok := cache.Get(context.Background())
	require.True(t, ok)
	require.Equal(t, "key", pem)
	require.Equal(t, 3, fetcher.calls)
}

func TestKeyCacheDoesNotCacheEmptyKey(t *testing.T) {
	fetcher := &countingFetcher{pem: "  "}
	cache := NewKeyCache(fetcher, zerolog.Nop())

	_, ok := cache.Get(context.Background())
	require.False(t, ok)
	require.Equal(t, 1, fetcher.calls)
}

func TestKeyCacheInvalidate(t *testing.T) {
	fetcher := &countingFetcher{pem: "key-v1"}
	cache := NewKeyCache(fetcher, zerolog.Nop())

	pem, ok := cache.Get(context.Background())
	require.True(t, ok)
	require.Equal(t, "key-v1", pem)

	fetcher.pem = "key-v2"
	cache.Invalidate()

	pem, ok = cache.Get(context.Background())
	require.True(t, ok)
	require.Equal(t, "key-v2", pem)
	require.Equal(t, 2, fetcher.calls)
}

func TestKeyCacheNilFetcher(t *testing.T) {
	cache := NewKeyCache(nil, zerolog.Nop())
	_, ok := cache.Get(context.Background())
	require.False(t, ok)
}
