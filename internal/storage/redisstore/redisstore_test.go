package redisstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/and161185/nimbly/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/************ fake redis ************/
type fakeRedis struct {
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newFake() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, exp time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.data[key] = value.(string)
	f.ttls[key] = exp
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestStore_SetGetDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fr := newFake()
	s := New(fr, "nimbly:", time.Hour)

	_, err := s.Get(ctx, "auth_token")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Set(ctx, "auth_token", "tok"))
	assert.Equal(t, "tok", fr.data["nimbly:auth_token"])
	assert.Equal(t, time.Hour, fr.ttls["nimbly:auth_token"])

	v, err := s.Get(ctx, "auth_token")
	require.NoError(t, err)
	assert.Equal(t, "tok", v)

	require.NoError(t, s.Delete(ctx, "auth_token"))
	require.NoError(t, s.Delete(ctx, "auth_token"))
	_, err = s.Get(ctx, "auth_token")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_NoTTL(t *testing.T) {
	t.Parallel()
	fr := newFake()
	s := New(fr, "", -time.Second)
	require.NoError(t, s.Set(context.Background(), "theme", "dark"))
	assert.Equal(t, time.Duration(0), fr.ttls["theme"])
}

func TestStore_ErrorsPropagate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fr := newFake()
	fr.err = errors.New("conn refused")
	s := New(fr, "", 0)

	_, err := s.Get(ctx, "k")
	require.Error(t, err)
	require.NotErrorIs(t, err, storage.ErrNotFound)
	require.Error(t, s.Set(ctx, "k", "v"))
	require.Error(t, s.Delete(ctx, "k"))
}

func TestConnect_RequiresAddr(t *testing.T) {
	t.Parallel()
	_, err := Connect(context.Background(), Config{})
	require.Error(t, err)
}
