package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/test-cache")
	if Dir() != "/tmp/test-cache/kgx" {
		t.Errorf("expected /tmp/test-cache/kgx, got %q", Dir())
	}

	t.Setenv("XDG_CACHE_HOME", "")
	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, ".cache", "kgx")
	if Dir() != expected {
		t.Errorf("expected %q, got %q", expected, Dir())
	}
}

func TestDiskKeysDoNotCollide(t *testing.T) {
	ctx := context.Background()
	d, err := NewDisk(t.TempDir())
	require.NoError(t, err)

	keys := []string{"assoc:a/b", "assoc:a_b", "assoc:a:b", "assoc:a@b", "assoc:a\\b", "assoc:a b"}
	for _, k := range keys {
		require.NoError(t, d.Set(ctx, k, []byte("payload-for-"+k), 0))
	}
	for _, k := range keys {
		got, ok, err := d.Get(ctx, k)
		require.NoError(t, err)
		require.True(t, ok, k)
		assert.Equal(t, "payload-for-"+k, string(got))
	}

	_, ok, err := d.Get(ctx, "assoc:a__b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Unix(100, 0)
	m.now = func() time.Time { return now }

	_, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, m.Set(ctx, "forever", []byte("x"), 0))
	got, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	now = now.Add(2 * time.Minute)
	_, ok, _ = m.Get(ctx, "k")
	assert.False(t, ok)
	_, ok, _ = m.Get(ctx, "forever")
	assert.True(t, ok)
	assert.Equal(t, 1, m.Len())
}

func TestMemoryCopiesValues(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	val := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", val, 0))
	val[0] = 'z'
	got, _, _ := m.Get(ctx, "k")
	assert.Equal(t, "abc", string(got))
}

func TestDisk(t *testing.T) {
	ctx := context.Background()
	d, err := NewDisk(filepath.Join(t.TempDir(), "assoc"))
	require.NoError(t, err)
	now := time.Unix(100, 0)
	d.now = func() time.Time { return now }

	require.NoError(t, d.Set(ctx, "assoc:n1", []byte("{\"nodes\":[]}\nmore"), time.Minute))
	got, ok, err := d.Get(ctx, "assoc:n1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "{\"nodes\":[]}\nmore", string(got))

	now = now.Add(time.Hour)
	_, ok, err = d.Get(ctx, "assoc:n1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = d.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	r, err := NewRedis(ctx, RedisOptions{Addr: mr.Addr()})
	require.NoError(t, err)
	defer r.Close()

	_, ok, err := r.Get(ctx, "assoc:n1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Set(ctx, "assoc:n1", []byte("payload"), time.Minute))
	assert.True(t, mr.Exists("kgx:assoc:n1"))

	got, ok, err := r.Get(ctx, "assoc:n1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("payload"), got)

	mr.FastForward(2 * time.Minute)
	_, ok, err = r.Get(ctx, "assoc:n1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisUnreachable(t *testing.T) {
	_, err := NewRedis(context.Background(), RedisOptions{})
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	c, err := Open(ctx, Options{Backend: "none"})
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = Open(ctx, Options{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, c)

	c, err = Open(ctx, Options{Backend: "disk", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &Disk{}, c)

	_, err = Open(ctx, Options{Backend: "memcached"})
	assert.Error(t, err)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	r, err := NewRedis(ctx, RedisOptions{Addr: mr.Addr()})
	require.NoError(t, err)
	defer r.Close()
	d, err := NewDisk(t.TempDir())
	require.NoError(t, err)

	for name, c := range map[string]Cache{"memory": NewMemory(), "disk": d, "redis": r} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, c.Set(ctx, "assoc:a", []byte("1"), 0))
			require.NoError(t, c.Set(ctx, "assoc:b", []byte("2"), time.Minute))

			n, err := c.Clear(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, n)
			_, ok, err := c.Get(ctx, "assoc:a")
			require.NoError(t, err)
			assert.False(t, ok)

			n, err = c.Clear(ctx)
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestRedisClearKeepsOtherPrefixes(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("other:key", "x"))
	r, err := NewRedis(ctx, RedisOptions{Addr: mr.Addr()})
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Set(ctx, "assoc:a", []byte("1"), 0))
	n, err := r.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, mr.Exists("other:key"))
}
