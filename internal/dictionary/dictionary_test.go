package dictionary

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	s, err := Read(strings.NewReader("Cat\n  tree \n\nx-ray\n42\nŻÓŁW\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())

	ctx := context.Background()
	for _, w := range []string{"cat", "CAT", "tree", "żółw"} {
		ok, err := s.Contains(ctx, w)
		require.NoError(t, err)
		assert.True(t, ok, w)
	}
	ok, err := s.Contains(ctx, "x-ray")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReadEmpty(t *testing.T) {
	_, err := Read(strings.NewReader("123\n\n"))
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestContainsHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSet("cat").Contains(ctx, "cat")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseSources(t *testing.T) {
	got, err := ParseSources(" 0:/srv/en.txt, 1:/srv/pl.txt ,")
	require.NoError(t, err)
	assert.Equal(t, map[int]string{0: "/srv/en.txt", 1: "/srv/pl.txt"}, got)

	got, err = ParseSources("")
	require.NoError(t, err)
	assert.Empty(t, got)

	for _, bad := range []string{"en:/x", "0", "0:", "-1:/x"} {
		_, err := ParseSources(bad)
		assert.Error(t, err, bad)
	}
}

func TestLoadSources(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pl.txt")
	require.NoError(t, os.WriteFile(path, []byte("słoń\nnosorożec\n"), 0o600))

	reg, err := LoadSources("1:" + path)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, reg.Languages())

	d, ok := reg.Lookup(1)
	require.True(t, ok)
	found, err := d.Contains(context.Background(), "Słoń")
	require.NoError(t, err)
	assert.True(t, found)

	_, ok = reg.Lookup(0)
	assert.False(t, ok)

	_, err = LoadSources("0:" + filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}
