package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/carbocation/cvsplit/groupfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	in := filepath.Join(dir, "groups.json")
	require.NoError(t, os.WriteFile(in, []byte(`{"chunks": [{"id": 0, "imgs": ["a"]}, {"id": 1, "imgs": ["b", "c"]}]}`), 0644))

	out := filepath.Join(dir, "keyed.json")
	require.NoError(t, convert(ctx, in, out, groupfile.FormatKeyed))

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, `{"group_1":["a"],"group_2":["b","c"]}`, string(b))

	back := filepath.Join(dir, "chunks.json")
	require.NoError(t, convert(ctx, out, back, groupfile.FormatChunks))

	groups, format, err := groupfile.Read(ctx, back, nil)
	require.NoError(t, err)
	assert.Equal(t, groupfile.FormatChunks, format)
	assert.Equal(t, groupfile.Groups{1: {"a"}, 2: {"b", "c"}}, groups)
}

func TestConvertRejectsBadInput(t *testing.T) {
	dir := t.TempDir()

	in := filepath.Join(dir, "groups.json")
	require.NoError(t, os.WriteFile(in, []byte(`{"group_2": ["a"]}`), 0644))

	assert.Error(t, convert(context.Background(), in, filepath.Join(dir, "out.json"), groupfile.FormatChunks))
	assert.Error(t, convert(context.Background(), filepath.Join(dir, "missing.json"), filepath.Join(dir, "out.json"), groupfile.FormatChunks))
}
