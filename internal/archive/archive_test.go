package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource is an in-memory Source for Sync tests.
type fakeSource struct {
	names   []string
	content map[string]string
	listErr error
	failOn  map[string]bool
}

func (f *fakeSource) List(ctx context.Context) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.names, nil
}

func (f *fakeSource) Fetch(ctx context.Context, name, localPath string) error {
	if f.failOn[name] {
		return eris.Errorf("fetch %s failed", name)
	}
	return os.WriteFile(localPath, []byte(f.content[name]), 0o644)
}

func TestSync_DownloadsAll(t *testing.T) {
	src := &fakeSource{
		names: []string{"prefix/a.nc4", "prefix/b.nc4"},
		content: map[string]string{
			"prefix/a.nc4": "granule a",
			"prefix/b.nc4": "granule b",
		},
	}
	dir := t.TempDir()

	res, err := Sync(context.Background(), src, dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Downloaded)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, 0, res.Failed)

	data, err := os.ReadFile(filepath.Join(dir, "a.nc4"))
	require.NoError(t, err)
	assert.Equal(t, "granule a", string(data))
}

func TestSync_SkipsExisting(t *testing.T) {
	src := &fakeSource{
		names:   []string{"a.nc4", "b.nc4"},
		content: map[string]string{"a.nc4": "new a", "b.nc4": "new b"},
	}
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.nc4"), []byte("old a"), 0o644))

	res, err := Sync(context.Background(), src, dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Downloaded)
	assert.Equal(t, 1, res.Skipped)

	// The existing file is left untouched.
	data, err := os.ReadFile(filepath.Join(dir, "a.nc4"))
	require.NoError(t, err)
	assert.Equal(t, "old a", string(data))
}

func TestSync_PerFileFailureDoesNotAbort(t *testing.T) {
	src := &fakeSource{
		names:   []string{"a.nc4", "b.nc4", "c.nc4"},
		content: map[string]string{"a.nc4": "a", "c.nc4": "c"},
		failOn:  map[string]bool{"b.nc4": true},
	}
	dir := t.TempDir()

	var failed []string
	res, err := Sync(context.Background(), src, dir, func(name string, err error) {
		failed = append(failed, name)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Downloaded)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []string{"b.nc4"}, failed)

	// No partial file is left behind for the failed granule.
	_, statErr := os.Stat(filepath.Join(dir, "b.nc4"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestSync_ListError(t *testing.T) {
	src := &fakeSource{listErr: eris.New("archive unreachable")}

	_, err := Sync(context.Background(), src, t.TempDir(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list granules")
}

func TestSync_EmptyArchive(t *testing.T) {
	src := &fakeSource{}

	res, err := Sync(context.Background(), src, t.TempDir(), nil)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{}, res)
}

func TestFTPSource_List(t *testing.T) {
	src := NewFTPSource([]string{
		"ftp://ftp.example.org/pub/oco3/a.nc4",
		"ftp://ftp.example.org/pub/oco3/b.nc4",
	}, nil)

	names, err := src.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, names, 2)
}

func TestFTPSource_List_BadURL(t *testing.T) {
	src := NewFTPSource([]string{"ftp://ftp.example.org"}, nil)

	_, err := src.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no file name")
}
