package cache

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/leafdb/leafdb/internal/codec"
)

func TestStoreAddAndRetrieve(t *testing.T) {
	store := newMemStore(t)
	key := []float64{1.5, -2, 3.25}

	if _, err := store.Add(key, 42.123456789); err != nil {
		t.Fatalf("add error: %v", err)
	}

	res, err := store.Retrieve(key)
	if err != nil {
		t.Fatalf("retrieve error: %v", err)
	}
	if !res.Found {
		t.Fatalf("expected hit")
	}
	if math.Abs(res.Value-42.123456789) > 1e-10 {
		t.Fatalf("value mismatch: %v", res.Value)
	}
}

func TestStoreRoundTripWithinPrecision(t *testing.T) {
	store := newMemStore(t)
	values := []float64{0, -0.5, 1.0 / 3.0, 1e6 + 0.123456789012, -987.65432109876}
	for i, v := range values {
		key := []float64{float64(i), 7}
		if _, err := store.Add(key, v); err != nil {
			t.Fatalf("add %v error: %v", v, err)
		}
		got, err := store.Get(key)
		if err != nil {
			t.Fatalf("get %v error: %v", v, err)
		}
		if math.Abs(got-v) > 0.5e-10*math.Max(1, math.Abs(v)) {
			t.Fatalf("round trip mismatch: stored %v got %v", v, got)
		}
	}
}

func TestStoreRetrieveMissing(t *testing.T) {
	store := newMemStore(t)
	res, err := store.Retrieve([]float64{9, 9})
	if err != nil {
		t.Fatalf("miss should not error: %v", err)
	}
	if res.Found || res.Value != 0 {
		t.Fatalf("expected miss, got %+v", res)
	}

	if _, err := store.Get([]float64{9, 9}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreWriteOnce(t *testing.T) {
	store := newMemStore(t)
	key := []float64{1, 2}
	if _, err := store.Add(key, 3); err != nil {
		t.Fatalf("first add error: %v", err)
	}
	_, err := store.Add(key, 4)
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if errors.Is(err, ErrIO) || errors.Is(err, ErrNotFound) {
		t.Fatalf("error kinds must stay distinct: %v", err)
	}

	got, err := store.Get(key)
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	if got != 3 {
		t.Fatalf("stored value changed: %v", got)
	}
}

func TestStorePrecisionBucketing(t *testing.T) {
	store := newMemStore(t)
	if _, err := store.Add([]float64{2, 0.1}, 1); err != nil {
		t.Fatalf("add error: %v", err)
	}
	if _, err := store.Add([]float64{2, 0.10000000000000001}, 2); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("bucketed key should collide, got %v", err)
	}
}

func TestStoreSingleCoordinateLayout(t *testing.T) {
	fsys := afero.NewMemMapFs()
	store := newStoreOn(t, fsys, "/db")
	entry, err := store.Add([]float64{5}, 1)
	if err != nil {
		t.Fatalf("add error: %v", err)
	}
	want := filepath.Join("/db", "5.0000000000"+codec.LeafSuffix)
	if entry.FilePath != want {
		t.Fatalf("leaf path mismatch: %s", entry.FilePath)
	}

	data, err := afero.ReadFile(fsys, want)
	if err != nil {
		t.Fatalf("read leaf error: %v", err)
	}
	if string(data) != "1.0000000000\n" {
		t.Fatalf("leaf content mismatch: %q", string(data))
	}

	infos, err := afero.ReadDir(fsys, "/db")
	if err != nil {
		t.Fatalf("read dir error: %v", err)
	}
	if len(infos) != 1 || infos[0].IsDir() {
		t.Fatalf("expected single leaf and no directories, got %d entries", len(infos))
	}
}

func TestStoreSiblingsShareDirectories(t *testing.T) {
	store := newMemStore(t)
	for _, last := range []float64{1, 2, 3} {
		if _, err := store.Add([]float64{1, 1, last}, last); err != nil {
			t.Fatalf("add sibling %v error: %v", last, err)
		}
	}
}

func TestStoreRejectsEmptyKey(t *testing.T) {
	store := newMemStore(t)
	if _, err := store.Retrieve(nil); !errors.Is(err, codec.ErrEmptyKey) {
		t.Fatalf("retrieve: expected ErrEmptyKey, got %v", err)
	}
	if _, err := store.Add([]float64{}, 1); !errors.Is(err, codec.ErrEmptyKey) {
		t.Fatalf("add: expected ErrEmptyKey, got %v", err)
	}
}

func TestStoreRejectsNonFiniteValue(t *testing.T) {
	store := newMemStore(t)
	if _, err := store.Add([]float64{1}, math.NaN()); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
	res, err := store.Retrieve([]float64{1})
	if err != nil || res.Found {
		t.Fatalf("rejected value must not be stored: %+v %v", res, err)
	}
}

func TestStoreRetrieveMalformedLeaf(t *testing.T) {
	fsys := afero.NewMemMapFs()
	store := newStoreOn(t, fsys, "/db")

	leaf := filepath.Join("/db", "1.0000000000.leaf")
	if err := afero.WriteFile(fsys, leaf, []byte("not-a-number\n"), 0o644); err != nil {
		t.Fatalf("seed leaf error: %v", err)
	}
	_, err := store.Retrieve([]float64{1})
	if !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
	var opErr *OpError
	if !errors.As(err, &opErr) || opErr.Path != leaf || opErr.Op != "retrieve" {
		t.Fatalf("error should carry op and path: %v", err)
	}

	empty := filepath.Join("/db", "2.0000000000.leaf")
	if err := afero.WriteFile(fsys, empty, nil, 0o644); err != nil {
		t.Fatalf("seed empty leaf error: %v", err)
	}
	if _, err := store.Retrieve([]float64{2}); !errors.Is(err, ErrFormat) {
		t.Fatalf("empty leaf: expected ErrFormat, got %v", err)
	}
}

func TestStoreRetrieveLeafDirectory(t *testing.T) {
	fsys := afero.NewMemMapFs()
	store := newStoreOn(t, fsys, "/db")
	if err := fsys.MkdirAll(filepath.Join("/db", "1.0000000000.leaf"), 0o755); err != nil {
		t.Fatalf("mkdir error: %v", err)
	}
	if _, err := store.Retrieve([]float64{1}); !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat for directory leaf, got %v", err)
	}
}

func TestStoreAddReadOnlyFS(t *testing.T) {
	base := afero.NewMemMapFs()
	if err := base.MkdirAll("/db", 0o755); err != nil {
		t.Fatalf("mkdir error: %v", err)
	}
	c, err := codec.New("/db", codec.DefaultPrecision)
	if err != nil {
		t.Fatalf("codec error: %v", err)
	}
	store := &fileStore{fs: afero.NewReadOnlyFs(base), codec: c}
	_, err = store.Add([]float64{1, 2}, 3)
	if !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
}

func TestStoreRetrieveIOErrorIsNotMiss(t *testing.T) {
	root := filepath.Join(t.TempDir(), "db")
	store, err := NewOSStore(root, codec.DefaultPrecision)
	if err != nil {
		t.Fatalf("create store error: %v", err)
	}
	// 普通文件占住了本应是目录的位置
	blocker := filepath.Join(root, "9.0000000000")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("seed blocker error: %v", err)
	}

	res, err := store.Retrieve([]float64{9, 1})
	if !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrFormat) || res.Found {
		t.Fatalf("io failure must stay distinct from miss/format: %+v %v", res, err)
	}
	var opErr *OpError
	if !errors.As(err, &opErr) || opErr.Op != "retrieve" || opErr.Path != filepath.Join(blocker, "1.0000000000.leaf") {
		t.Fatalf("error should carry op and path: %v", err)
	}

	if _, err := store.Add([]float64{9, 1}, 2); !errors.Is(err, ErrIO) {
		t.Fatalf("add under blocker: expected ErrIO, got %v", err)
	}
}

func TestOSStoreLeavesNoTempFiles(t *testing.T) {
	root := filepath.Join(t.TempDir(), "db")
	store, err := NewOSStore(root, codec.DefaultPrecision)
	if err != nil {
		t.Fatalf("create store error: %v", err)
	}
	if _, err := store.Add([]float64{1, 2}, 3); err != nil {
		t.Fatalf("add error: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(root, "1.0000000000"))
	if err != nil {
		t.Fatalf("read dir error: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "2.0000000000.leaf" {
		t.Fatalf("unexpected directory content: %v", entries)
	}
}

func TestNewStoreCustomPrecision(t *testing.T) {
	fsys := afero.NewMemMapFs()
	store, err := NewStore(fsys, "/db", 2)
	if err != nil {
		t.Fatalf("create store error: %v", err)
	}
	entry, err := store.Add([]float64{1.234}, 5.678)
	if err != nil {
		t.Fatalf("add error: %v", err)
	}
	if filepath.Base(entry.FilePath) != "1.23.leaf" {
		t.Fatalf("unexpected leaf name %s", entry.FilePath)
	}
	data, _ := afero.ReadFile(fsys, entry.FilePath)
	if string(data) != "5.68\n" {
		t.Fatalf("unexpected leaf content %q", string(data))
	}
}

// newMemStore returns a Store backed by an in-memory filesystem.
func newMemStore(t *testing.T) Store {
	t.Helper()
	return newStoreOn(t, afero.NewMemMapFs(), "/db")
}

func newStoreOn(t *testing.T, fsys afero.Fs, root string) Store {
	t.Helper()
	store, err := NewStore(fsys, root, codec.DefaultPrecision)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}
