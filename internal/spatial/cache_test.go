package spatial

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stardex-io/stardex/internal/domain/geo"
)

func TestFingerprint_Deterministic(t *testing.T) {
	paths := writeExports(t, t.TempDir(), `{"systems":{}}`, `{}`)

	first, err := Fingerprint(paths)
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	second, err := Fingerprint(paths)
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	if first == "" || first != second {
		t.Fatalf("expected stable fingerprint, got %q and %q", first, second)
	}
}

func TestFingerprint_SensitiveToContent(t *testing.T) {
	paths := writeExports(t, t.TempDir(), `{"systems":{}}`, `{}`)
	anchor := time.Now().Add(-time.Hour).Truncate(time.Second)
	for _, p := range paths {
		if err := os.Chtimes(p, anchor, anchor); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	before, err := Fingerprint(paths)
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}

	// Pin the timestamps back so only the bytes differ.
	if err := os.WriteFile(paths[0], []byte(`{"systems":{"1":{}}}`), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	for _, p := range paths {
		if err := os.Chtimes(p, anchor, anchor); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	after, err := Fingerprint(paths)
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	if before == after {
		t.Fatalf("expected the fingerprint to change with file contents")
	}
}

func TestFingerprint_SensitiveToModTime(t *testing.T) {
	paths := writeExports(t, t.TempDir(), `{"systems":{}}`, `{}`)

	before, err := Fingerprint(paths)
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}

	touched := time.Now().Add(time.Hour)
	if err := os.Chtimes(paths[1], touched, touched); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	after, err := Fingerprint(paths)
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	if before == after {
		t.Fatalf("expected the fingerprint to change with modification times")
	}
}

func TestFingerprint_SkipsMissingFiles(t *testing.T) {
	paths := writeExports(t, t.TempDir(), `{"systems":{}}`, `{}`)
	withMissing := append([]string{}, paths...)
	withMissing = append(withMissing, filepath.Join(t.TempDir(), "absent.json"))

	want, err := Fingerprint(paths)
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	got, err := Fingerprint(withMissing)
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	if got != want {
		t.Fatalf("a missing file must not change the digest: %q vs %q", got, want)
	}
}

func TestSaveLoadCache_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := triangleSource()
	src.paths = writeExports(t, dir, `{"systems":{}}`, `{}`)
	built := buildIndex(t, src)

	cachePath := filepath.Join(dir, "cache", "snapshot.bin")
	if err := SaveCache(built, cachePath); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadCache(cachePath, src.paths)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.Len() != built.Len() {
		t.Fatalf("expected %d systems, got %d", built.Len(), loaded.Len())
	}
	if loaded.Fingerprint() != built.Fingerprint() {
		t.Errorf("expected fingerprint %q, got %q", built.Fingerprint(), loaded.Fingerprint())
	}
	if !loaded.BuiltAt().Equal(built.BuiltAt()) {
		t.Errorf("expected build time %v, got %v", built.BuiltAt(), loaded.BuiltAt())
	}

	jita, _ := built.System(1001)
	radius := geo.Meters(5.05e16)
	wantHits := hitDistances(built.WithinRadius(jita.Center, radius))
	gotHits := hitDistances(loaded.WithinRadius(jita.Center, radius))
	if !reflect.DeepEqual(gotHits, wantHits) {
		t.Errorf("radius query diverged after reload: %v vs %v", gotHits, wantHits)
	}

	wantNear := built.Nearest(jita.Center, 3)
	gotNear := loaded.Nearest(jita.Center, 3)
	if !reflect.DeepEqual(gotNear, wantNear) {
		t.Errorf("nearest query diverged after reload: %v vs %v", gotNear, wantNear)
	}

	if want, got := built.Autocomplete("i", 10), loaded.Autocomplete("i", 10); !reflect.DeepEqual(got, want) {
		t.Errorf("autocomplete diverged after reload: %v vs %v", got, want)
	}

	sys, ok := loaded.System(1002)
	if !ok {
		t.Fatalf("expected system 1002 after reload")
	}
	orig, _ := built.System(1002)
	if !reflect.DeepEqual(*sys, *orig) {
		t.Errorf("record diverged after reload: %+v vs %+v", *sys, *orig)
	}
	if name, ok := loaded.Label(201); !ok || name != "Kimotoro" {
		t.Errorf("expected constellation label after reload, got %q (found %t)", name, ok)
	}
}

func TestSaveCache_OverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	src := triangleSource()
	src.paths = writeExports(t, dir, `{"systems":{}}`, `{}`)
	built := buildIndex(t, src)

	cacheDir := filepath.Join(dir, "cache")
	cachePath := filepath.Join(cacheDir, "snapshot.bin")
	if err := SaveCache(built, cachePath); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := SaveCache(built, cachePath); err != nil {
		t.Fatalf("second save: %v", err)
	}

	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "snapshot.bin" {
		t.Fatalf("expected only the artifact in the cache dir, got %v", entries)
	}

	if _, err := LoadCache(cachePath, src.paths); err != nil {
		t.Fatalf("load after overwrite: %v", err)
	}
}

func TestLoadCache_MissingArtifact(t *testing.T) {
	_, err := LoadCache(filepath.Join(t.TempDir(), "snapshot.bin"), nil)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestLoadCache_BadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.bin")
	if err := os.WriteFile(path, []byte("NOPEnot a snapshot artifact"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := LoadCache(path, nil)
	if !errors.Is(err, ErrCacheCorrupt) {
		t.Fatalf("expected ErrCacheCorrupt, got %v", err)
	}
}

func TestLoadCache_UnknownFormatVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.bin")
	payload := append([]byte(cacheMagic), 0xFF, 0xFF)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := LoadCache(path, nil)
	if !errors.Is(err, ErrCacheCorrupt) {
		t.Fatalf("expected ErrCacheCorrupt, got %v", err)
	}
}

func TestLoadCache_TruncatedArtifact(t *testing.T) {
	dir := t.TempDir()
	src := triangleSource()
	src.paths = writeExports(t, dir, `{"systems":{}}`, `{}`)
	built := buildIndex(t, src)

	cachePath := filepath.Join(dir, "snapshot.bin")
	if err := SaveCache(built, cachePath); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err := os.ReadFile(cachePath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := os.WriteFile(cachePath, data[:len(data)/2], 0o644); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	_, err = LoadCache(cachePath, src.paths)
	if !errors.Is(err, ErrCacheCorrupt) {
		t.Fatalf("expected ErrCacheCorrupt, got %v", err)
	}
}

func TestLoadCache_StaleAfterSourceEdit(t *testing.T) {
	dir := t.TempDir()
	src := triangleSource()
	src.paths = writeExports(t, dir, `{"systems":{}}`, `{}`)
	built := buildIndex(t, src)

	cachePath := filepath.Join(dir, "snapshot.bin")
	if err := SaveCache(built, cachePath); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := os.WriteFile(src.paths[0], []byte(`{"systems":{"9":{}}}`), 0o644); err != nil {
		t.Fatalf("rewrite source: %v", err)
	}

	_, err := LoadCache(cachePath, src.paths)
	if !errors.Is(err, ErrCacheStale) {
		t.Fatalf("expected ErrCacheStale, got %v", err)
	}
}

func TestLoadCache_StaleAfterTouch(t *testing.T) {
	dir := t.TempDir()
	src := triangleSource()
	src.paths = writeExports(t, dir, `{"systems":{}}`, `{}`)
	built := buildIndex(t, src)

	cachePath := filepath.Join(dir, "snapshot.bin")
	if err := SaveCache(built, cachePath); err != nil {
		t.Fatalf("save: %v", err)
	}

	touched := time.Now().Add(time.Hour)
	if err := os.Chtimes(src.paths[1], touched, touched); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	_, err := LoadCache(cachePath, src.paths)
	if !errors.Is(err, ErrCacheStale) {
		t.Fatalf("expected ErrCacheStale, got %v", err)
	}
}
