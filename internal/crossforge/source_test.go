package crossforge

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceSpecs(t *testing.T) {
	gcc := gccSource("13.2.0")
	assert.Equal(t, "gcc-13.2.0.tar.xz", gcc.Archive)
	assert.Equal(t, "gcc-13.2.0", gcc.DirName)
	require.NotEmpty(t, gcc.URLs)
	assert.Equal(t, "https://ftp.gnu.org/gnu/gcc/gcc-13.2.0/gcc-13.2.0.tar.xz", gcc.URLs[0])

	llvm := llvmSource("17.0.6")
	assert.Equal(t, "llvm-project-17.0.6", llvm.DirName)
	assert.Equal(t, "llvm-project-17.0.6*", llvm.DirGlob, "the .src suffix is located by pattern")
	assert.Contains(t, llvm.URLs[0], "llvmorg-17.0.6")

	rust := rustSource("1.75.0")
	assert.Equal(t, "rustc-1.75.0-src", rust.DirName)
	assert.Contains(t, rust.URLs[0], "static.rust-lang.org")

	_, err := libcSource("uclibc", "1.0")
	assert.Error(t, err)
}

func TestCachePath(t *testing.T) {
	bc := testBuildFlags(t)

	a := cachePath(bc, binutilsSource("2.42"))
	b := cachePath(bc, binutilsSource("2.41"))
	assert.NotEqual(t, a, b, "a changed version pin never reuses a cached file")
	assert.True(t, strings.HasSuffix(a, "binutils-2.42.tar.xz"))
	assert.Equal(t, bc.CacheDir, filepath.Dir(a))

	assert.Equal(t, a, cachePath(bc, binutilsSource("2.42")))
}

func TestEnsureCachedShortCircuit(t *testing.T) {
	bc := testBuildFlags(t)
	// An unreachable URL proves no download is attempted for a cache hit.
	spec := sourceSpec{
		Name:    "binutils",
		Version: "2.42",
		Archive: "binutils-2.42.tar.xz",
		URLs:    []string{"http://127.0.0.1:1/binutils-2.42.tar.xz"},
	}

	dest := cachePath(bc, spec)
	require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0o755))
	require.NoError(t, os.WriteFile(dest, []byte("tarball"), 0o644))

	got, err := ensureCached(context.Background(), bc, spec)
	require.NoError(t, err)
	assert.Equal(t, dest, got)
}

func TestEnsureSourceReusesMatchingTree(t *testing.T) {
	bc := testBuildFlags(t)
	spec := binutilsSource(bc.BinutilsVersion)
	spec.URLs = []string{"http://127.0.0.1:1/" + spec.Archive}

	dir := seedSource(t, bc, spec)
	got, err := ensureSource(context.Background(), bc, spec)
	require.NoError(t, err)
	assert.Equal(t, dir, got)
}

func TestEnsureSourceRejectsStaleVersion(t *testing.T) {
	bc := testBuildFlags(t)
	spec := binutilsSource("2.42")
	spec.URLs = []string{"http://127.0.0.1:1/" + spec.Archive}

	// Same directory name, but the manifest records a different version.
	dir := filepath.Join(bc.SourceDir, spec.DirName)
	require.NoError(t, writeState(dir, &buildState{Name: "binutils", Version: "2.41", Completed: true}))

	// The mismatch forces a re-fetch, which fails against the dead URL.
	_, err := ensureSource(context.Background(), bc, spec)
	assert.Error(t, err)
}

func TestApplyGnuMirror(t *testing.T) {
	saved := gnuMirrorURL
	defer func() { gnuMirrorURL = saved }()

	gnuMirrorURL = "https://mirrors.kernel.org/gnu"
	assert.Equal(t,
		"https://mirrors.kernel.org/gnu/binutils/binutils-2.42.tar.xz",
		applyGnuMirror("https://ftp.gnu.org/gnu/binutils/binutils-2.42.tar.xz"))

	// Non-GNU URLs pass through untouched.
	url := "https://static.rust-lang.org/dist/rustc-1.75.0-src.tar.xz"
	assert.Equal(t, url, applyGnuMirror(url))

	gnuMirrorURL = ""
	url = "https://ftp.gnu.org/gnu/gcc/gcc-13.2.0/gcc-13.2.0.tar.xz"
	assert.Equal(t, url, applyGnuMirror(url))
}
