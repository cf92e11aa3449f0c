package crossforge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// sourceSpec describes one upstream release: where to fetch it and what the
// extracted tree is called.
type sourceSpec struct {
	Name    string   // project name, e.g. "gcc"
	Version string
	Archive string   // archive file name
	URLs    []string // mirror URLs, tried in order
	DirName string   // canonical extracted directory name
	DirGlob string   // pattern to locate the tree when upstream names it unpredictably
}

func gccSource(version string) sourceSpec {
	archive := fmt.Sprintf("gcc-%s.tar.xz", version)
	return sourceSpec{
		Name:    "gcc",
		Version: version,
		Archive: archive,
		URLs: []string{
			fmt.Sprintf("https://ftp.gnu.org/gnu/gcc/gcc-%s/%s", version, archive),
			fmt.Sprintf("https://mirrors.kernel.org/gnu/gcc/gcc-%s/%s", version, archive),
			fmt.Sprintf("https://ftpmirror.gnu.org/gcc/gcc-%s/%s", version, archive),
		},
		DirName: fmt.Sprintf("gcc-%s", version),
	}
}

func binutilsSource(version string) sourceSpec {
	archive := fmt.Sprintf("binutils-%s.tar.xz", version)
	return sourceSpec{
		Name:    "binutils",
		Version: version,
		Archive: archive,
		URLs: []string{
			"https://ftp.gnu.org/gnu/binutils/" + archive,
			"https://mirrors.kernel.org/gnu/binutils/" + archive,
		},
		DirName: fmt.Sprintf("binutils-%s", version),
	}
}

// llvmSource: the GitHub release archive extracts to llvm-project-X.src (or
// other versioned suffixes on older releases), so the tree is located by
// pattern after extraction and renamed to the canonical name.
func llvmSource(version string) sourceSpec {
	archive := fmt.Sprintf("llvm-project-%s.src.tar.xz", version)
	return sourceSpec{
		Name:    "llvm",
		Version: version,
		Archive: archive,
		URLs: []string{
			fmt.Sprintf("https://github.com/llvm/llvm-project/releases/download/llvmorg-%s/%s", version, archive),
			fmt.Sprintf("https://mirrors.edge.kernel.org/pub/llvm/%s/%s", version, archive),
		},
		DirName: fmt.Sprintf("llvm-project-%s", version),
		DirGlob: fmt.Sprintf("llvm-project-%s*", version),
	}
}

func rustSource(version string) sourceSpec {
	archive := fmt.Sprintf("rustc-%s-src.tar.xz", version)
	return sourceSpec{
		Name:    "rust",
		Version: version,
		Archive: archive,
		URLs: []string{
			"https://static.rust-lang.org/dist/" + archive,
		},
		DirName: fmt.Sprintf("rustc-%s-src", version),
	}
}

func glibcSource(version string) sourceSpec {
	archive := fmt.Sprintf("glibc-%s.tar.xz", version)
	return sourceSpec{
		Name:    "glibc",
		Version: version,
		Archive: archive,
		URLs: []string{
			"https://ftp.gnu.org/gnu/glibc/" + archive,
			"https://mirrors.kernel.org/gnu/glibc/" + archive,
		},
		DirName: fmt.Sprintf("glibc-%s", version),
	}
}

func newlibSource(version string) sourceSpec {
	archive := fmt.Sprintf("newlib-%s.tar.gz", version)
	return sourceSpec{
		Name:    "newlib",
		Version: version,
		Archive: archive,
		URLs: []string{
			"https://sourceware.org/pub/newlib/" + archive,
			"https://mirrors.kernel.org/sourceware/newlib/" + archive,
		},
		DirName: fmt.Sprintf("newlib-%s", version),
	}
}

func muslSource(version string) sourceSpec {
	archive := fmt.Sprintf("musl-%s.tar.gz", version)
	return sourceSpec{
		Name:    "musl",
		Version: version,
		Archive: archive,
		URLs: []string{
			"https://musl.libc.org/releases/" + archive,
		},
		DirName: fmt.Sprintf("musl-%s", version),
	}
}

func libcSource(name, version string) (sourceSpec, error) {
	switch name {
	case "glibc":
		return glibcSource(version), nil
	case "newlib":
		return newlibSource(version), nil
	case "musl":
		return muslSource(version), nil
	}
	return sourceSpec{}, fmt.Errorf("unsupported C library %q", name)
}

// cachePath returns the download cache location for spec. The key hashes
// URL and version together so a changed version pin never reuses a stale
// same-named file.
func cachePath(bc *BuildConfig, spec sourceSpec) string {
	key := hashString(spec.URLs[0] + spec.Version)
	return filepath.Join(bc.CacheDir, fmt.Sprintf("%s-%s", key[:16], spec.Archive))
}

// ensureCached downloads the archive into the cache unless it is already
// there. Returns the cached path.
func ensureCached(ctx context.Context, bc *BuildConfig, spec sourceSpec) (string, error) {
	dest := cachePath(bc, spec)
	if _, err := os.Stat(dest); err == nil {
		debugf("Already in cache: %s\n", dest)
		return dest, nil
	}
	colArrow.Print("-> ")
	colSuccess.Printf("Fetching source: %s\n", spec.Archive)
	if err := downloadWithMirrors(ctx, spec.URLs, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// ensureSource guarantees an extracted source tree for spec and returns its
// path. A tree is reused only when its state manifest matches the requested
// version; a stale tree (same name, different contents) is re-fetched.
func ensureSource(ctx context.Context, bc *BuildConfig, spec sourceSpec) (string, error) {
	dir := filepath.Join(bc.SourceDir, spec.DirName)

	if st := readState(dir); st != nil && st.Name == spec.Name && st.Version == spec.Version && st.Completed {
		debugf("Source tree up to date: %s\n", dir)
		return dir, nil
	}
	if _, err := os.Stat(dir); err == nil {
		warnf("Source tree %s has no matching state record, re-extracting\n", dir)
		if err := os.RemoveAll(dir); err != nil {
			return "", fmt.Errorf("failed to remove stale source tree %s: %w", dir, err)
		}
	}

	archive, err := ensureCached(ctx, bc, spec)
	if err != nil {
		return "", err
	}

	infof("Extracting %s\n", filepath.Base(archive))
	if err := os.MkdirAll(bc.SourceDir, 0o755); err != nil {
		return "", err
	}
	if err := extractArchive(archive, bc.SourceDir, false); err != nil {
		return "", fmt.Errorf("failed to extract %s: %w", archive, err)
	}

	// Some upstreams (LLVM's .src suffix) extract to a name we cannot
	// predict exactly; locate the tree by pattern and rename it.
	if _, err := os.Stat(dir); os.IsNotExist(err) && spec.DirGlob != "" {
		matches, _ := filepath.Glob(filepath.Join(bc.SourceDir, spec.DirGlob))
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.IsDir() {
				debugf("Renaming extracted tree %s -> %s\n", m, dir)
				if err := os.Rename(m, dir); err != nil {
					return "", fmt.Errorf("failed to canonicalize source tree: %w", err)
				}
				break
			}
		}
	}
	if _, err := os.Stat(dir); err != nil {
		return "", fmt.Errorf("archive %s did not produce expected tree %s", filepath.Base(archive), spec.DirName)
	}

	if err := writeState(dir, &buildState{Name: spec.Name, Version: spec.Version, Completed: true}); err != nil {
		return "", err
	}
	return dir, nil
}
