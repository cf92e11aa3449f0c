package crossforge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingRunner captures every command a build step would execute instead
// of running it.
type recordingRunner struct {
	commands [][]string
	dirs     []string
	envs     [][]string
	fail     func(args []string) error
}

func (r *recordingRunner) Run(cmd *exec.Cmd) error {
	r.commands = append(r.commands, append([]string(nil), cmd.Args...))
	r.dirs = append(r.dirs, cmd.Dir)
	r.envs = append(r.envs, cmd.Env)
	if r.fail != nil {
		return r.fail(cmd.Args)
	}
	return nil
}

func (r *recordingRunner) lines() []string {
	out := make([]string, len(r.commands))
	for i, c := range r.commands {
		out[i] = strings.Join(c, " ")
	}
	return out
}

// writeMakefileMarker fakes the build-system marker configure would have
// produced in buildDir.
func writeMakefileMarker(t *testing.T, buildDir string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(buildDir, "Makefile"), nil, 0o644))
}

// seedSource fakes an already fetched and extracted upstream tree so build
// steps never touch the network in tests.
func seedSource(t *testing.T, bc *BuildConfig, spec sourceSpec) string {
	t.Helper()
	dir := filepath.Join(bc.SourceDir, spec.DirName)
	require.NoError(t, writeState(dir, &buildState{
		Name:      spec.Name,
		Version:   spec.Version,
		Completed: true,
	}))
	return dir
}

func TestBuildBinutilsCommandSequence(t *testing.T) {
	bc := testBuildFlags(t, "--target", "riscv64-elf", "--jobs", "2")
	srcDir := seedSource(t, bc, binutilsSource(bc.BinutilsVersion))
	rec := &recordingRunner{}

	require.NoError(t, buildBinutils(context.Background(), bc, rec))

	lines := rec.lines()
	require.Len(t, lines, 3)
	assert.Equal(t, filepath.Join(srcDir, "configure"), rec.commands[0][0])
	assert.Contains(t, rec.commands[0], "--target=riscv64-elf")
	assert.Contains(t, rec.commands[0], "--prefix="+bc.Prefix)
	assert.Contains(t, rec.commands[0], "--enable-deterministic-archives")
	assert.Equal(t, "make -j2", lines[1])
	assert.Equal(t, "make install", lines[2])

	for _, dir := range rec.dirs {
		assert.Equal(t, bc.BuildDir("binutils"), dir)
	}

	st := readState(bc.BuildDir("binutils"))
	require.NotNil(t, st)
	assert.True(t, st.Completed)
	assert.Equal(t, "riscv64-elf", st.Target)
}

func TestBuildBinutilsSkipsConfigureOnRerun(t *testing.T) {
	bc := testBuildFlags(t, "--target", "riscv64-elf", "--jobs", "2")
	seedSource(t, bc, binutilsSource(bc.BinutilsVersion))

	first := &recordingRunner{}
	require.NoError(t, buildBinutils(context.Background(), bc, first))
	require.Len(t, first.commands, 3)

	// The marker configure would have produced.
	writeMakefileMarker(t, bc.BuildDir("binutils"))

	second := &recordingRunner{}
	require.NoError(t, buildBinutils(context.Background(), bc, second))
	lines := second.lines()
	require.Len(t, lines, 2, "configure must be skipped, make/install still run")
	assert.Equal(t, "make -j2", lines[0])
	assert.Equal(t, "make install", lines[1])
}

func TestBuildBinutilsReconfiguresOnFlagChange(t *testing.T) {
	bc := testBuildFlags(t, "--target", "riscv64-elf", "--jobs", "2")
	seedSource(t, bc, binutilsSource(bc.BinutilsVersion))
	require.NoError(t, buildBinutils(context.Background(), bc, &recordingRunner{}))
	writeMakefileMarker(t, bc.BuildDir("binutils"))

	changed := *bc
	changed.ExtraFlags = []string{"--disable-gold"}
	rec := &recordingRunner{}
	require.NoError(t, buildBinutils(context.Background(), &changed, rec))
	require.Len(t, rec.commands, 3)
	assert.Contains(t, rec.commands[0], "--disable-gold")
}

func TestBuildGCCRequiresBinutils(t *testing.T) {
	bc := testBuildFlags(t, "--target", "riscv64-elf")
	seedSource(t, bc, gccSource(bc.GCCVersion))

	err := buildGCC(context.Background(), bc, &recordingRunner{})
	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "gcc", se.Tool)
	assert.Equal(t, "precondition", se.Stage)
}

func TestBuildGCCFreestandingSequence(t *testing.T) {
	bc := testBuildFlags(t, "--target", "riscv64-elf", "--jobs", "2")
	seedSource(t, bc, binutilsSource(bc.BinutilsVersion))
	srcDir := seedSource(t, bc, gccSource(bc.GCCVersion))
	require.NoError(t, buildBinutils(context.Background(), bc, &recordingRunner{}))

	rec := &recordingRunner{}
	require.NoError(t, buildGCC(context.Background(), bc, rec))

	lines := rec.lines()
	require.Len(t, lines, 4)
	assert.Equal(t, filepath.Join(srcDir, "contrib", "download_prerequisites"), rec.commands[0][0])
	assert.Equal(t, filepath.Join(srcDir, "configure"), rec.commands[1][0])
	assert.Contains(t, rec.commands[1], "--target=riscv64-elf")
	assert.Contains(t, rec.commands[1], "--without-headers")
	assert.Equal(t, "make -j2 all-gcc all-target-libgcc", lines[2])
	assert.Equal(t, "make install-gcc install-target-libgcc", lines[3])

	// The fresh binutils must be first on PATH for GCC's assembler probe.
	binDir := filepath.Join(bc.Prefix, "bin")
	foundPath := false
	for _, e := range rec.envs[1] {
		if strings.HasPrefix(e, "PATH=") {
			foundPath = true
			assert.True(t, strings.HasPrefix(e, "PATH="+binDir+":"), e)
		}
	}
	assert.True(t, foundPath)
}

func TestBuildGCCWithNewlib(t *testing.T) {
	bc := testBuildFlags(t, "--target", "riscv64-elf", "--jobs", "4", "--enable-libc", "newlib")
	seedSource(t, bc, binutilsSource(bc.BinutilsVersion))
	seedSource(t, bc, gccSource(bc.GCCVersion))
	newlibSrc := seedSource(t, bc, newlibSource(bc.LibcVersion))
	require.NoError(t, buildBinutils(context.Background(), bc, &recordingRunner{}))

	rec := &recordingRunner{}
	require.NoError(t, buildGCC(context.Background(), bc, rec))

	lines := rec.lines()
	// prerequisites, configure, stage-1 build+install, newlib
	// configure+make+install, then the full gcc build+install.
	require.Len(t, lines, 9)
	assert.Contains(t, rec.commands[1], "--with-newlib")
	assert.Equal(t, "make install-gcc install-target-libgcc", lines[3])
	assert.Equal(t, filepath.Join(newlibSrc, "configure"), rec.commands[4][0])
	assert.Contains(t, rec.commands[4], "--disable-newlib-supplied-syscalls")
	assert.Equal(t, "make -j4", lines[5])
	assert.Equal(t, "make install", lines[6])
	assert.Equal(t, "make -j4", lines[7])
	assert.Equal(t, "make install", lines[8])

	// The libc is compiled with the stage-1 cross compiler.
	foundCC := false
	for _, e := range rec.envs[4] {
		if e == "CC=riscv64-elf-gcc" {
			foundCC = true
		}
	}
	assert.True(t, foundCC)
}

func TestBuildLibcGlibcInstallsOnlyUnderSysroot(t *testing.T) {
	bc := testBuildFlags(t, "--target", "aarch64-linux-gnu", "--enable-libc", "glibc", "--jobs", "2")
	require.NotEmpty(t, bc.Sysroot)
	seedSource(t, bc, glibcSource(bc.LibcVersion))

	rec := &recordingRunner{}
	require.NoError(t, buildLibc(context.Background(), bc, rec))

	lines := rec.lines()
	require.Len(t, lines, 3)
	assert.Equal(t, "make DESTDIR="+bc.Sysroot+" install", lines[2])
}

func TestBuildLibcGlibcWithoutSysrootSkipsInstall(t *testing.T) {
	// glibc configures with --prefix=/usr; without a sysroot to redirect
	// the install into, running make install would write to the host /usr.
	bc := testBuildFlags(t, "--target", "x86_64-elf", "--enable-libc", "glibc", "--jobs", "1")
	require.Empty(t, bc.Sysroot)
	seedSource(t, bc, glibcSource(bc.LibcVersion))

	rec := &recordingRunner{}
	require.NoError(t, buildLibc(context.Background(), bc, rec))

	lines := rec.lines()
	require.Len(t, lines, 2, "configure and make only")
	for _, line := range lines {
		assert.NotContains(t, line, "install")
	}

	st := readState(bc.BuildDir("glibc"))
	require.NotNil(t, st)
	assert.True(t, st.Completed)
}

func TestDispatchFullGCCScenario(t *testing.T) {
	bc := testBuildFlags(t, "--toolchain", "gcc", "--target", "riscv64-elf", "--jobs", "2")
	seedSource(t, bc, binutilsSource(bc.BinutilsVersion))
	seedSource(t, bc, gccSource(bc.GCCVersion))

	rec := &recordingRunner{}
	require.NoError(t, Dispatch(context.Background(), bc, rec))

	lines := rec.lines()
	require.Len(t, lines, 7, "binutils (3) then gcc (4)")
	assert.Contains(t, rec.commands[0][0], "binutils-"+bc.BinutilsVersion)
	assert.Contains(t, rec.commands[3][0], "gcc-"+bc.GCCVersion)
}

func TestBuildStepFailurePropagates(t *testing.T) {
	bc := testBuildFlags(t, "--target", "riscv64-elf", "--jobs", "2")
	seedSource(t, bc, binutilsSource(bc.BinutilsVersion))

	rec := &recordingRunner{fail: func(args []string) error {
		if args[0] == "make" {
			return errors.New("make: *** [all] Error 2")
		}
		return nil
	}}

	err := buildBinutils(context.Background(), bc, rec)
	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "binutils", se.Tool)
	assert.Equal(t, "build", se.Stage)

	st := readState(bc.BuildDir("binutils"))
	require.NotNil(t, st)
	assert.False(t, st.Completed, "a failed build never reads as completed")
}

func TestBuildLLVMCommandSequence(t *testing.T) {
	bc := testBuildFlags(t, "--toolchain", "llvm", "--target", "aarch64-linux-gnu", "--jobs", "8")
	srcDir := seedSource(t, bc, llvmSource(bc.LLVMVersion))

	rec := &recordingRunner{}
	require.NoError(t, buildLLVM(context.Background(), bc, rec))

	lines := rec.lines()
	require.Len(t, lines, 3)
	assert.Equal(t, "cmake", rec.commands[0][0])
	assert.Contains(t, rec.commands[0], filepath.Join(srcDir, "llvm"))
	assert.Contains(t, rec.commands[0], "-DLLVM_TARGETS_TO_BUILD=AArch64")
	assert.Equal(t, "ninja -j8", lines[1])
	assert.Equal(t, "ninja install", lines[2])
}

func TestBuildRustWritesConfig(t *testing.T) {
	bc := testBuildFlags(t, "--toolchain", "rust", "--target", "aarch64-linux-gnu", "--jobs", "2")
	srcDir := seedSource(t, bc, rustSource(bc.RustVersion))

	rec := &recordingRunner{}
	require.NoError(t, buildRust(context.Background(), bc, rec))

	require.Len(t, rec.commands, 1)
	assert.Equal(t, "python3", rec.commands[0][0])
	assert.Equal(t, filepath.Join(srcDir, "x.py"), rec.commands[0][1])
	assert.Contains(t, rec.commands[0], "install")
	assert.Equal(t, srcDir, rec.dirs[0])

	cfg := rustConfig(bc, bc.BuildDir("rust"))
	assert.Contains(t, cfg, fmt.Sprintf("target = [%q]", "aarch64-linux-gnu"))
	assert.Contains(t, cfg, fmt.Sprintf("prefix = %q", bc.Prefix))
	assert.Contains(t, cfg, `channel = "stable"`)
}
