package crossforge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "binutils")
	assert.Nil(t, readState(dir), "missing manifest reads as nil")

	st := &buildState{
		Name:       "binutils",
		Version:    "2.42",
		FlagsHash:  hashFlags([]string{"--target=riscv64-elf"}),
		Target:     "riscv64-elf",
		Prefix:     "/opt/cross",
		Configured: true,
		Completed:  true,
	}
	require.NoError(t, writeState(dir, st))

	got := readState(dir)
	require.NotNil(t, got)
	assert.Equal(t, st, got)

	// No stray temp file left behind by the atomic write.
	_, err := os.Stat(filepath.Join(dir, stateFileName+".tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestReadStateCorrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, stateFileName), []byte("{not json"), 0o644))
	assert.Nil(t, readState(dir))
}

func TestHashFlags(t *testing.T) {
	base := hashFlags([]string{"--target=riscv64-elf", "--prefix=/opt"})
	assert.Equal(t, base, hashFlags([]string{"--target=riscv64-elf", "--prefix=/opt"}))
	assert.NotEqual(t, base, hashFlags([]string{"--prefix=/opt", "--target=riscv64-elf"}),
		"order is significant")
	assert.NotEqual(t, hashFlags([]string{"ab", "c"}), hashFlags([]string{"a", "bc"}),
		"argument boundaries are significant")
}

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob")
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o644))

	sum, err := hashFile(path)
	require.NoError(t, err)
	assert.Len(t, sum, 64)
	assert.Equal(t, hashString("payload"), sum)

	_, err = hashFile(path + ".missing")
	assert.Error(t, err)
}

func TestNeedsConfigure(t *testing.T) {
	bc := testBuildFlags(t, "--target", "riscv64-elf")
	dir := bc.BuildDir("binutils")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	flags := []string{"--target=riscv64-elf", "--prefix=" + bc.Prefix}

	assert.True(t, needsConfigure(dir, "Makefile", flags), "no marker yet")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "Makefile"), nil, 0o644))
	assert.True(t, needsConfigure(dir, "Makefile", flags), "marker without manifest is not trusted")

	require.NoError(t, markConfigured(dir, "binutils", "2.42", flags, bc))
	assert.False(t, needsConfigure(dir, "Makefile", flags))

	changed := append(flags, "--disable-gold")
	assert.True(t, needsConfigure(dir, "Makefile", changed), "changed flags force a reconfigure")
}

func TestBinutilsReady(t *testing.T) {
	bc := testBuildFlags(t, "--target", "riscv64-elf")
	assert.False(t, binutilsReady(bc))

	dir := bc.BuildDir("binutils")
	flags := binutilsConfigureArgs(bc)
	require.NoError(t, markConfigured(dir, "binutils", bc.BinutilsVersion, flags, bc))
	assert.False(t, binutilsReady(bc), "configured but not installed")

	require.NoError(t, markCompleted(dir, "binutils", bc.BinutilsVersion, flags, bc))
	assert.True(t, binutilsReady(bc))

	// A binutils built for another target does not satisfy this run.
	other := *bc
	other.Target = parseTriple("arm-none-eabi")
	assert.False(t, binutilsReady(&other))
}
