package crossforge

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
)

// binutilsConfigureArgs assembles the configure invocation for binutils.
func binutilsConfigureArgs(bc *BuildConfig) []string {
	args := []string{
		"--target=" + bc.Target.Raw,
		"--prefix=" + bc.Prefix,
		"--disable-nls",
		"--disable-werror",
		"--disable-multilib",
		"--enable-gold",
		"--enable-plugins",
		"--enable-deterministic-archives",
	}
	if bc.Sysroot != "" {
		args = append(args, "--with-sysroot="+bc.Sysroot)
	}
	return append(args, bc.ExtraFlags...)
}

// buildBinutils fetches, configures, builds and installs binutils for the
// configured target.
func buildBinutils(ctx context.Context, bc *BuildConfig, run Runner) error {
	stepf("BINUTILS", "Building binutils %s for %s", bc.BinutilsVersion, bc.Target.Raw)

	srcDir, err := ensureSource(ctx, bc, binutilsSource(bc.BinutilsVersion))
	if err != nil {
		return stepFailed("binutils", "fetch", err)
	}

	buildDir, err := prepareBuildDir(bc, "binutils")
	if err != nil {
		return stepFailed("binutils", "prepare", err)
	}

	logw, err := openLog(bc, "binutils")
	if err != nil {
		return stepFailed("binutils", "prepare", err)
	}
	defer logw.Close()

	env := buildEnv(bc)
	cfgArgs := binutilsConfigureArgs(bc)

	if needsConfigure(buildDir, "Makefile", cfgArgs) {
		cmd := exec.Command(filepath.Join(srcDir, "configure"), cfgArgs...)
		cmd.Dir = buildDir
		cmd.Env = env
		if err := runStage(run, logw, "binutils", "configure", cmd); err != nil {
			return err
		}
		if err := markConfigured(buildDir, "binutils", bc.BinutilsVersion, cfgArgs, bc); err != nil {
			return stepFailed("binutils", "configure", err)
		}
	}

	make := exec.Command("make", fmt.Sprintf("-j%d", bc.Jobs))
	make.Dir = buildDir
	make.Env = env
	if err := runStage(run, logw, "binutils", "build", make); err != nil {
		return err
	}

	install := exec.Command("make", "install")
	install.Dir = buildDir
	install.Env = env
	if err := runStage(run, logw, "binutils", "install", install); err != nil {
		return err
	}

	if err := markCompleted(buildDir, "binutils", bc.BinutilsVersion, cfgArgs, bc); err != nil {
		return stepFailed("binutils", "install", err)
	}
	colSuccess.Printf("binutils %s installed to %s\n", bc.BinutilsVersion, bc.Prefix)
	return nil
}

// binutilsReady reports whether a completed binutils install exists for the
// same target and prefix. GCC's configure probes PATH for the target
// assembler, so this is a hard precondition, not an ordering convention.
func binutilsReady(bc *BuildConfig) bool {
	st := readState(bc.BuildDir("binutils"))
	return st != nil && st.Completed && st.Target == bc.Target.Raw && st.Prefix == bc.Prefix
}
