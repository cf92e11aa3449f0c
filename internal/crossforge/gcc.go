package crossforge

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// gccConfigureArgs assembles the configure invocation for GCC. The profile
// decides the mutually exclusive subset; everything else is shared.
func gccConfigureArgs(bc *BuildConfig) []string {
	args := []string{
		"--target=" + bc.Target.Raw,
		"--prefix=" + bc.Prefix,
		"--enable-languages=" + strings.Join(bc.Languages, ","),
		"--disable-nls",
		"--disable-multilib",
		"--enable-checking=release",
		"--with-gnu-as",
		"--with-gnu-ld",
	}
	args = append(args, gccProfileFlags(bc.Profile(), bc)...)
	if bc.EnableLTO {
		args = append(args, "--enable-lto")
	}
	return append(args, bc.ExtraFlags...)
}

// buildGCC builds and installs GCC. Binutils for the same target and prefix
// must be installed first; the dependency is checked explicitly rather than
// assumed from invocation order.
func buildGCC(ctx context.Context, bc *BuildConfig, run Runner) error {
	if !binutilsReady(bc) {
		return stepFailed("gcc", "precondition",
			fmt.Errorf("binutils for %s is not installed under %s; build binutils first", bc.Target.Raw, bc.Prefix))
	}

	stepf("GCC", "Building GCC %s for %s (%s)", bc.GCCVersion, bc.Target.Raw, bc.Profile())

	srcDir, err := ensureSource(ctx, bc, gccSource(bc.GCCVersion))
	if err != nil {
		return stepFailed("gcc", "fetch", err)
	}

	buildDir, err := prepareBuildDir(bc, "gcc")
	if err != nil {
		return stepFailed("gcc", "prepare", err)
	}

	logw, err := openLog(bc, "gcc")
	if err != nil {
		return stepFailed("gcc", "prepare", err)
	}
	defer logw.Close()

	// The just-installed binutils must be on PATH for the assembler probe.
	env := prependPath(buildEnv(bc), filepath.Join(bc.Prefix, "bin"))

	// GMP/MPFR/MPC/ISL are vendored into the source tree by the upstream
	// helper; idempotent on its own (it skips tarballs already present).
	prereq := exec.Command(filepath.Join(srcDir, "contrib", "download_prerequisites"))
	prereq.Dir = srcDir
	prereq.Env = env
	if err := runStage(run, logw, "gcc", "prerequisites", prereq); err != nil {
		return err
	}

	cfgArgs := gccConfigureArgs(bc)
	if needsConfigure(buildDir, "Makefile", cfgArgs) {
		cmd := exec.Command(filepath.Join(srcDir, "configure"), cfgArgs...)
		cmd.Dir = buildDir
		cmd.Env = env
		if err := runStage(run, logw, "gcc", "configure", cmd); err != nil {
			return err
		}
		if err := markConfigured(buildDir, "gcc", bc.GCCVersion, cfgArgs, bc); err != nil {
			return stepFailed("gcc", "configure", err)
		}
	}

	jobs := fmt.Sprintf("-j%d", bc.Jobs)

	build := exec.Command("make", jobs, "all-gcc", "all-target-libgcc")
	build.Dir = buildDir
	build.Env = env
	if err := runStage(run, logw, "gcc", "build", build); err != nil {
		return err
	}

	install := exec.Command("make", "install-gcc", "install-target-libgcc")
	install.Dir = buildDir
	install.Env = env
	if err := runStage(run, logw, "gcc", "install", install); err != nil {
		return err
	}

	// With a C library requested, build it with the stage-1 compiler and
	// then finish the full GCC (libstdc++ and friends need the libc).
	if bc.Libc != "" {
		if err := buildLibc(ctx, bc, run); err != nil {
			return err
		}

		full := exec.Command("make", jobs)
		full.Dir = buildDir
		full.Env = env
		if err := runStage(run, logw, "gcc", "build-full", full); err != nil {
			return err
		}

		installFull := exec.Command("make", "install")
		installFull.Dir = buildDir
		installFull.Env = env
		if err := runStage(run, logw, "gcc", "install-full", installFull); err != nil {
			return err
		}
	}

	if err := markCompleted(buildDir, "gcc", bc.GCCVersion, cfgArgs, bc); err != nil {
		return stepFailed("gcc", "install", err)
	}
	colSuccess.Printf("GCC %s installed to %s\n", bc.GCCVersion, bc.Prefix)
	return nil
}
