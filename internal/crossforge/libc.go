package crossforge

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
)

// libcConfigureArgs assembles the configure invocation for the selected C
// library. Each library has its own conventions: glibc configures for the
// host triple and installs under DESTDIR, newlib and musl behave like
// ordinary cross packages.
func libcConfigureArgs(bc *BuildConfig) []string {
	var args []string
	switch bc.Libc {
	case "glibc":
		args = []string{
			"--host=" + bc.Target.Raw,
			"--prefix=/usr",
			"--disable-werror",
		}
		if bc.Sysroot != "" {
			args = append(args, "--with-headers="+filepath.Join(bc.Sysroot, "usr", "include"))
		}
	case "newlib":
		args = []string{
			"--target=" + bc.Target.Raw,
			"--prefix=" + bc.Prefix,
			"--disable-nls",
			"--disable-newlib-supplied-syscalls",
		}
	case "musl":
		args = []string{
			"--target=" + bc.Target.Raw,
			"--prefix=" + bc.Prefix,
			"--disable-shared",
			"--enable-static",
		}
	}
	return append(args, bc.ExtraFlags...)
}

// buildLibc builds the configured C library with the freshly installed
// cross compiler.
func buildLibc(ctx context.Context, bc *BuildConfig, run Runner) error {
	stepf("LIBC", "Building %s %s", bc.Libc, bc.LibcVersion)

	spec, err := libcSource(bc.Libc, bc.LibcVersion)
	if err != nil {
		return stepFailed(bc.Libc, "fetch", err)
	}
	srcDir, err := ensureSource(ctx, bc, spec)
	if err != nil {
		return stepFailed(bc.Libc, "fetch", err)
	}

	buildDir, err := prepareBuildDir(bc, bc.Libc)
	if err != nil {
		return stepFailed(bc.Libc, "prepare", err)
	}

	logw, err := openLog(bc, bc.Libc)
	if err != nil {
		return stepFailed(bc.Libc, "prepare", err)
	}
	defer logw.Close()

	env := prependPath(buildEnv(bc), filepath.Join(bc.Prefix, "bin"))
	env = append(env,
		"CC="+bc.Target.Raw+"-gcc",
		"CXX="+bc.Target.Raw+"-g++",
	)

	cfgArgs := libcConfigureArgs(bc)
	if needsConfigure(buildDir, "Makefile", cfgArgs) {
		cmd := exec.Command(filepath.Join(srcDir, "configure"), cfgArgs...)
		cmd.Dir = buildDir
		cmd.Env = env
		if err := runStage(run, logw, bc.Libc, "configure", cmd); err != nil {
			return err
		}
		if err := markConfigured(buildDir, bc.Libc, bc.LibcVersion, cfgArgs, bc); err != nil {
			return stepFailed(bc.Libc, "configure", err)
		}
	}

	build := exec.Command("make", fmt.Sprintf("-j%d", bc.Jobs))
	build.Dir = buildDir
	build.Env = env
	if err := runStage(run, logw, bc.Libc, "build", build); err != nil {
		return err
	}

	// glibc configures with --prefix=/usr, so a bare make install would
	// write into the host's /usr. Install only under DESTDIR=<sysroot>
	// and skip the step entirely when no sysroot was resolved.
	var install *exec.Cmd
	if bc.Libc == "glibc" {
		if bc.Sysroot == "" {
			warnf("No sysroot resolved, skipping glibc install\n")
			return markCompleted(buildDir, bc.Libc, bc.LibcVersion, cfgArgs, bc)
		}
		install = exec.Command("make", "DESTDIR="+bc.Sysroot, "install")
	} else {
		install = exec.Command("make", "install")
	}
	install.Dir = buildDir
	install.Env = env
	if err := runStage(run, logw, bc.Libc, "install", install); err != nil {
		return err
	}

	return markCompleted(buildDir, bc.Libc, bc.LibcVersion, cfgArgs, bc)
}
