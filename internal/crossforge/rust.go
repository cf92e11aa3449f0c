package crossforge

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// rustConfig renders the minimal config.toml the rustc build driver reads:
// build/host/target triples, build dir, and the install prefix.
func rustConfig(bc *BuildConfig, buildDir string) string {
	host := hostTripleArch() + "-unknown-linux-gnu"
	return fmt.Sprintf(`# generated by crossforge; do not edit
[build]
build = %q
host = [%q]
target = [%q]
build-dir = %q
docs = false
extended = true

[install]
prefix = %q
sysconfdir = "etc"

[rust]
channel = "stable"
`, host, host, bc.Target.Raw, buildDir, bc.Prefix)
}

// buildRust drives rustc's own multi-stage build via x.py. Unlike the
// autotools flow there is no separate configure step: the generated
// config.toml plays that role, and its flags hash gates regeneration.
func buildRust(ctx context.Context, bc *BuildConfig, run Runner) error {
	stepf("RUST", "Building Rust %s for %s", bc.RustVersion, bc.Target.Raw)

	srcDir, err := ensureSource(ctx, bc, rustSource(bc.RustVersion))
	if err != nil {
		return stepFailed("rust", "fetch", err)
	}

	buildDir, err := prepareBuildDir(bc, "rust")
	if err != nil {
		return stepFailed("rust", "prepare", err)
	}

	logw, err := openLog(bc, "rust")
	if err != nil {
		return stepFailed("rust", "prepare", err)
	}
	defer logw.Close()

	cfg := rustConfig(bc, buildDir)
	cfgPath := filepath.Join(buildDir, "config.toml")
	if needsConfigure(buildDir, "config.toml", []string{cfg}) {
		if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
			return stepFailed("rust", "configure", err)
		}
		if err := markConfigured(buildDir, "rust", bc.RustVersion, []string{cfg}, bc); err != nil {
			return stepFailed("rust", "configure", err)
		}
	}

	install := exec.Command("python3", filepath.Join(srcDir, "x.py"),
		"install", "--config", cfgPath, "-j", fmt.Sprintf("%d", bc.Jobs))
	install.Dir = srcDir
	install.Env = buildEnv(bc)
	if err := runStage(run, logw, "rust", "install", install); err != nil {
		return err
	}

	if err := markCompleted(buildDir, "rust", bc.RustVersion, []string{cfg}, bc); err != nil {
		return stepFailed("rust", "install", err)
	}
	colSuccess.Printf("Rust %s installed to %s\n", bc.RustVersion, bc.Prefix)
	return nil
}
