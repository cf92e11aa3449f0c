package crossforge

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// buildEnv assembles the environment every upstream build runs with:
// optimization level folded into CFLAGS/CXXFLAGS, user extras appended.
func buildEnv(bc *BuildConfig) []string {
	env := os.Environ()
	opt := fmt.Sprintf("-O%s", bc.Optimize)
	cflags := strings.TrimSpace(opt + " " + bc.CFlags)
	env = append(env,
		"CFLAGS="+cflags,
		"CXXFLAGS="+cflags,
	)
	if bc.LDFlags != "" {
		env = append(env, "LDFLAGS="+bc.LDFlags)
	}
	return env
}

// prependPath returns env with dir prepended to PATH. GCC's build probes
// PATH for the target assembler and linker, so the freshly installed
// binutils must be visible before configure runs.
func prependPath(env []string, dir string) []string {
	out := make([]string, 0, len(env)+1)
	found := false
	for _, e := range env {
		if strings.HasPrefix(e, "PATH=") {
			out = append(out, "PATH="+dir+":"+strings.TrimPrefix(e, "PATH="))
			found = true
			continue
		}
		out = append(out, e)
	}
	if !found {
		out = append(out, "PATH="+dir)
	}
	return out
}

// openLog opens the per-tool build log. Upstream output is teed there so
// the log viewer can replay it after the fact.
func openLog(bc *BuildConfig, tool string) (*os.File, error) {
	if err := os.MkdirAll(bc.LogsDir, 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(bc.LogsDir, tool+".log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// runStage executes one upstream command, teeing its output into logw, and
// wraps any failure in a StepError naming tool and stage.
func runStage(run Runner, logw io.Writer, tool, stage string, cmd *exec.Cmd) error {
	if Verbose {
		infof("[%s/%s] %s\n", tool, stage, strings.Join(cmd.Args, " "))
	}
	debugf("[%s/%s] running in %s\n", tool, stage, cmd.Dir)
	if logw != nil {
		fmt.Fprintf(logw, "+ %s\n", strings.Join(cmd.Args, " "))
		cmd.Stdout = io.MultiWriter(os.Stdout, logw)
		cmd.Stderr = io.MultiWriter(os.Stderr, logw)
	}
	if err := run.Run(cmd); err != nil {
		return stepFailed(tool, stage, err)
	}
	return nil
}

// needsConfigure reports whether the build directory must be (re)configured:
// either the build-system marker file is missing, or the recorded flags hash
// no longer matches the flags about to be used.
func needsConfigure(buildDir, marker string, flags []string) bool {
	if _, err := os.Stat(filepath.Join(buildDir, marker)); err != nil {
		return true
	}
	st := readState(buildDir)
	if st == nil || !st.Configured {
		return true
	}
	if st.FlagsHash != hashFlags(flags) {
		infof("Configure flags changed, reconfiguring %s\n", buildDir)
		return true
	}
	debugf("Skipping configure, %s already configured\n", buildDir)
	return false
}

// prepareBuildDir creates (and with CleanBuild, first removes) the per-tool
// build directory.
func prepareBuildDir(bc *BuildConfig, tool string) (string, error) {
	dir := bc.BuildDir(tool)
	if bc.CleanBuild {
		if err := os.RemoveAll(dir); err != nil {
			return "", fmt.Errorf("failed to clean build dir %s: %w", dir, err)
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create build dir %s: %w", dir, err)
	}
	return dir, nil
}

// markConfigured records a successful configure in the build dir manifest.
func markConfigured(buildDir, tool, version string, flags []string, bc *BuildConfig) error {
	return writeState(buildDir, &buildState{
		Name:       tool,
		Version:    version,
		FlagsHash:  hashFlags(flags),
		Target:     bc.Target.Raw,
		Prefix:     bc.Prefix,
		Configured: true,
	})
}

// markCompleted upgrades the build dir manifest after install succeeded.
func markCompleted(buildDir, tool, version string, flags []string, bc *BuildConfig) error {
	return writeState(buildDir, &buildState{
		Name:       tool,
		Version:    version,
		FlagsHash:  hashFlags(flags),
		Target:     bc.Target.Raw,
		Prefix:     bc.Prefix,
		Configured: true,
		Completed:  true,
	})
}
