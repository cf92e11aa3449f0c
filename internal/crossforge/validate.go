package crossforge

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const validateTestProgram = `#include <stdio.h>
int main(void) {
    printf("hello from the new toolchain\n");
    return 0;
}
`

// A bare-metal target has no hosted printf; compile to an object instead of
// linking a full executable.
const validateBareProgram = `int start(void) { return 42; }
`

// expectedBinaries lists what must exist under prefix/bin after a build.
func expectedBinaries(bc *BuildConfig) []string {
	var bins []string
	for _, tool := range bc.Tools {
		switch tool {
		case "gcc", "binutils":
			t := bc.Target.Raw
			bins = append(bins, t+"-ld", t+"-as", t+"-ar", t+"-objcopy")
			if tool == "gcc" {
				bins = append(bins, t+"-gcc")
			}
		case "llvm":
			bins = append(bins, "clang", "clang++", "lld", "llvm-ar")
		case "rust":
			bins = append(bins, "rustc", "cargo")
		}
	}
	return bins
}

// validateToolchain checks that the expected binaries were installed and
// that the compiler can actually compile something.
func validateToolchain(ctx context.Context, bc *BuildConfig, run Runner) error {
	stepf("VALIDATE", "Validating toolchain in %s", bc.Prefix)

	binDir := filepath.Join(bc.Prefix, "bin")
	var missing []string
	for _, name := range expectedBinaries(bc) {
		if _, err := os.Stat(filepath.Join(binDir, name)); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing binaries in %s: %s", binDir, strings.Join(missing, ", "))
	}
	infof("All expected binaries found in %s\n", binDir)

	compiler := ""
	for _, tool := range bc.Tools {
		switch tool {
		case "gcc":
			compiler = filepath.Join(binDir, bc.Target.Raw+"-gcc")
		case "llvm":
			compiler = filepath.Join(binDir, "clang")
		}
	}
	if compiler == "" {
		return nil
	}

	testDir := filepath.Join(bc.BuildRoot, "validate")
	if err := os.MkdirAll(testDir, 0o755); err != nil {
		return err
	}

	src := filepath.Join(testDir, "test.c")
	var cmd *exec.Cmd
	if bc.Target.IsBareMetal() && bc.Libc == "" {
		if err := os.WriteFile(src, []byte(validateBareProgram), 0o644); err != nil {
			return err
		}
		cmd = exec.Command(compiler, "-c", src, "-o", filepath.Join(testDir, "test.o"))
	} else {
		if err := os.WriteFile(src, []byte(validateTestProgram), 0o644); err != nil {
			return err
		}
		cmd = exec.Command(compiler, src, "-o", filepath.Join(testDir, "test.elf"))
	}
	cmd.Dir = testDir

	if err := run.Run(cmd); err != nil {
		return fmt.Errorf("test compilation failed: %w", err)
	}
	infof("Test compilation successful\n")
	return nil
}
