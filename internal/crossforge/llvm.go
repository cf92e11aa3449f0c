package crossforge

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// llvmTargetFor maps a triple architecture to the LLVM backend name.
func llvmTargetFor(arch string) string {
	switch strings.ToLower(arch) {
	case "x86_64", "i386", "i686":
		return "X86"
	case "aarch64":
		return "AArch64"
	case "arm":
		return "ARM"
	case "riscv32", "riscv64":
		return "RISCV"
	case "mips":
		return "Mips"
	case "powerpc", "powerpc64":
		return "PowerPC"
	}
	return "X86;AArch64;ARM;RISCV"
}

// llvmCMakeArgs assembles the cmake invocation for LLVM/Clang. Subprojects
// and backends are semicolon-joined lists per CMake convention.
func llvmCMakeArgs(bc *BuildConfig, srcDir string) []string {
	buildType := "Release"
	if bc.EnableDebug {
		buildType = "Debug"
	}
	onOff := func(b bool) string {
		if b {
			return "ON"
		}
		return "OFF"
	}
	args := []string{
		filepath.Join(srcDir, "llvm"),
		"-DCMAKE_INSTALL_PREFIX=" + bc.Prefix,
		"-DCMAKE_BUILD_TYPE=" + buildType,
		"-DLLVM_ENABLE_PROJECTS=" + strings.Join(bc.LLVMProjects, ";"),
		"-DLLVM_TARGETS_TO_BUILD=" + llvmTargetFor(bc.Target.Arch),
		"-DLLVM_DEFAULT_TARGET_TRIPLE=" + bc.Target.Raw,
		"-DLLVM_ENABLE_PER_TARGET_RUNTIME_DIR=ON",
		"-DLLVM_ENABLE_ASSERTIONS=" + onOff(bc.EnableAssertions),
		"-DLLVM_ENABLE_LTO=" + onOff(bc.EnableLTO),
		"-DLLVM_INCLUDE_TESTS=OFF",
		"-DLLVM_INCLUDE_EXAMPLES=OFF",
		"-DLLVM_INCLUDE_BENCHMARKS=OFF",
		"-DLLVM_ENABLE_TERMINFO=OFF",
		"-DLLVM_ENABLE_ZLIB=OFF",
		"-DLLVM_ENABLE_ZSTD=OFF",
		"-G", "Ninja",
	}
	return append(args, bc.ExtraFlags...)
}

// buildLLVM fetches, configures, builds and installs LLVM/Clang.
func buildLLVM(ctx context.Context, bc *BuildConfig, run Runner) error {
	stepf("LLVM", "Building LLVM %s (%s)", bc.LLVMVersion, strings.Join(bc.LLVMProjects, ";"))

	srcDir, err := ensureSource(ctx, bc, llvmSource(bc.LLVMVersion))
	if err != nil {
		return stepFailed("llvm", "fetch", err)
	}

	buildDir, err := prepareBuildDir(bc, "llvm")
	if err != nil {
		return stepFailed("llvm", "prepare", err)
	}

	logw, err := openLog(bc, "llvm")
	if err != nil {
		return stepFailed("llvm", "prepare", err)
	}
	defer logw.Close()

	env := buildEnv(bc)
	cmakeArgs := llvmCMakeArgs(bc, srcDir)

	if needsConfigure(buildDir, "build.ninja", cmakeArgs) {
		cmd := exec.Command("cmake", cmakeArgs...)
		cmd.Dir = buildDir
		cmd.Env = env
		if err := runStage(run, logw, "llvm", "configure", cmd); err != nil {
			return err
		}
		if err := markConfigured(buildDir, "llvm", bc.LLVMVersion, cmakeArgs, bc); err != nil {
			return stepFailed("llvm", "configure", err)
		}
	}

	build := exec.Command("ninja", fmt.Sprintf("-j%d", bc.Jobs))
	build.Dir = buildDir
	build.Env = env
	if err := runStage(run, logw, "llvm", "build", build); err != nil {
		return err
	}

	install := exec.Command("ninja", "install")
	install.Dir = buildDir
	install.Env = env
	if err := runStage(run, logw, "llvm", "install", install); err != nil {
		return err
	}

	if err := markCompleted(buildDir, "llvm", bc.LLVMVersion, cmakeArgs, bc); err != nil {
		return stepFailed("llvm", "install", err)
	}
	colSuccess.Printf("LLVM %s installed to %s\n", bc.LLVMVersion, bc.Prefix)
	return nil
}
