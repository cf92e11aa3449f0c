package crossforge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// finalizeInstall writes the VERSION.txt summary and the sourceable
// environment script into the prefix after the upstream install targets ran.
func finalizeInstall(bc *BuildConfig) error {
	if err := os.MkdirAll(bc.Prefix, 0o755); err != nil {
		return fmt.Errorf("failed to create prefix %s: %w", bc.Prefix, err)
	}
	if err := writeVersionFile(bc); err != nil {
		return err
	}
	return writeEnvScript(bc)
}

func writeVersionFile(bc *BuildConfig) error {
	libc := "none"
	if bc.Libc != "" {
		libc = fmt.Sprintf("%s %s", bc.Libc, bc.LibcVersion)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Toolchain: %s\n", strings.Join(bc.Tools, ","))
	fmt.Fprintf(&b, "Target: %s\n", bc.Target.Raw)
	fmt.Fprintf(&b, "Build date: %s\n\n", time.Now().Format(time.RFC1123))
	fmt.Fprintf(&b, "Versions:\n")
	fmt.Fprintf(&b, "  - GCC: %s\n", bc.GCCVersion)
	fmt.Fprintf(&b, "  - Binutils: %s\n", bc.BinutilsVersion)
	fmt.Fprintf(&b, "  - LLVM: %s\n", bc.LLVMVersion)
	fmt.Fprintf(&b, "  - Rust: %s\n", bc.RustVersion)
	fmt.Fprintf(&b, "  - C library: %s\n\n", libc)
	fmt.Fprintf(&b, "Configuration:\n")
	fmt.Fprintf(&b, "  - Prefix: %s\n", bc.Prefix)
	fmt.Fprintf(&b, "  - Profile: %s\n", bc.Profile())
	fmt.Fprintf(&b, "  - Languages: %s\n", strings.Join(bc.Languages, ", "))
	fmt.Fprintf(&b, "  - Optimization: -O%s\n", bc.Optimize)
	fmt.Fprintf(&b, "  - LTO: %v\n\n", bc.EnableLTO)
	fmt.Fprintf(&b, "Use 'source %s' to set up the environment.\n", filepath.Join(bc.Prefix, "environment"))

	path := filepath.Join(bc.Prefix, "VERSION.txt")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	infof("Version file created: %s\n", path)
	return nil
}

func writeEnvScript(bc *BuildConfig) error {
	script := fmt.Sprintf(`#!/bin/sh
# Toolchain environment setup for %[1]s

export TOOLCHAIN_PREFIX="%[2]s"
export TOOLCHAIN_TARGET="%[1]s"
export PATH="${TOOLCHAIN_PREFIX}/bin:${PATH}"

export CC="${TOOLCHAIN_TARGET}-gcc"
export CXX="${TOOLCHAIN_TARGET}-g++"
export AR="${TOOLCHAIN_TARGET}-ar"
export AS="${TOOLCHAIN_TARGET}-as"
export LD="${TOOLCHAIN_TARGET}-ld"
export STRIP="${TOOLCHAIN_TARGET}-strip"
export OBJCOPY="${TOOLCHAIN_TARGET}-objcopy"
export OBJDUMP="${TOOLCHAIN_TARGET}-objdump"
export RANLIB="${TOOLCHAIN_TARGET}-ranlib"

if [ -f "${TOOLCHAIN_PREFIX}/bin/clang" ]; then
    export CLANG_CC="${TOOLCHAIN_PREFIX}/bin/clang"
    export CLANG_CXX="${TOOLCHAIN_PREFIX}/bin/clang++"
fi

if [ -d "${TOOLCHAIN_PREFIX}/${TOOLCHAIN_TARGET}/sysroot" ]; then
    export SYSROOT="${TOOLCHAIN_PREFIX}/${TOOLCHAIN_TARGET}/sysroot"
    export CFLAGS="${CFLAGS} --sysroot=${SYSROOT}"
    export LDFLAGS="${LDFLAGS} --sysroot=${SYSROOT}"
fi

echo "Toolchain environment set for ${TOOLCHAIN_TARGET}"
`, bc.Target.Raw, bc.Prefix)

	path := filepath.Join(bc.Prefix, "environment")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	infof("Environment script created: %s\n", path)
	return nil
}

// packageName derives the archive base name from the leading tool.
func packageName(bc *BuildConfig) string {
	tool := "toolchain"
	ver := ""
	for _, t := range bc.Tools {
		switch t {
		case "gcc":
			tool, ver = "gcc", bc.GCCVersion
		case "llvm":
			tool, ver = "llvm", bc.LLVMVersion
		case "rust":
			tool, ver = "rust", bc.RustVersion
		case "binutils":
			if ver == "" {
				tool, ver = "binutils", bc.BinutilsVersion
			}
		}
	}
	if ver == "" {
		return fmt.Sprintf("%s-%s", tool, bc.Target.Raw)
	}
	return fmt.Sprintf("%s-%s-%s", tool, bc.Target.Raw, ver)
}

// packageToolchain archives the install prefix into the build root and
// writes a BLAKE3 checksum next to it. Returns the archive path.
func packageToolchain(bc *BuildConfig) (string, error) {
	stepf("PACKAGE", "Creating distributable archive")

	name := packageName(bc)
	outPath := filepath.Join(bc.BuildRoot, fmt.Sprintf("%s.tar.%s", name, bc.PackageFormat))

	if err := os.MkdirAll(bc.BuildRoot, 0o755); err != nil {
		return "", err
	}
	if err := createArchive(bc.Prefix, outPath, name, bc.PackageFormat); err != nil {
		return "", fmt.Errorf("failed to create package archive: %w", err)
	}

	sum, err := hashFile(outPath)
	if err != nil {
		return "", fmt.Errorf("failed to checksum package: %w", err)
	}
	sumPath := outPath + ".b3"
	if err := os.WriteFile(sumPath, []byte(fmt.Sprintf("%s  %s\n", sum, filepath.Base(outPath))), 0o644); err != nil {
		return "", err
	}

	colSuccess.Printf("Package created: %s\n", outPath)
	colSuccess.Printf("Checksum: %s\n", sumPath)
	return outPath, nil
}
