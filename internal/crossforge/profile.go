package crossforge

// buildProfile selects which of the mutually exclusive GCC configure sets a
// run gets. The three profiles never mix: a freestanding first-stage cross
// compiler must not see sysroot flags, and a native build must not disable
// shared libraries.
type buildProfile int

const (
	// profileFreestanding: no C library, kernel/bare-metal first stage.
	profileFreestanding buildProfile = iota
	// profileHosted: cross compiler against a sysroot'd C library.
	profileHosted
	// profileNative: compiler for the build machine itself.
	profileNative
)

func (p buildProfile) String() string {
	switch p {
	case profileFreestanding:
		return "freestanding"
	case profileHosted:
		return "hosted"
	case profileNative:
		return "native"
	}
	return "unknown"
}

// Profile derives the build profile from the resolved configuration.
func (bc *BuildConfig) Profile() buildProfile {
	if bc.IsNative() {
		return profileNative
	}
	if bc.Libc != "" {
		return profileHosted
	}
	return profileFreestanding
}

// gccProfileFlags returns the fixed flag subset for the profile. Kept as
// data so the sets stay disjoint and testable.
func gccProfileFlags(p buildProfile, bc *BuildConfig) []string {
	switch p {
	case profileFreestanding:
		return []string{
			"--without-headers",
			"--disable-shared",
			"--disable-libssp",
			"--disable-libstdcxx-pch",
			"--disable-libgomp",
			"--disable-libmudflap",
		}
	case profileHosted:
		args := []string{
			"--disable-libssp",
			"--disable-libstdcxx-pch",
		}
		if bc.Sysroot != "" {
			args = append(args, "--with-sysroot="+bc.Sysroot)
		}
		if bc.Libc == "newlib" {
			args = append(args, "--with-newlib")
		}
		return args
	case profileNative:
		return []string{
			"--enable-shared",
			"--enable-threads=posix",
			"--enable-__cxa_atexit",
		}
	}
	return nil
}
