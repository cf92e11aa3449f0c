package crossforge

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gookit/color"
)

// printHelp prints the commands table
func printHelp() {
	colSuccess.Println("Usage: crossforge <command> [flags]")
	colSuccess.Println("Run 'crossforge <command> -h' for command flags")
	fmt.Println()
	color.Info.Println("Available Commands:")

	type cmdInfo struct {
		Cmd  string
		Args string
		Desc string
	}
	cmds := []cmdInfo{
		{"build, b", "[flags]", "Fetch, build and install the requested toolchain"},
		{"validate", "[flags]", "Validate an installed toolchain (binaries + test compile)"},
		{"package", "[flags]", "Archive the install prefix with a BLAKE3 checksum"},
		{"upload", "<archive>", "Upload a packaged toolchain to the configured mirror"},
		{"log", "[flags] [tool]", "TUI build log viewer, or dump one tool's log"},
		{"workflow", "[flags]", "Generate a GitHub Actions workflow for this build"},
		{"clean", "[flags]", "Remove build directories (optionally sources and cache)"},
		{"version, --version", "", "Version information"},
	}

	maxLen := 0
	for _, c := range cmds {
		length := len(c.Cmd) + len(c.Args)
		if c.Args != "" {
			length++
		}
		if length > maxLen {
			maxLen = length
		}
	}
	columnWidth := maxLen + 4

	for _, c := range cmds {
		var usageString string
		if c.Args != "" {
			usageString = fmt.Sprintf("  %s %s", c.Cmd, c.Args)
		} else {
			usageString = fmt.Sprintf("  %s", c.Cmd)
		}

		fmt.Print("  ")
		color.Bold.Print(c.Cmd)
		if c.Args != "" {
			fmt.Print(" ")
			color.Cyan.Print(c.Args)
		}

		pad := columnWidth - len(usageString)
		if pad < 1 {
			pad = 1
		}
		fmt.Print(strings.Repeat(" ", pad))
		color.Info.Println(c.Desc)
	}
	fmt.Println()
}

func printBanner(bc *BuildConfig) {
	fmt.Println()
	color.Bold.Print("Target:     ")
	color.Green.Println(bc.Target.Raw)
	color.Bold.Print("Toolchain:  ")
	color.Green.Println(strings.Join(bc.Tools, ","))
	libc := "none"
	if bc.Libc != "" {
		libc = bc.Libc + " " + bc.LibcVersion
	}
	color.Bold.Print("C library:  ")
	color.Green.Println(libc)
	color.Bold.Print("Profile:    ")
	color.Green.Println(bc.Profile().String())
	color.Bold.Print("Prefix:     ")
	color.Green.Println(bc.Prefix)
	color.Bold.Print("Jobs:       ")
	color.Green.Println(bc.Jobs)
	fmt.Println()
}

// Main is the CLI entrypoint for crossforge.
func Main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	go func() {
		for {
			select {
			case sig := <-sigs:
				colArrow.Print("\n-> ")
				color.Danger.Printf("Received %v. Cancelling build gracefully\n", sig)
				cancel()
				time.Sleep(100 * time.Millisecond)
				select {
				case <-sigs:
					colArrow.Print("\n-> ")
					color.Danger.Println("Second interrupt received. Forcing immediate exit.")
					os.Exit(130)
				case <-time.After(2 * time.Second):
					colArrow.Print("\n-> ")
					color.Danger.Println("Graceful shutdown timeout. Exiting.")
					os.Exit(130)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	if len(os.Args) < 2 {
		printHelp()
		return
	}

	configPath := ConfigFile
	if p := os.Getenv("CROSSFORGE_CONFIG"); p != "" {
		configPath = p
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		warnf("Failed to read config %s: %v\n", configPath, err)
	}
	initConfig(cfg)

	runner := NewExecutor(ctx)
	os.Exit(run(ctx, cfg, runner, os.Args[1], os.Args[2:]))
}

func run(ctx context.Context, cfg *Config, ex Runner, command string, args []string) int {
	switch command {
	case "build", "b":
		bc, err := parseBuildFlags(args, cfg)
		if err != nil {
			errorf("%v\n", err)
			return 1
		}
		printBanner(bc)

		if err := Dispatch(ctx, bc, ex); err != nil {
			errorf("%v\n", err)
			return exitCodeFor(err)
		}
		if err := finalizeInstall(bc); err != nil {
			errorf("Installation failed: %v\n", err)
			return 1
		}
		if bc.RunTests {
			if err := validateToolchain(ctx, bc, ex); err != nil {
				errorf("Validation failed: %v\n", err)
				return 1
			}
		}
		if bc.MakePackage {
			archive, err := packageToolchain(bc)
			if err != nil {
				errorf("Packaging failed: %v\n", err)
				return 1
			}
			debugf("Archive ready at %s\n", archive)
		}
		if !bc.KeepBuildDir {
			infof("Removing build directory %s\n", bc.BuildRoot)
			if err := os.RemoveAll(bc.BuildRoot); err != nil {
				warnf("Failed to remove build directory: %v\n", err)
			}
		}

		fmt.Println()
		cPrintln(colSuccess, "Build completed successfully!")
		cPrintf(colSuccess, "Toolchain installed at: %s\n", bc.Prefix)
		fmt.Printf("Use it with: source %s\n", filepath.Join(bc.Prefix, "environment"))
		return 0

	case "validate":
		bc, err := parseBuildFlags(args, cfg)
		if err != nil {
			errorf("%v\n", err)
			return 1
		}
		if err := validateToolchain(ctx, bc, ex); err != nil {
			errorf("Validation failed: %v\n", err)
			return 1
		}
		colSuccess.Println("Toolchain validation passed")
		return 0

	case "package":
		bc, err := parseBuildFlags(args, cfg)
		if err != nil {
			errorf("%v\n", err)
			return 1
		}
		if _, err := packageToolchain(bc); err != nil {
			errorf("Packaging failed: %v\n", err)
			return 1
		}
		return 0

	case "upload":
		if len(args) < 1 {
			errorf("Usage: crossforge upload <archive>\n")
			return 1
		}
		if err := uploadArchive(ctx, cfg, args[0]); err != nil {
			errorf("Upload failed: %v\n", err)
			return 1
		}
		return 0

	case "log":
		logCmd := flag.NewFlagSet("log", flag.ExitOnError)
		buildDir := logCmd.String("build-dir", configDefault(cfg, "CROSSFORGE_BUILD_DIR", "./build"), "build directory holding the logs")
		if err := logCmd.Parse(args); err != nil {
			return 1
		}
		logsDir := filepath.Join(*buildDir, "logs")
		if rest := logCmd.Args(); len(rest) >= 1 {
			return dumpLog(filepath.Join(logsDir, rest[0]+".log"))
		}
		return runLogViewer(logsDir)

	case "workflow":
		// Peel off --output; everything else is a regular build flag so
		// the generated workflow matches what a local build would do.
		output := ".github/workflows/build.yml"
		rest := make([]string, 0, len(args))
		for i := 0; i < len(args); i++ {
			if v, ok := strings.CutPrefix(args[i], "--output="); ok {
				output = v
				continue
			}
			if args[i] == "--output" || args[i] == "-output" {
				if i+1 < len(args) {
					i++
					output = args[i]
				}
				continue
			}
			rest = append(rest, args[i])
		}
		bc, err := parseBuildFlags(rest, cfg)
		if err != nil {
			errorf("%v\n", err)
			return 1
		}
		if err := writeWorkflow(bc, output); err != nil {
			errorf("%v\n", err)
			return 1
		}
		return 0

	case "clean":
		cleanCmd := flag.NewFlagSet("clean", flag.ExitOnError)
		buildDir := cleanCmd.String("build-dir", configDefault(cfg, "CROSSFORGE_BUILD_DIR", "./build"), "build directory to remove")
		sourceDir := cleanCmd.String("source-dir", configDefault(cfg, "CROSSFORGE_SOURCE_DIR", "./sources"), "source directory (only with -all)")
		cacheDir := cleanCmd.String("cache-dir", configDefault(cfg, "CROSSFORGE_CACHE_DIR", "./.cache/downloads"), "download cache (only with -all)")
		all := cleanCmd.Bool("all", false, "also remove extracted sources and the download cache")
		if err := cleanCmd.Parse(args); err != nil {
			return 1
		}
		infof("Removing %s\n", *buildDir)
		if err := os.RemoveAll(*buildDir); err != nil {
			errorf("%v\n", err)
			return 1
		}
		if *all {
			infof("Removing %s and %s\n", *sourceDir, *cacheDir)
			if err := os.RemoveAll(*sourceDir); err != nil {
				errorf("%v\n", err)
				return 1
			}
			if err := os.RemoveAll(*cacheDir); err != nil {
				errorf("%v\n", err)
				return 1
			}
		}
		return 0

	case "version", "--version", "-v":
		fmt.Printf("crossforge %s (built %s)\n", version, buildDate)
		return 0

	case "help", "--help", "-h":
		printHelp()
		return 0
	}

	errorf("Unknown command %q\n\n", command)
	printHelp()
	return 1
}

// exitCodeFor propagates the failing upstream command's exit status when
// known, and a generic failure otherwise.
func exitCodeFor(err error) int {
	if se, ok := err.(*StepError); ok && se.ExitCode > 0 {
		return se.ExitCode
	}
	return 1
}

// dumpLog pipes one build log through the pager, falling back to stdout.
func dumpLog(path string) int {
	f, err := os.Open(path)
	if err != nil {
		errorf("No build log at %s\n", path)
		return 1
	}
	defer f.Close()

	pager := os.Getenv("PAGER")
	var pagerArgs []string
	if pager == "" || pager == "less" {
		pager = "less"
		pagerArgs = []string{"-r"}
	}

	cmd := exec.Command(pager, pagerArgs...)
	cmd.Stdin = f
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		f.Seek(0, 0)
		io.Copy(os.Stdout, f)
	}
	return 0
}
