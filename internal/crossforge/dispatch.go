package crossforge

import "context"

// runnerFunc builds one tool end to end (fetch, configure, build, install).
type runnerFunc func(ctx context.Context, bc *BuildConfig, run Runner) error

// toolRunners is the dispatch registry. Tests swap entries for stand-ins.
var toolRunners = map[string]runnerFunc{
	"binutils": buildBinutils,
	"gcc":      buildGCC,
	"llvm":     buildLLVM,
	"rust":     buildRust,
}

// resolveToolOrder returns the known tools in execution order plus any
// unknown identifiers. Requesting gcc pulls binutils in front of it (GCC's
// build needs the target assembler installed first); duplicates collapse to
// their first position.
func resolveToolOrder(requested []string) (ordered []string, unknown []string) {
	seen := make(map[string]bool)
	add := func(tool string) {
		if !seen[tool] {
			seen[tool] = true
			ordered = append(ordered, tool)
		}
	}
	for _, tool := range requested {
		if _, ok := toolRunners[tool]; !ok {
			unknown = append(unknown, tool)
			continue
		}
		if tool == "gcc" {
			add("binutils")
		}
		add(tool)
	}
	return ordered, unknown
}

// Dispatch runs each requested tool in order, strictly sequentially, and
// stops at the first failure. Unknown identifiers get a warning, not an
// abort.
func Dispatch(ctx context.Context, bc *BuildConfig, run Runner) error {
	ordered, unknown := resolveToolOrder(bc.Tools)
	for _, tool := range unknown {
		warnf("Unknown tool %q requested, skipping\n", tool)
	}
	for _, tool := range ordered {
		if err := toolRunners[tool](ctx, bc, run); err != nil {
			return err
		}
	}
	return nil
}
