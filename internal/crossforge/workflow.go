package crossforge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// workflowTemplate renders a GitHub Actions workflow that rebuilds the
// configured toolchain in CI and uploads the packaged result.
const workflowTemplate = `name: Build cross toolchain

on:
  workflow_dispatch:
    inputs:
      toolchain:
        description: 'Tools to build (comma separated)'
        required: true
        default: '{{.Toolchain}}'
        type: string
      target:
        description: 'Target triple'
        required: true
        default: '{{.Target}}'
        type: string

jobs:
  build:
    runs-on: ubuntu-22.04
    steps:
    - uses: actions/checkout@v4

    - name: Install build dependencies
      run: |
        sudo apt-get update
        sudo apt-get install -y \
          build-essential bison flex texinfo \
          libgmp-dev libmpfr-dev libmpc-dev libisl-dev \
          ninja-build cmake git wget xz-utils

    - name: Build toolchain
      run: |
        ./crossforge build \
          --toolchain ${{"{{"}} github.event.inputs.toolchain {{"}}"}} \
          --target ${{"{{"}} github.event.inputs.target {{"}}"}} \
          --prefix ./install \
          --jobs $(nproc) \
          --clean-build \
          --run-tests \
          --package

    - uses: actions/upload-artifact@v4
      with:
        name: ${{"{{"}} github.event.inputs.toolchain {{"}}"}}-${{"{{"}} github.event.inputs.target {{"}}"}}
        path: |
          ./build/*.tar.*
          ./build/*.b3
        retention-days: 7
`

type workflowParams struct {
	Toolchain string
	Target    string
}

// writeWorkflow renders the CI workflow for bc into path.
func writeWorkflow(bc *BuildConfig, path string) error {
	tmpl, err := template.New("workflow").Parse(workflowTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse workflow template: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	params := workflowParams{
		Toolchain: strings.Join(bc.Tools, ","),
		Target:    bc.Target.Raw,
	}
	if err := tmpl.Execute(f, params); err != nil {
		return fmt.Errorf("failed to render workflow: %w", err)
	}
	colSuccess.Printf("Workflow written to %s\n", path)
	return nil
}
