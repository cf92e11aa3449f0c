package crossforge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crossforge.conf")
	content := `# toolchain defaults
CROSSFORGE_TARGET=riscv64-elf
CROSSFORGE_GCC_VERSION = "14.1.0"
GNU_MIRROR='https://mirror.example.org/gnu'

malformed line without equals
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "riscv64-elf", cfg.Values["CROSSFORGE_TARGET"])
	assert.Equal(t, "14.1.0", cfg.Values["CROSSFORGE_GCC_VERSION"], "quotes and spaces are trimmed")
	assert.Equal(t, "https://mirror.example.org/gnu", cfg.Values["GNU_MIRROR"])
	assert.NotContains(t, cfg.Values, "malformed line without equals")
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "nope.conf"))
	require.NoError(t, err, "a missing config file is not an error")
	assert.NotNil(t, cfg.Values)
}

func TestEnvOverridesConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crossforge.conf")
	require.NoError(t, os.WriteFile(path, []byte("CROSSFORGE_TARGET=x86_64-elf\n"), 0o644))

	t.Setenv("CROSSFORGE_TARGET", "arm-none-eabi")
	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "arm-none-eabi", cfg.Values["CROSSFORGE_TARGET"])
}

func TestInitConfigMirror(t *testing.T) {
	saved := gnuMirrorURL
	defer func() { gnuMirrorURL = saved }()

	gnuMirrorURL = ""
	initConfig(&Config{Values: map[string]string{}})
	assert.Equal(t, "https://mirrors.kernel.org/gnu", gnuMirrorURL)

	gnuMirrorURL = ""
	initConfig(&Config{Values: map[string]string{"GNU_MIRROR": "https://mirror.example.org/gnu/"}})
	assert.Equal(t, "https://mirror.example.org/gnu", gnuMirrorURL, "trailing slash is trimmed")
}

func TestConfigDefault(t *testing.T) {
	cfg := &Config{Values: map[string]string{"CROSSFORGE_JOBS": "8"}}
	assert.Equal(t, "8", configDefault(cfg, "CROSSFORGE_JOBS", "4"))
	assert.Equal(t, "4", configDefault(cfg, "CROSSFORGE_MISSING", "4"))
	assert.Equal(t, "4", configDefault(nil, "CROSSFORGE_JOBS", "4"))
}
