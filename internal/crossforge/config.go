package crossforge

import (
	"bufio"
	"os"
	"strings"
)

// Config holds the key=value pairs from /etc/crossforge.conf merged with
// CROSSFORGE_* environment overrides. Version pins and mirror credentials
// live here; everything per-run belongs to BuildConfig.
type Config struct {
	Values map[string]string
}

// Load /etc/crossforge.conf and apply defaults
func loadConfig(path string) (*Config, error) {
	cfg := &Config{Values: make(map[string]string)}

	// Attempt to read the file
	file, err := os.Open(path)
	if err == nil {
		defer file.Close()
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}
			key := strings.TrimSpace(parts[0])
			val := strings.TrimSpace(parts[1])
			val = strings.Trim(val, `"'`)
			cfg.Values[key] = val
		}
		if err := scanner.Err(); err != nil {
			return cfg, err
		}
	}

	// Merge CROSSFORGE_* env overrides
	mergeEnvOverrides(cfg)

	return cfg, nil
}

// Merge CROSSFORGE_* env overrides
func mergeEnvOverrides(cfg *Config) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "CROSSFORGE_") {
			parts := strings.SplitN(env, "=", 2)
			if len(parts) == 2 {
				cfg.Values[parts[0]] = parts[1]
			}
		}
	}
}

func initConfig(cfg *Config) {
	Debug = cfg.Values["CROSSFORGE_DEBUG"] == "1"
	Verbose = Debug || cfg.Values["CROSSFORGE_VERBOSE"] == "1"

	// Load the GNU mirror URL if it's set in the config
	if mirror, exists := cfg.Values["GNU_MIRROR"]; exists && mirror != "" {
		gnuMirrorURL = strings.TrimRight(mirror, "/")
		debugf("Using GNU mirror from config: %s\n", gnuMirrorURL)
	}

	// mirrors.kernel.org is reliable and globally distributed, making it
	// an excellent default when no mirror was configured.
	if gnuMirrorURL == "" {
		gnuMirrorURL = "https://mirrors.kernel.org/gnu"
		debugf("No GNU mirror configured, using default: %s\n", gnuMirrorURL)
	}
}

// configDefault returns the config value for key, or fallback when unset.
func configDefault(cfg *Config, key, fallback string) string {
	if cfg == nil {
		return fallback
	}
	if v := cfg.Values[key]; v != "" {
		return v
	}
	return fallback
}
