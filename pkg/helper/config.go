package helper

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ConfigDirEnv names an extra directory searched for configuration files
const ConfigDirEnv = "HYDROWATCH_CONFIG_DIR"

const systemConfigDir = "/etc/hydrowatch"

var ErrEmptyConfigName = errors.New("configuration file name is empty")

// ResolveConfigPath locates a configuration file. Absolute names are
// returned unchanged. Relative names are searched in the working directory,
// ./configs, $HYDROWATCH_CONFIG_DIR and /etc/hydrowatch, in that order.
// When no directory holds the file, the path under $HYDROWATCH_CONFIG_DIR
// (or /etc/hydrowatch when unset) is returned so the read error names it.
func ResolveConfigPath(filename string) (string, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return "", ErrEmptyConfigName
	}
	if filepath.IsAbs(filename) {
		return filename, nil
	}

	envDir := strings.TrimSpace(os.Getenv(ConfigDirEnv))
	for _, dir := range searchDirs(envDir) {
		candidate := filepath.Join(dir, filename)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			if abs, err := filepath.Abs(candidate); err == nil {
				return abs, nil
			}
			return candidate, nil
		}
	}

	if envDir != "" {
		return filepath.Join(envDir, filename), nil
	}
	return filepath.Join(systemConfigDir, filename), nil
}

func searchDirs(envDir string) []string {
	var dirs []string
	if wd, err := os.Getwd(); err == nil && wd != "" {
		dirs = append(dirs, wd, filepath.Join(wd, "configs"))
	}
	if envDir != "" {
		dirs = append(dirs, envDir)
	}
	return append(dirs, systemConfigDir)
}
