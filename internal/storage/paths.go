// Package storage persists engine settings, tuning sets and the history of
// loaded networks.
package storage

import (
	"os"
	"path/filepath"
	"runtime"
)

const (
	appName = "xqeval"

	// EnvHome replaces the platform data directory when set.
	EnvHome = "XQEVAL_HOME"

	// EnvNetworkPath lists extra network directories, separated like PATH.
	EnvNetworkPath = "XQEVAL_NETWORK_PATH"

	networkDirName  = "networks"
	databaseDirName = "settings.db"
)

// DataDir returns the application data directory, creating it if needed:
// $XQEVAL_HOME if set, otherwise
// - macOS: ~/Library/Application Support/xqeval/
// - Windows: %APPDATA%/xqeval/
// - others: $XDG_DATA_HOME/xqeval/ or ~/.local/share/xqeval/
func DataDir() (string, error) {
	if home := os.Getenv(EnvHome); home != "" {
		return ensureDir(home)
	}
	base, err := platformDataHome()
	if err != nil {
		return "", err
	}
	return ensureDir(filepath.Join(base, appName))
}

func platformDataHome() (string, error) {
	home, err := os.UserHomeDir()

	switch runtime.GOOS {
	case "darwin":
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return appData, nil
		}
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "AppData", "Roaming"), nil
	}

	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return xdg, nil
	}
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share"), nil
}

// NetworkDirs returns the extra directories searched for network files:
// every entry of $XQEVAL_NETWORK_PATH in order, then the networks
// directory under DataDir. Entries found before an error are returned.
func NetworkDirs() ([]string, error) {
	var dirs []string
	for _, dir := range filepath.SplitList(os.Getenv(EnvNetworkPath)) {
		if dir != "" {
			dirs = append(dirs, dir)
		}
	}

	data, err := DataDir()
	if err != nil {
		return dirs, err
	}
	dir, err := ensureDir(filepath.Join(data, networkDirName))
	if err != nil {
		return dirs, err
	}
	return append(dirs, dir), nil
}

// DatabaseDir returns the directory of the settings database.
func DatabaseDir() (string, error) {
	data, err := DataDir()
	if err != nil {
		return "", err
	}
	return ensureDir(filepath.Join(data, databaseDirName))
}

func ensureDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}
