package conventions

import "path/filepath"

const (
	// DefaultDataDir is the default envrelay data directory name (relative to home).
	DefaultDataDir = ".envrelay"
	// DBFile is the SQLite database filename inside the data directory.
	DBFile = "envrelay.db"
	// CatalogFile is the optional command catalog override filename.
	CatalogFile = "commands.yaml"

	// DefaultListenAddr is the address the HTTP server binds by default.
	DefaultListenAddr = ":8585"
)

// DataDir returns the full data directory path under a home directory.
func DataDir(homeDir string) string {
	return filepath.Join(homeDir, DefaultDataDir)
}

// DBPath returns the full path to the SQLite database file.
func DBPath(homeDir string) string {
	return filepath.Join(DataDir(homeDir), DBFile)
}

// CatalogPath returns the full path to the catalog override file.
func CatalogPath(homeDir string) string {
	return filepath.Join(DataDir(homeDir), CatalogFile)
}
