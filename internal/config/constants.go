package config

// Default paths for databases
const (
	// DefaultDatabasePath is the default path for the catalog database image
	DefaultDatabasePath = "./data/library.db"
)
