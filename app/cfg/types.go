package cfg

type Cfg struct {
	// Database configuration
	DBPath string

	// HTTP configuration
	Host          string
	Port          string
	BaseUrl       string
	PublicDir     string
	MaxImportSize int64

	// Import configuration
	OnConflict      string
	ImportBatchSize int
	SeedFile        string

	// Feed configuration
	FeedItems int

	// Application metadata
	LogFormat string
	Debug     bool
	Version   string
}
