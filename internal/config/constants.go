package config

// Defaults for data locations and the remote catalog endpoints
const (
	// DefaultDataHome is the base directory for databases and the cache tree
	DefaultDataHome = "./data"

	// DefaultBaseURL is the DaFont site root used for listing and detail pages
	DefaultBaseURL = "https://www.dafont.com"

	// DefaultDownloadURL is the archive download endpoint prefix
	DefaultDownloadURL = "https://dl.dafont.com/dl/"

	// DefaultCatalogDBURL is the authoritative remote copy of the catalog database
	DefaultCatalogDBURL = "https://raw.githubusercontent.com/IamHisekin/dafont-dl/main/src/db-sync/fontes.db"

	// DefaultPreviewText is rendered when the caller supplies no sample text
	DefaultPreviewText = "The quick brown fox"
)
