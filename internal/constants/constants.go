package constants

// DefaultAPIBaseURL is the base URL of the vgmdb.info JSON mirror.
const DefaultAPIBaseURL = "https://vgmdb.info"

// DefaultSiteBaseURL is the base URL of the VGMdb website (login, collection, HTML search).
const DefaultSiteBaseURL = "https://vgmdb.net"

// DefaultUserAgent is sent with every request unless overridden.
const DefaultUserAgent = "vgmdb-go/0.1"

// SourceName identifies records produced by this package.
const SourceName = "VGMdb"

// ExternalIDPrefix namespaces album ids handed to the host library.
const ExternalIDPrefix = "vgmdb-"

// Endpoint paths.
const (
	SearchAlbumsPath   = "/search/albums/"
	AlbumPath          = "/album/"
	SiteSearchPath     = "/search"
	LoginPath          = "/forums/login.php"
	CollectionPath     = "/db/collection.php"
	SessionCookieName  = "vgmpassword"
	DefaultMaxResults  = 10
	DefaultRequestRate = 1.0 // requests per second
)
