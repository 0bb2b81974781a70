package constants

// Application constants
const (
	// Application metadata
	AppName        = "kanon"
	AppDescription = "k-anonymity generalization and suppression for purchase datasets"
	AppVersion     = "0.1.0"

	// Configuration
	EnvPrefix         = "KANON"
	DefaultConfigName = ".kanon"
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
)

// Canonical column names of the purchase dataset
const (
	ColumnShopName     = "shop_name"
	ColumnDatetime     = "datetime"
	ColumnLongitude    = "longitude"
	ColumnLatitude     = "latitude"
	ColumnCategory     = "category"
	ColumnBrand        = "brand"
	ColumnCardNumber   = "card_number"
	ColumnQuantity     = "quantity"
	ColumnPrice        = "price"
	ColumnDistance     = "distance"
	ColumnDistanceBand = "distance_band"
	ColumnUniqueness   = "uniqueness"
)

// Sentinel values written in place of unusable data
const (
	UnknownValue    = "unknown"
	UnknownCategory = "unknown category"
	MaskToken       = "*"
)

// Generalization defaults
const (
	// Reference point for distance bands.
	ReferenceLatitude  = 59.938784
	ReferenceLongitude = 30.314997
	EarthRadiusKm      = 6371.0

	BINPrefixLength          = 6
	DefaultQuantileBuckets   = 4
	DefaultSuppressPercent   = 0.0
	DefaultBadGroupLimit     = 10
	DefaultBadGroupThreshold = 0
	DefaultWorkers           = 4
	DefaultCSVDelimiter      = ","
	DefaultBINDelimiter      = ";"
	DefaultDatetimeLayout    = "2006-01-02 15:04"
)

// DefaultDistanceThresholdsKm are the upper bounds of the inner distance bands.
var DefaultDistanceThresholdsKm = []float64{5, 15}
