package config

// Logging controls the structured logger.
type Logging struct {
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// Telemetry configures the OTLP exporters.
type Telemetry struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	// Headers uses the OTEL_EXPORTER_OTLP_HEADERS format (k=v,k2=v2).
	Headers string `toml:"Headers"`
	Traces  bool   `toml:"Traces"`
	Metrics bool   `toml:"Metrics"`
}

// Auth guards the owner-only HTTP routes.
type Auth struct {
	// AdminSecret is the HS256 key for admin bearer tokens. AdminSecretEnv,
	// when set, names an environment variable that overrides it.
	AdminSecret    string `toml:"AdminSecret"`
	AdminSecretEnv string `toml:"AdminSecretEnv"`
	Issuer         string `toml:"Issuer"`
}

// RateLimit bounds requests per client address.
type RateLimit struct {
	RequestsPerSecond float64 `toml:"RequestsPerSecond"`
	Burst             int     `toml:"Burst"`
}

// Audit configures the event archive. An empty DSN disables it.
type Audit struct {
	DSN string `toml:"DSN"`
}

// Registry holds the registry-wide addresses shared by every sale.
type Registry struct {
	Owner            string `toml:"Owner"`
	ReserveAsset     string `toml:"ReserveAsset"`
	ReserveSymbol    string `toml:"ReserveSymbol"`
	ReserveDecimals  uint8  `toml:"ReserveDecimals"`
	PenaltyCollector string `toml:"PenaltyCollector"`
	StakeAsset       string `toml:"StakeAsset"`
	StakeSymbol      string `toml:"StakeSymbol"`
	StakeDecimals    uint8  `toml:"StakeDecimals"`
}

// Launch holds the protocol limits applied when a sale is created. Fractions
// are decimal strings on the 1e18 scale.
type Launch struct {
	PhaseOneDurationSeconds  int64  `toml:"PhaseOneDurationSeconds"`
	PhaseTwoDurationSeconds  int64  `toml:"PhaseTwoDurationSeconds"`
	MaxUserTimelockSeconds   int64  `toml:"MaxUserTimelockSeconds"`
	MaxIssuerTimelockSeconds int64  `toml:"MaxIssuerTimelockSeconds"`
	MaxIncentivesPercent     string `toml:"MaxIncentivesPercent"`
	MaxWithdrawPenalty       string `toml:"MaxWithdrawPenalty"`
}
