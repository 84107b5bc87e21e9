package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"

	"github.com/voltfinance/voltage-launchpad/native/launch"
)

const (
	// EnvEnvironment overrides Config.Environment.
	EnvEnvironment = "LAUNCHPAD_ENV"
	// DefaultAdminSecretEnv is consulted for the admin secret when the file
	// does not name another variable.
	DefaultAdminSecretEnv = "LAUNCHPAD_ADMIN_SECRET"
)

type Config struct {
	ListenAddress string    `toml:"ListenAddress"`
	DataDir       string    `toml:"DataDir"`
	Backend       string    `toml:"Backend"`
	Environment   string    `toml:"Environment"`
	Logging       Logging   `toml:"logging"`
	Telemetry     Telemetry `toml:"telemetry"`
	Auth          Auth      `toml:"auth"`
	RateLimit     RateLimit `toml:"rate_limit"`
	Audit         Audit     `toml:"audit"`
	Registry      Registry  `toml:"registry"`
	Launch        Launch    `toml:"launch"`
}

// Default returns the configuration written for a fresh install.
func Default() *Config {
	params := launch.DefaultParams()
	return &Config{
		ListenAddress: ":8090",
		DataDir:       "./launchpad-data",
		Backend:       "leveldb",
		Environment:   "local",
		Logging:       Logging{Level: "info", MaxSizeMB: 100, MaxBackups: 5, MaxAgeDays: 28},
		Telemetry:     Telemetry{Endpoint: "localhost:4318", Insecure: true},
		Auth:          Auth{AdminSecretEnv: DefaultAdminSecretEnv, Issuer: "launchpad"},
		RateLimit:     RateLimit{RequestsPerSecond: 20, Burst: 40},
		Audit:         Audit{DSN: "launchpad-audit.db"},
		Registry: Registry{
			ReserveSymbol:   "WVOLT",
			ReserveDecimals: 18,
			StakeSymbol:     "VOLT",
			StakeDecimals:   18,
		},
		Launch: Launch{
			PhaseOneDurationSeconds:  params.PhaseOneDuration,
			PhaseTwoDurationSeconds:  params.PhaseTwoDuration,
			MaxUserTimelockSeconds:   params.MaxUserTimelock,
			MaxIssuerTimelockSeconds: params.MaxIssuerTimelock,
			MaxIncentivesPercent:     params.MaxIncentivesPercent.String(),
			MaxWithdrawPenalty:       params.MaxWithdrawPenalty.String(),
		},
	}
}

// Load loads the configuration from the given path, writing the defaults
// there first when the file does not exist.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	} else if err != nil {
		return nil, err
	}

	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown key %s", path, undecoded[0].String())
	}
	cfg.applyEnv()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if env := strings.TrimSpace(os.Getenv(EnvEnvironment)); env != "" {
		c.Environment = env
	}
	name := strings.TrimSpace(c.Auth.AdminSecretEnv)
	if name == "" {
		name = DefaultAdminSecretEnv
	}
	if secret := os.Getenv(name); secret != "" {
		c.Auth.AdminSecret = secret
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// LaunchParams parses the protocol limits into runtime values.
func (c *Config) LaunchParams() (launch.Params, error) {
	params := launch.Params{
		PhaseOneDuration:  c.Launch.PhaseOneDurationSeconds,
		PhaseTwoDuration:  c.Launch.PhaseTwoDurationSeconds,
		MaxUserTimelock:   c.Launch.MaxUserTimelockSeconds,
		MaxIssuerTimelock: c.Launch.MaxIssuerTimelockSeconds,
	}
	var err error
	if params.MaxIncentivesPercent, err = parseUintAmount(c.Launch.MaxIncentivesPercent); err != nil {
		return params, fmt.Errorf("invalid launch.MaxIncentivesPercent: %w", err)
	}
	if params.MaxWithdrawPenalty, err = parseUintAmount(c.Launch.MaxWithdrawPenalty); err != nil {
		return params, fmt.Errorf("invalid launch.MaxWithdrawPenalty: %w", err)
	}
	return params, params.Validate()
}

// RegistryAddresses holds the parsed registry section.
type RegistryAddresses struct {
	Owner            common.Address
	ReserveAsset     common.Address
	PenaltyCollector common.Address
	StakeAsset       common.Address
}

// Addresses parses the registry section. Empty fields stay zero.
func (c *Config) Addresses() (RegistryAddresses, error) {
	var out RegistryAddresses
	fields := []struct {
		name string
		raw  string
		dst  *common.Address
	}{
		{"Owner", c.Registry.Owner, &out.Owner},
		{"ReserveAsset", c.Registry.ReserveAsset, &out.ReserveAsset},
		{"PenaltyCollector", c.Registry.PenaltyCollector, &out.PenaltyCollector},
		{"StakeAsset", c.Registry.StakeAsset, &out.StakeAsset},
	}
	for _, f := range fields {
		raw := strings.TrimSpace(f.raw)
		if raw == "" {
			continue
		}
		if !common.IsHexAddress(raw) {
			return out, fmt.Errorf("registry.%s: %q is not a hex address", f.name, raw)
		}
		*f.dst = common.HexToAddress(raw)
	}
	return out, nil
}

func parseUintAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("value required")
	}
	v, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("%q is not a non-negative integer", raw)
	}
	return v, nil
}
