package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"ticketredemption/internal/ledger"
	"ticketredemption/internal/pool"
	"ticketredemption/internal/rarity"
	"ticketredemption/internal/signer"
)

const (
	// AppName is the binary name.
	AppName = "redeemd"

	// EnvPrefix is the environment variable prefix. Example: REDEEMD_HOME,
	// REDEEMD_ABCI_ADDR.
	EnvPrefix = "REDEEMD"

	configFileName = "redeemd.yaml"
)

// Viper keys.
const (
	KeyHome             = "home"
	KeyABCIAddr         = "abci.addr"
	KeyABCITransport    = "abci.transport"
	KeyLogLevel         = "log_level"
	KeyLogFormat        = "log_format"
	KeyContract         = "contract"
	KeyBurnSink         = "burn_sink"
	KeyAdmin            = "admin"
	KeyTicketVerifier   = "ticket_verifier"
	KeyRandomnessSigner = "randomness_signer"
	KeyRandomnessKey    = "randomness_key"
	KeyRarityFile       = "rarity_file"
	KeyAuditDB          = "audit_db"
	KeyMaxQuantity      = "max_quantity"
	KeyDBBackend        = "db_backend"
)

type ABCIConfig struct {
	Addr      string `mapstructure:"addr"`
	Transport string `mapstructure:"transport"`
}

// Config is the daemon configuration. Addresses are 0x hex; empty means
// unset. Relative paths resolve against Home.
type Config struct {
	Home      string     `mapstructure:"home"`
	ABCI      ABCIConfig `mapstructure:"abci"`
	LogLevel  string     `mapstructure:"log_level"`
	LogFormat string     `mapstructure:"log_format"`

	Contract         string `mapstructure:"contract"`
	BurnSink         string `mapstructure:"burn_sink"`
	Admin            string `mapstructure:"admin"`
	TicketVerifier   string `mapstructure:"ticket_verifier"`
	RandomnessSigner string `mapstructure:"randomness_signer"`

	// RandomnessKey is a hex secp256k1 key for the local randomness oracle.
	// Development only.
	RandomnessKey string `mapstructure:"randomness_key"`

	RarityFile  string `mapstructure:"rarity_file"`
	AuditDB     string `mapstructure:"audit_db"`
	MaxQuantity uint64 `mapstructure:"max_quantity"`
	DBBackend   string `mapstructure:"db_backend"`
}

// DefaultHome is ~/.redeemd, or .redeemd when the user home is unknown.
func DefaultHome() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return "." + AppName
	}
	return filepath.Join(dir, "."+AppName)
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyHome, DefaultHome())
	v.SetDefault(KeyABCIAddr, "tcp://127.0.0.1:26658")
	v.SetDefault(KeyABCITransport, "socket")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "plain")
	v.SetDefault(KeyContract, "")
	v.SetDefault(KeyBurnSink, ledger.DefaultBurnSink.Hex())
	v.SetDefault(KeyAdmin, "")
	v.SetDefault(KeyTicketVerifier, "")
	v.SetDefault(KeyRandomnessSigner, "")
	v.SetDefault(KeyRandomnessKey, "")
	v.SetDefault(KeyRarityFile, filepath.Join("config", "rarity.yaml"))
	v.SetDefault(KeyAuditDB, filepath.Join("data", "audit.db"))
	v.SetDefault(KeyMaxQuantity, ledger.DefaultMaxQuantity)
	v.SetDefault(KeyDBBackend, "goleveldb")
}

// NewViper returns a viper instance with defaults and REDEEMD_ env binding.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// File is <home>/config/redeemd.yaml.
func File(home string) string {
	return filepath.Join(home, "config", configFileName)
}

// Load reads the config file under the configured home, if present, and
// decodes the merged settings.
func Load(v *viper.Viper) (Config, error) {
	v.SetConfigFile(File(v.GetString(KeyHome)))
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.Home) == "" {
		errs = append(errs, "home must be set")
	}
	if c.ABCI.Addr == "" {
		errs = append(errs, "abci.addr must be set")
	}
	switch c.ABCI.Transport {
	case "socket", "grpc":
	default:
		errs = append(errs, "abci.transport must be one of: socket, grpc")
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil || c.LogLevel == "" {
		errs = append(errs, "log_level must be one of: trace, debug, info, warn, error")
	}
	switch c.LogFormat {
	case "plain", "json":
	default:
		errs = append(errs, "log_format must be one of: plain, json")
	}

	for _, f := range []struct {
		key, val string
		required bool
	}{
		{KeyContract, c.Contract, true},
		{KeyBurnSink, c.BurnSink, true},
		{KeyAdmin, c.Admin, false},
		{KeyTicketVerifier, c.TicketVerifier, false},
		{KeyRandomnessSigner, c.RandomnessSigner, false},
	} {
		switch {
		case f.val == "" && f.required:
			errs = append(errs, f.key+" must be set")
		case f.val != "" && !common.IsHexAddress(f.val):
			errs = append(errs, fmt.Sprintf("%s %q is not a hex address", f.key, f.val))
		}
	}

	if c.RandomnessKey != "" {
		k, err := signer.KeyFromHex(c.RandomnessKey)
		switch {
		case err != nil:
			errs = append(errs, "randomness_key is not a valid secp256k1 key")
		case c.RandomnessSigner != "" && common.IsHexAddress(c.RandomnessSigner) &&
			k.Address() != common.HexToAddress(c.RandomnessSigner):
			errs = append(errs, "randomness_key does not belong to randomness_signer")
		}
	}

	if c.MaxQuantity == 0 {
		errs = append(errs, "max_quantity must be >= 1")
	}
	switch c.DBBackend {
	case "goleveldb", "memdb":
	default:
		errs = append(errs, "db_backend must be one of: goleveldb, memdb")
	}

	if len(errs) > 0 {
		return errors.New("config invalid:\n - " + strings.Join(errs, "\n - "))
	}
	return nil
}

// Path resolves p against Home. Empty stays empty.
func (c Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Home, p)
}

func address(s string) common.Address {
	if s == "" {
		return common.Address{}
	}
	return common.HexToAddress(s)
}

// Genesis builds the params InitChain stores: configured addresses plus the
// rarity tables and pool weights from RarityFile (defaults if absent).
func (c Config) Genesis() (ledger.Params, error) {
	table, err := rarity.Load(c.Path(c.RarityFile))
	if err != nil {
		return ledger.Params{}, err
	}
	weights, err := pool.Load(c.Path(c.RarityFile))
	if err != nil {
		return ledger.Params{}, err
	}
	p := ledger.DefaultParams()
	p.Admin = address(c.Admin)
	p.Contract = address(c.Contract)
	p.BurnSink = address(c.BurnSink)
	p.TicketVerifier = address(c.TicketVerifier)
	p.RandomnessSigner = address(c.RandomnessSigner)
	p.MaxQuantity = c.MaxQuantity
	p.RarityTable = table
	p.PoolWeights = weights
	if err := p.Validate(); err != nil {
		return ledger.Params{}, err
	}
	return p, nil
}

// Oracle returns the local randomness oracle, or nil if no key is set.
func (c Config) Oracle() (*signer.Oracle, error) {
	if c.RandomnessKey == "" {
		return nil, nil
	}
	k, err := signer.KeyFromHex(c.RandomnessKey)
	if err != nil {
		return nil, fmt.Errorf("randomness_key: %w", err)
	}
	return signer.NewOracle(k), nil
}
