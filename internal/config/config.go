package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	DB     DBConfig     `mapstructure:"db"`
	Cron   CronConfig   `mapstructure:"cron"`

	Cycle      CycleConfig      `mapstructure:"cycle"`
	Wager      WagerConfig      `mapstructure:"wager"`
	Weather    WeatherConfig    `mapstructure:"weather"`
	Consensus  ConsensusConfig  `mapstructure:"consensus"`
	Resolution ResolutionConfig `mapstructure:"resolution"`
	Settlement SettlementConfig `mapstructure:"settlement"`
	Locations  []LocationConfig `mapstructure:"locations"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	CycleTick string `mapstructure:"cycle_tick"`
}

// CycleConfig drives the cycle lifecycle controller. Block counters are
// logical ticks, not chain blocks; the entropy endpoint supplies the
// unpredictable seed used for location selection at the reveal block.
type CycleConfig struct {
	BlocksPerCycle  int64         `mapstructure:"blocks_per_cycle"`
	RevealBlock     int64         `mapstructure:"reveal_block"`
	BettingBlocks   int64         `mapstructure:"betting_blocks"`
	EntropyEndpoint string        `mapstructure:"entropy_endpoint"`
	EntropyTimeout  time.Duration `mapstructure:"entropy_timeout"`
}

type WagerConfig struct {
	MaxStake float64 `mapstructure:"max_stake"`
}

type WeatherConfig struct {
	Sources []WeatherSource `mapstructure:"sources"`

	FetchTimeout   time.Duration `mapstructure:"fetch_timeout"`
	AttemptBackoff time.Duration `mapstructure:"attempt_backoff"`
}

type WeatherSource struct {
	Name      string `mapstructure:"name"`
	Kind      string `mapstructure:"kind"`
	Endpoint  string `mapstructure:"endpoint"`
	APIKeyEnv string `mapstructure:"api_key_env"`
}

// ConsensusConfig weights combine the four governance signals
// (bull / bear / technical / sentiment) into one composite score.
// The weights must sum to 1.0; Validate rejects anything else.
type ConsensusConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`

	BullWeight      float64 `mapstructure:"bull_weight"`
	BearWeight      float64 `mapstructure:"bear_weight"`
	TechnicalWeight float64 `mapstructure:"technical_weight"`
	SentimentWeight float64 `mapstructure:"sentiment_weight"`

	// Fallbacks applied when the governance source is down or a signal
	// arrives without its own confidence.
	NeutralScore      float64 `mapstructure:"neutral_score"`
	NeutralConfidence float64 `mapstructure:"neutral_confidence"`
	DefaultConfidence float64 `mapstructure:"default_confidence"`
	DerivedConfidence float64 `mapstructure:"derived_confidence"`
}

type ResolutionConfig struct {
	// Confidence assigned to a real weather measurement.
	WeatherConfidence float64 `mapstructure:"weather_confidence"`
}

type SettlementConfig struct {
	HouseTake float64 `mapstructure:"house_take"`
}

type LocationConfig struct {
	ID               string  `mapstructure:"id"`
	Name             string  `mapstructure:"name"`
	Country          string  `mapstructure:"country"`
	Latitude         float64 `mapstructure:"latitude"`
	Longitude        float64 `mapstructure:"longitude"`
	PopulationWeight float64 `mapstructure:"population_weight"`
	Timezone         string  `mapstructure:"timezone"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.cycle_tick", "@every 30s")

	v.SetDefault("cycle.blocks_per_cycle", 120)
	v.SetDefault("cycle.reveal_block", 60)
	v.SetDefault("cycle.betting_blocks", 60)
	v.SetDefault("cycle.entropy_endpoint", "")
	v.SetDefault("cycle.entropy_timeout", "5s")

	v.SetDefault("wager.max_stake", 10000)

	v.SetDefault("weather.fetch_timeout", "10s")
	v.SetDefault("weather.attempt_backoff", "1s")

	v.SetDefault("consensus.endpoint", "")
	v.SetDefault("consensus.timeout", "10s")
	v.SetDefault("consensus.bull_weight", 0.30)
	v.SetDefault("consensus.bear_weight", 0.25)
	v.SetDefault("consensus.technical_weight", 0.25)
	v.SetDefault("consensus.sentiment_weight", 0.20)
	v.SetDefault("consensus.neutral_score", 50)
	v.SetDefault("consensus.neutral_confidence", 0.5)
	v.SetDefault("consensus.default_confidence", 0.7)
	v.SetDefault("consensus.derived_confidence", 0.8)

	v.SetDefault("resolution.weather_confidence", 0.85)

	v.SetDefault("settlement.house_take", 0.05)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate is the startup fail-fast pass: misconfigured fusion weights make
// every resolution wrong, so the process refuses to start instead.
func (c Config) Validate() error {
	sum := c.Consensus.BullWeight + c.Consensus.BearWeight +
		c.Consensus.TechnicalWeight + c.Consensus.SentimentWeight
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("consensus weights must sum to 1.0, got %.6f", sum)
	}
	if c.Settlement.HouseTake < 0 || c.Settlement.HouseTake >= 1 {
		return fmt.Errorf("settlement house take must be in [0,1), got %.4f", c.Settlement.HouseTake)
	}
	if c.Wager.MaxStake <= 0 {
		return fmt.Errorf("wager max stake must be positive, got %.4f", c.Wager.MaxStake)
	}
	if c.Cycle.BlocksPerCycle <= 0 {
		return fmt.Errorf("cycle blocks_per_cycle must be positive, got %d", c.Cycle.BlocksPerCycle)
	}
	if c.Cycle.RevealBlock <= 0 || c.Cycle.RevealBlock >= c.Cycle.BlocksPerCycle {
		return fmt.Errorf("cycle reveal_block must be inside the cycle, got %d", c.Cycle.RevealBlock)
	}
	if c.Cycle.BettingBlocks <= 0 || c.Cycle.BettingBlocks > c.Cycle.BlocksPerCycle {
		return fmt.Errorf("cycle betting_blocks must be within the cycle, got %d", c.Cycle.BettingBlocks)
	}
	return nil
}
