package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"

	id "flightsurety/pkg/domain"
	pstrings "flightsurety/pkg/platform/strings"
)

// Config is the full runtime configuration assembled by Load.
type Config struct {
	Server    Server
	Ledger    LedgerConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Protocol  Protocol
	Simulator Simulator
	LogLevel  string
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	// Owner may toggle the operational switch.
	Owner id.AccountID
	// DevCallerHeader accepts an X-Caller-ID header instead of a bearer token.
	// Never enable outside local development.
	DevCallerHeader bool
	// OracleResponseRPS throttles oracle submissions per caller; zero disables.
	OracleResponseRPS   float64
	OracleResponseBurst int
}

// LedgerConfig selects the ledger gateway implementation.
type LedgerConfig struct {
	Driver      string // "memory" or "postgres"
	DatabaseURL string
	TxTimeout   time.Duration
}

// RedisConfig configures the shared vote tally. An empty URL keeps tallies in
// process memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	TallyTTL     time.Duration
}

// KafkaConfig configures the event export sink. No brokers disables it.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Protocol holds the economic and consensus parameters.
type Protocol struct {
	RegistrationFee      *uint256.Int
	FundingThreshold     *uint256.Int
	PremiumCeiling       *uint256.Int
	PayoutNumerator      uint64
	PayoutDenominator    uint64
	QuorumThreshold      int
	IndexRange           uint8
	DirectAdmissionLimit int
	AllowReRegistration  bool
	// RequestTTL abandons open status requests older than the TTL; zero keeps
	// them open forever.
	RequestTTL       time.Duration
	FirstAirline     id.AccountID
	FirstAirlineName string
}

// Simulator configures the in-process oracle simulator.
type Simulator struct {
	Enabled     bool
	OracleCount int
	// Codes restricts the codes simulated oracles report; empty means all.
	Codes []int
}

// minQuorum is the lowest quorum the resolver accepts.
const minQuorum = 3

// Defaults returns the reference protocol parameters.
func Defaults() Config {
	return Config{
		Server: Server{
			Addr:                ":8080",
			JWTSigningKey:       "dev-secret-key-change-in-production",
			OracleResponseRPS:   20,
			OracleResponseBurst: 40,
		},
		Ledger: LedgerConfig{Driver: "memory", TxTimeout: 5 * time.Second},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			TallyTTL:     24 * time.Hour,
		},
		Kafka: KafkaConfig{Topic: "flightsurety.events"},
		Protocol: Protocol{
			RegistrationFee:      id.Units(1),
			FundingThreshold:     id.Units(10),
			PremiumCeiling:       id.Units(1),
			PayoutNumerator:      3,
			PayoutDenominator:    2,
			QuorumThreshold:      minQuorum,
			IndexRange:           10,
			DirectAdmissionLimit: 4,
			FirstAirlineName:     "Airline 1",
		},
		Simulator: Simulator{OracleCount: 20},
		LogLevel:  "info",
	}
}

// Validate rejects parameter combinations the protocol cannot run with.
func (c Config) Validate() error {
	p := c.Protocol
	if p.QuorumThreshold < minQuorum {
		return fmt.Errorf("quorum threshold must be at least %d", minQuorum)
	}
	if p.IndexRange == 0 {
		return fmt.Errorf("index range must be positive")
	}
	if p.PayoutDenominator == 0 {
		return fmt.Errorf("payout denominator must be positive")
	}
	if p.DirectAdmissionLimit < 1 {
		return fmt.Errorf("direct admission limit must be positive")
	}
	if p.RegistrationFee == nil || p.FundingThreshold == nil || p.PremiumCeiling == nil {
		return fmt.Errorf("protocol amounts are required")
	}
	switch c.Ledger.Driver {
	case "memory":
	case "postgres":
		if c.Ledger.DatabaseURL == "" {
			return fmt.Errorf("postgres ledger requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown ledger driver %q", c.Ledger.Driver)
	}
	return nil
}

// Load builds the configuration from defaults, an optional YAML file named by
// FLIGHTSURETY_CONFIG, then environment overrides.
func Load() (Config, error) {
	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv("FLIGHTSURETY_CONFIG")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := MergeYAML(&cfg, data); err != nil {
			return Config{}, err
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// FromEnv builds a config from defaults and environment variables only.
func FromEnv() (Config, error) {
	cfg := Defaults()
	if err := ApplyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// fileConfig mirrors the YAML layout. Pointer fields distinguish "absent"
// from zero values.
type fileConfig struct {
	Server struct {
		Addr            string  `yaml:"addr"`
		Owner           string  `yaml:"owner"`
		DevCallerHeader *bool   `yaml:"devCallerHeader"`
		OracleRPS       float64 `yaml:"oracleResponseRPS"`
		OracleBurst     int     `yaml:"oracleResponseBurst"`
	} `yaml:"server"`
	Ledger struct {
		Driver    string        `yaml:"driver"`
		TxTimeout time.Duration `yaml:"txTimeout"`
	} `yaml:"ledger"`
	Redis struct {
		URL      string        `yaml:"url"`
		PoolSize int           `yaml:"poolSize"`
		TallyTTL time.Duration `yaml:"tallyTTL"`
	} `yaml:"redis"`
	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`
	Protocol struct {
		RegistrationFee      string        `yaml:"registrationFee"`
		FundingThreshold     string        `yaml:"fundingThreshold"`
		PremiumCeiling       string        `yaml:"premiumCeiling"`
		PayoutNumerator      uint64        `yaml:"payoutNumerator"`
		PayoutDenominator    uint64        `yaml:"payoutDenominator"`
		QuorumThreshold      int           `yaml:"quorumThreshold"`
		IndexRange           uint8         `yaml:"indexRange"`
		DirectAdmissionLimit int           `yaml:"directAdmissionLimit"`
		AllowReRegistration  *bool         `yaml:"allowReRegistration"`
		RequestTTL           time.Duration `yaml:"requestTTL"`
		FirstAirline         string        `yaml:"firstAirline"`
		FirstAirlineName     string        `yaml:"firstAirlineName"`
	} `yaml:"protocol"`
	Simulator struct {
		Enabled     *bool `yaml:"enabled"`
		OracleCount int   `yaml:"oracleCount"`
		Codes       []int `yaml:"codes"`
	} `yaml:"simulator"`
	LogLevel string `yaml:"logLevel"`
}

// MergeYAML overlays non-empty values from a YAML document onto cfg.
// Amounts are written in whole units, e.g. "1" or "0.5".
func MergeYAML(cfg *Config, data []byte) error {
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if f.Server.Addr != "" {
		cfg.Server.Addr = f.Server.Addr
	}
	if f.Server.Owner != "" {
		owner, err := id.ParseAccountID(f.Server.Owner)
		if err != nil {
			return fmt.Errorf("server.owner: %w", err)
		}
		cfg.Server.Owner = owner
	}
	if f.Server.DevCallerHeader != nil {
		cfg.Server.DevCallerHeader = *f.Server.DevCallerHeader
	}
	if f.Server.OracleRPS != 0 {
		cfg.Server.OracleResponseRPS = f.Server.OracleRPS
	}
	if f.Server.OracleBurst != 0 {
		cfg.Server.OracleResponseBurst = f.Server.OracleBurst
	}
	if f.Ledger.Driver != "" {
		cfg.Ledger.Driver = f.Ledger.Driver
	}
	if f.Ledger.TxTimeout != 0 {
		cfg.Ledger.TxTimeout = f.Ledger.TxTimeout
	}
	if f.Redis.URL != "" {
		cfg.Redis.URL = f.Redis.URL
	}
	if f.Redis.PoolSize != 0 {
		cfg.Redis.PoolSize = f.Redis.PoolSize
	}
	if f.Redis.TallyTTL != 0 {
		cfg.Redis.TallyTTL = f.Redis.TallyTTL
	}
	if f.Kafka.Brokers != nil {
		cfg.Kafka.Brokers = pstrings.DedupeAndTrim(f.Kafka.Brokers)
	}
	if f.Kafka.Topic != "" {
		cfg.Kafka.Topic = f.Kafka.Topic
	}

	p := &cfg.Protocol
	for _, amt := range []struct {
		raw  string
		dst  **uint256.Int
		name string
	}{
		{f.Protocol.RegistrationFee, &p.RegistrationFee, "registrationFee"},
		{f.Protocol.FundingThreshold, &p.FundingThreshold, "fundingThreshold"},
		{f.Protocol.PremiumCeiling, &p.PremiumCeiling, "premiumCeiling"},
	} {
		if amt.raw == "" {
			continue
		}
		v, err := id.ParseUnits(amt.raw)
		if err != nil {
			return fmt.Errorf("protocol.%s: %w", amt.name, err)
		}
		*amt.dst = v
	}
	if f.Protocol.PayoutNumerator != 0 {
		p.PayoutNumerator = f.Protocol.PayoutNumerator
	}
	if f.Protocol.PayoutDenominator != 0 {
		p.PayoutDenominator = f.Protocol.PayoutDenominator
	}
	if f.Protocol.QuorumThreshold != 0 {
		p.QuorumThreshold = f.Protocol.QuorumThreshold
	}
	if f.Protocol.IndexRange != 0 {
		p.IndexRange = f.Protocol.IndexRange
	}
	if f.Protocol.DirectAdmissionLimit != 0 {
		p.DirectAdmissionLimit = f.Protocol.DirectAdmissionLimit
	}
	if f.Protocol.AllowReRegistration != nil {
		p.AllowReRegistration = *f.Protocol.AllowReRegistration
	}
	if f.Protocol.RequestTTL != 0 {
		p.RequestTTL = f.Protocol.RequestTTL
	}
	if f.Protocol.FirstAirline != "" {
		first, err := id.ParseAccountID(f.Protocol.FirstAirline)
		if err != nil {
			return fmt.Errorf("protocol.firstAirline: %w", err)
		}
		p.FirstAirline = first
	}
	if f.Protocol.FirstAirlineName != "" {
		p.FirstAirlineName = f.Protocol.FirstAirlineName
	}

	if f.Simulator.Enabled != nil {
		cfg.Simulator.Enabled = *f.Simulator.Enabled
	}
	if f.Simulator.OracleCount != 0 {
		cfg.Simulator.OracleCount = f.Simulator.OracleCount
	}
	if f.Simulator.Codes != nil {
		cfg.Simulator.Codes = f.Simulator.Codes
	}
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
	return nil
}

// ApplyEnv overlays environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	if v := env("FLIGHTSURETY_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := env("JWT_SIGNING_KEY"); v != "" {
		cfg.Server.JWTSigningKey = v
	}
	if v := env("FLIGHTSURETY_OWNER"); v != "" {
		owner, err := id.ParseAccountID(v)
		if err != nil {
			return fmt.Errorf("FLIGHTSURETY_OWNER: %w", err)
		}
		cfg.Server.Owner = owner
	}
	if v := env("DEV_CALLER_HEADER"); v != "" {
		cfg.Server.DevCallerHeader = v == "true"
	}
	if v := env("LEDGER_DRIVER"); v != "" {
		cfg.Ledger.Driver = v
	}
	if v := env("DATABASE_URL"); v != "" {
		cfg.Ledger.DatabaseURL = v
	}
	if v := env("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := env("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = pstrings.SplitList(v)
	}
	if v := env("KAFKA_TOPIC"); v != "" {
		cfg.Kafka.Topic = v
	}
	if v := env("QUORUM_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("QUORUM_THRESHOLD: %w", err)
		}
		cfg.Protocol.QuorumThreshold = n
	}
	if v := env("FIRST_AIRLINE"); v != "" {
		first, err := id.ParseAccountID(v)
		if err != nil {
			return fmt.Errorf("FIRST_AIRLINE: %w", err)
		}
		cfg.Protocol.FirstAirline = first
	}
	if v := env("ORACLE_SIMULATOR"); v != "" {
		cfg.Simulator.Enabled = v == "true"
	}
	if v := env("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
