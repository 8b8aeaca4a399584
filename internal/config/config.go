package config

import (
    "fmt"
    "strings"
    "time"

    "github.com/spf13/viper"

    "tickerfeed/internal/exchange/biconomy"
    "tickerfeed/internal/exchange/bitcom"
    "tickerfeed/internal/exchange/toobit"
)

// Server holds the HTTP server settings for cmd/server.
type Server struct {
    Port              string `mapstructure:"port"`
    RequestTimeoutSec int    `mapstructure:"request_timeout_sec"`
}

// Exchange holds one exchange adapter's settings.
type Exchange struct {
    Enabled              bool   `mapstructure:"enabled"`
    BaseURL              string `mapstructure:"base_url"`
    RequestDelayMS       int    `mapstructure:"request_delay_ms"`
    MaxConcurrency       int    `mapstructure:"max_concurrency"`
    SkipFailedMarkets    bool   `mapstructure:"skip_failed_markets"`
    CacheTTLSeconds      int    `mapstructure:"cache_ttl_sec"`
    RetryAttempts        int    `mapstructure:"retry_attempts"`
    MaxRequestsPerMinute int    `mapstructure:"max_requests_per_minute"`
    Burst                int    `mapstructure:"burst"`
}

// RequestDelay converts the configured inter-request delay.
func (e Exchange) RequestDelay() time.Duration {
    return time.Duration(e.RequestDelayMS) * time.Millisecond
}

type Config struct {
    Server   Server   `mapstructure:"server"`
    Bit      Exchange `mapstructure:"bit"`
    Biconomy Exchange `mapstructure:"biconomy"`
    Toobit   Exchange `mapstructure:"toobit"`
}

// Exchange returns the section for a known exchange id.
func (c Config) Exchange(id string) (Exchange, bool) {
    switch id {
    case bitcom.ID:
        return c.Bit, true
    case biconomy.ID:
        return c.Biconomy, true
    case toobit.ID:
        return c.Toobit, true
    }
    return Exchange{}, false
}

// EnabledIDs lists the exchange ids enabled in this config.
func (c Config) EnabledIDs() []string {
    var ids []string
    for _, id := range []string{bitcom.ID, biconomy.ID, toobit.ID} {
        if e, _ := c.Exchange(id); e.Enabled {
            ids = append(ids, id)
        }
    }
    return ids
}

func Default() Config {
    return Config{
        Server: Server{Port: "8080", RequestTimeoutSec: 15},
        Bit: Exchange{
            Enabled:        true,
            RequestDelayMS: 250,
            RetryAttempts:  0,
        },
        Biconomy: Exchange{
            Enabled:         true,
            CacheTTLSeconds: 3,
        },
        Toobit: Exchange{
            Enabled:        true,
            RequestDelayMS: 250,
        },
    }
}

// Load reads config.yaml (searched in ., ./configs and /etc/tickerfeed, or an
// explicit path) over the defaults, then applies TICKERFEED_* environment
// overrides, e.g. TICKERFEED_BIT_REQUEST_DELAY_MS=500.
func Load(path string) (Config, error) {
    v := viper.New()
    v.SetConfigType("yaml")
    if path != "" {
        v.SetConfigFile(path)
    } else {
        v.SetConfigName("config")
        v.AddConfigPath(".")
        v.AddConfigPath("./configs")
        v.AddConfigPath("/etc/tickerfeed")
    }

    v.SetEnvPrefix("TICKERFEED")
    v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
    v.AutomaticEnv()

    cfg := Default()
    setDefaults(v, cfg)

    if err := v.ReadInConfig(); err != nil {
        // Defaults plus env vars are a complete config on their own, but an
        // explicitly named file must exist.
        if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound || path != "" {
            return cfg, fmt.Errorf("read config: %w", err)
        }
    }
    if err := v.Unmarshal(&cfg); err != nil {
        return cfg, fmt.Errorf("parse config: %w", err)
    }
    return cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
    v.SetDefault("server.port", cfg.Server.Port)
    v.SetDefault("server.request_timeout_sec", cfg.Server.RequestTimeoutSec)
    for id, e := range map[string]Exchange{
        bitcom.ID:   cfg.Bit,
        biconomy.ID: cfg.Biconomy,
        toobit.ID:   cfg.Toobit,
    } {
        v.SetDefault(id+".enabled", e.Enabled)
        v.SetDefault(id+".base_url", e.BaseURL)
        v.SetDefault(id+".request_delay_ms", e.RequestDelayMS)
        v.SetDefault(id+".max_concurrency", e.MaxConcurrency)
        v.SetDefault(id+".skip_failed_markets", e.SkipFailedMarkets)
        v.SetDefault(id+".cache_ttl_sec", e.CacheTTLSeconds)
        v.SetDefault(id+".retry_attempts", e.RetryAttempts)
        v.SetDefault(id+".max_requests_per_minute", e.MaxRequestsPerMinute)
        v.SetDefault(id+".burst", e.Burst)
    }
}
