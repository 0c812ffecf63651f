package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	DB      DBConfig      `mapstructure:"db"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Insight InsightConfig `mapstructure:"insight"`
	Cron    CronConfig    `mapstructure:"cron"`
	Export  ExportConfig  `mapstructure:"export"`
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

// EngineConfig governs script execution and the generation pipeline.
type EngineConfig struct {
	// ScriptDir holds the fixed platform scripts (disclosure engine and the
	// generic calculation fallback).
	ScriptDir string `mapstructure:"script_dir"`
	// WorkDir is where uploaded script bytes and input payloads are
	// materialized for the lifetime of one invocation.
	WorkDir       string        `mapstructure:"work_dir"`
	ScriptTimeout time.Duration `mapstructure:"script_timeout"`
	// ConversionMode is "lenient" (conversion failures fall back to a
	// synthetic staging table) or "strict" (recorded as Error results).
	ConversionMode string `mapstructure:"conversion_mode"`
	EngineVersion  string `mapstructure:"engine_version"`
}

type InsightConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type CronConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// LockSweep releases model-definition advisory locks older than LockTTL.
	LockSweep string        `mapstructure:"lock_sweep"`
	LockTTL   time.Duration `mapstructure:"lock_ttl"`
	// WorkDirSweep removes invocation leftovers older than WorkDirTTL.
	WorkDirSweep string        `mapstructure:"work_dir_sweep"`
	WorkDirTTL   time.Duration `mapstructure:"work_dir_ttl"`
}

type ExportConfig struct {
	// MaxRows caps generic xlsx/pdf rendering of detailed views.
	MaxRows int `mapstructure:"max_rows"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("IFRS17")
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
	v.SetDefault("engine.script_dir", "scripts/engines")
	v.SetDefault("engine.work_dir", "/tmp/ifrs17-engine")
	v.SetDefault("engine.script_timeout", "300s")
	v.SetDefault("engine.conversion_mode", "lenient")
	v.SetDefault("engine.engine_version", "1.0.0")
	v.SetDefault("insight.enabled", false)
	v.SetDefault("insight.base_url", "https://api.openai.com/v1")
	v.SetDefault("insight.model", "gpt-4o-mini")
	v.SetDefault("insight.timeout", "20s")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.lock_sweep", "0 */5 * * * *")
	v.SetDefault("cron.lock_ttl", "30m")
	v.SetDefault("cron.work_dir_sweep", "0 0 * * * *")
	v.SetDefault("cron.work_dir_ttl", "24h")
	v.SetDefault("export.max_rows", 10000)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
