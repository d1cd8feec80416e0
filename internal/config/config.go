// Package config loads the application configuration and initializes the
// global logger. Credentials arrive from the environment exactly once, here;
// the pipeline only ever sees the assembled Config value.
package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Crawl   CrawlConfig   `yaml:"crawl" mapstructure:"crawl"`
	Sources SourcesConfig `yaml:"sources" mapstructure:"sources"`
	Fireant FireantConfig `yaml:"fireant" mapstructure:"fireant"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend. DatabaseURL wins when set;
// otherwise a Postgres DSN is assembled from the individual fields.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Host        string `yaml:"host" mapstructure:"host"`
	Port        int    `yaml:"port" mapstructure:"port"`
	Name        string `yaml:"name" mapstructure:"name"`
	User        string `yaml:"user" mapstructure:"user"`
	Password    string `yaml:"password" mapstructure:"password"`
	Path        string `yaml:"path" mapstructure:"path"` // sqlite only
}

// DSN returns the Postgres connection string.
func (c StoreConfig) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Name,
	}
	return u.String()
}

// CrawlConfig configures the fetch stage.
type CrawlConfig struct {
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
}

// SourcesConfig holds the scrape target URLs.
type SourcesConfig struct {
	VCBFXURL   string `yaml:"vcb_fx_url" mapstructure:"vcb_fx_url"`
	FXBoardURL string `yaml:"fx_board_url" mapstructure:"fx_board_url"`
	SBVURL     string `yaml:"sbv_url" mapstructure:"sbv_url"`
}

// FireantConfig holds the margin-room API settings. StockCodes is a
// comma-separated list so it can arrive through a single env variable.
type FireantConfig struct {
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	Token      string `yaml:"token" mapstructure:"token"`
	StockCodes string `yaml:"stock_codes" mapstructure:"stock_codes"`
}

// Codes returns the stock codes as a list, dropping blanks.
func (c FireantConfig) Codes() []string {
	var codes []string
	for _, code := range strings.Split(c.StockCodes, ",") {
		if code = strings.TrimSpace(code); code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}

// LogConfig configures logging. File enables a rotating log file alongside
// stderr, matching the cron deployments this tool runs under.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	File   string `yaml:"file" mapstructure:"file"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RATECRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.host", "localhost")
	v.SetDefault("store.port", 5432)
	v.SetDefault("store.name", "postgres")
	v.SetDefault("store.user", "postgres")
	v.SetDefault("store.password", "")
	v.SetDefault("store.path", "./ratecrawl.db")
	v.SetDefault("crawl.timeout_secs", 10)
	v.SetDefault("crawl.user_agent", "ratecrawl/1.0")
	v.SetDefault("sources.vcb_fx_url", "https://portal.vietcombank.com.vn/UserControls/TVPortal.TyGia/pXML.aspx")
	v.SetDefault("sources.sbv_url", "https://sbv.gov.vn/lai-suat-lien-ngan-hang")
	v.SetDefault("sources.fx_board_url", "")
	v.SetDefault("fireant.base_url", "https://restv2.fireant.vn")
	v.SetDefault("fireant.token", "")
	v.SetDefault("fireant.stock_codes", "")
	v.SetDefault("store.database_url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}
