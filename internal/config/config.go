package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"pricewatch/pkg/utils"
)

// supportedEngines lists the scrape engines validate accepts for
// site.engine; "auto" picks firecrawl when an API key is configured.
var supportedEngines = []string{"headed", "firecrawl", "auto"}

// Config represents the application configuration
type Config struct {
	Server struct {
		Port         int           `yaml:"port"`
		Host         string        `yaml:"host"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		IdleTimeout  time.Duration `yaml:"idle_timeout"`
	} `yaml:"server"`

	Runs struct {
		MaxConcurrentRuns int           `yaml:"max_concurrent_runs"`
		RunTimeout        time.Duration `yaml:"run_timeout"`
		CleanupInterval   time.Duration `yaml:"cleanup_interval"`
		MaxRunAge         time.Duration `yaml:"max_run_age"`
	} `yaml:"runs"`

	Batch struct {
		Size                int           `yaml:"size"`
		Concurrency         int           `yaml:"concurrency"`
		DelayBetweenBatches time.Duration `yaml:"delay_between_batches"`
		DelayBetweenItems   time.Duration `yaml:"delay_between_items"`
		MaxAttempts         int           `yaml:"max_attempts"`
		RetryDelay          time.Duration `yaml:"retry_delay"`
	} `yaml:"batch"`

	Scraper struct {
		UserAgent         string        `yaml:"user_agent"`
		HeadlessMode      bool          `yaml:"headless_mode"`
		StealthMode       bool          `yaml:"stealth_mode"`
		NavigationTimeout time.Duration `yaml:"navigation_timeout"`
		CacheTTL          time.Duration `yaml:"cache_ttl"`
		CacheSize         int           `yaml:"cache_size"`
		RateLimit         int           `yaml:"rate_limit"` // requests per minute per site
		Captcha           struct {
			Provider        string        `yaml:"provider"`
			APIKey          string        `yaml:"api_key"`
			Timeout         time.Duration `yaml:"timeout"`
			EnableAutoSolve bool          `yaml:"enable_auto_solve"`
		} `yaml:"captcha"`
	} `yaml:"scraper"`

	Site struct {
		Name   string `yaml:"name"`
		Engine string `yaml:"engine"` // headed or firecrawl
	} `yaml:"site"`

	Firecrawl struct {
		APIKey     string        `yaml:"api_key"`
		APIURL     string        `yaml:"api_url"`
		Timeout    time.Duration `yaml:"timeout"`
		MaxRetries int           `yaml:"max_retries"`
	} `yaml:"firecrawl"`

	Catalog struct {
		BaseURL    string        `yaml:"base_url"`
		APIToken   string        `yaml:"api_token"`
		Timeout    time.Duration `yaml:"timeout"`
		MaxRetries int           `yaml:"max_retries"`
	} `yaml:"catalog"`

	Redis struct {
		URL           string        `yaml:"url"`
		Password      string        `yaml:"password"`
		DB            int           `yaml:"db"`
		Timeout       time.Duration `yaml:"timeout"`
		EventsEnabled bool          `yaml:"events_enabled"`
		ChannelPrefix string        `yaml:"channel_prefix"`
	} `yaml:"redis"`

	Scheduler struct {
		Enabled  bool          `yaml:"enabled"`
		Interval time.Duration `yaml:"interval"`
	} `yaml:"scheduler"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`

		Adapters []struct {
			Name    string                 `yaml:"name"`
			Type    string                 `yaml:"type"`
			Enabled bool                   `yaml:"enabled"`
			Options map[string]interface{} `yaml:"options"`
		} `yaml:"adapters"`
	} `yaml:"logging"`
}

// expandEnvVars expands environment variables in a string using ${VAR} or $VAR syntax
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	re2 := regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	s = re2.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[1:]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	return s
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	_ = godotenv.Load()

	config := &Config{}
	config.setDefaults()

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			yamlContent := expandEnvVars(string(data))
			if err := yaml.Unmarshal([]byte(yamlContent), config); err != nil {
				return nil, err
			}
		}
	}

	config.loadFromEnv()

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) setDefaults() {
	c.Server.Port = 8080
	c.Server.Host = "0.0.0.0"
	c.Server.ReadTimeout = 30 * time.Second
	c.Server.WriteTimeout = 30 * time.Second
	c.Server.IdleTimeout = 60 * time.Second

	c.Runs.MaxConcurrentRuns = 2
	c.Runs.RunTimeout = 30 * time.Minute
	c.Runs.CleanupInterval = 1 * time.Hour
	c.Runs.MaxRunAge = 24 * time.Hour

	c.Batch.Size = 10
	c.Batch.Concurrency = 3
	c.Batch.DelayBetweenBatches = 5 * time.Second
	c.Batch.DelayBetweenItems = 500 * time.Millisecond
	c.Batch.MaxAttempts = 2
	c.Batch.RetryDelay = 2 * time.Second

	c.Scraper.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	c.Scraper.HeadlessMode = true
	c.Scraper.StealthMode = true
	c.Scraper.NavigationTimeout = 30 * time.Second
	c.Scraper.CacheTTL = 30 * time.Minute
	c.Scraper.CacheSize = 4096
	c.Scraper.RateLimit = 30

	c.Scraper.Captcha.Provider = "2captcha"
	c.Scraper.Captcha.Timeout = 120 * time.Second
	c.Scraper.Captcha.EnableAutoSolve = false

	c.Site.Name = "apodiscounter"
	c.Site.Engine = "headed"

	c.Firecrawl.APIURL = "https://api.firecrawl.dev"
	c.Firecrawl.Timeout = 60 * time.Second
	c.Firecrawl.MaxRetries = 3

	c.Catalog.Timeout = 30 * time.Second
	c.Catalog.MaxRetries = 3

	c.Redis.URL = "redis://localhost:6379"
	c.Redis.DB = 0
	c.Redis.Timeout = 5 * time.Second
	c.Redis.ChannelPrefix = "pricewatch:runs"

	c.Scheduler.Enabled = false
	c.Scheduler.Interval = 6 * time.Hour

	c.Logging.Level = "info"
	c.Logging.Format = "json"
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if host := os.Getenv("HOST"); host != "" {
		c.Server.Host = host
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		c.Logging.Format = logFormat
	}

	if siteName := os.Getenv("SITE_NAME"); siteName != "" {
		c.Site.Name = siteName
	}

	if engine := os.Getenv("SITE_ENGINE"); engine != "" {
		c.Site.Engine = engine
	}

	if captchaAPIKey := os.Getenv("CAPTCHA_API_KEY"); captchaAPIKey != "" {
		c.Scraper.Captcha.APIKey = captchaAPIKey
	}

	// Also support 2CAPTCHA_API_KEY for compatibility
	if captchaAPIKey := os.Getenv("2CAPTCHA_API_KEY"); captchaAPIKey != "" {
		c.Scraper.Captcha.APIKey = captchaAPIKey
	}

	if firecrawlAPIKey := os.Getenv("FIRECRAWL_API_KEY"); firecrawlAPIKey != "" {
		c.Firecrawl.APIKey = firecrawlAPIKey
	}

	if firecrawlAPIURL := os.Getenv("FIRECRAWL_API_URL"); firecrawlAPIURL != "" {
		c.Firecrawl.APIURL = firecrawlAPIURL
	}

	if catalogURL := os.Getenv("CATALOG_BASE_URL"); catalogURL != "" {
		c.Catalog.BaseURL = catalogURL
	}

	if catalogToken := os.Getenv("CATALOG_API_TOKEN"); catalogToken != "" {
		c.Catalog.APIToken = catalogToken
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.URL = redisURL
	}

	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		c.Redis.Password = redisPassword
	}

	if redisDB := os.Getenv("REDIS_DB"); redisDB != "" {
		if db, err := strconv.Atoi(redisDB); err == nil {
			c.Redis.DB = db
		}
	}

	if eventsEnabled := os.Getenv("REDIS_EVENTS_ENABLED"); eventsEnabled != "" {
		c.Redis.EventsEnabled = eventsEnabled == "true" || eventsEnabled == "1"
	}

	if schedEnabled := os.Getenv("SCHEDULER_ENABLED"); schedEnabled != "" {
		c.Scheduler.Enabled = schedEnabled == "true" || schedEnabled == "1"
	}

	if interval := os.Getenv("SCHEDULER_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			c.Scheduler.Interval = d
		}
	}

	if cacheTTL := os.Getenv("SCRAPER_CACHE_TTL"); cacheTTL != "" {
		if d, err := time.ParseDuration(cacheTTL); err == nil {
			c.Scraper.CacheTTL = d
		}
	}

	if concurrency := os.Getenv("BATCH_CONCURRENCY"); concurrency != "" {
		if n, err := strconv.Atoi(concurrency); err == nil {
			c.Batch.Concurrency = n
		}
	}

	if batchSize := os.Getenv("BATCH_SIZE"); batchSize != "" {
		if n, err := strconv.Atoi(batchSize); err == nil {
			c.Batch.Size = n
		}
	}
}

func (c *Config) validate() error {
	if c.Batch.Concurrency < 1 {
		return fmt.Errorf("batch.concurrency must be at least 1, got %d", c.Batch.Concurrency)
	}
	if c.Batch.Size < 1 {
		return fmt.Errorf("batch.size must be at least 1, got %d", c.Batch.Size)
	}
	if c.Batch.MaxAttempts < 1 {
		return fmt.Errorf("batch.max_attempts must be at least 1, got %d", c.Batch.MaxAttempts)
	}
	if !utils.Contains(supportedEngines, c.Site.Engine) {
		return fmt.Errorf("unsupported site.engine: %s", c.Site.Engine)
	}
	return nil
}
