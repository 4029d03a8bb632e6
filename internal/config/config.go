package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	mdhttp "github.com/dacsang97/mdbind/internal/http"
	"github.com/dacsang97/mdbind/internal/models"
	"github.com/dacsang97/mdbind/internal/pdf"
	"github.com/dacsang97/mdbind/pkg/utils"
	"github.com/joho/godotenv"
	"golang.org/x/text/language"
)

// Environment keys read by FromEnv and bound to the CLI flags
const (
	EnvAPI      = "MDBIND_API"
	EnvLanguage = "MDBIND_LANGUAGE"
	EnvOutput   = "MDBIND_OUTPUT"
	EnvRate     = "MDBIND_RATE"
	EnvTimeout  = "MDBIND_TIMEOUT"
)

// Config holds the settings of one run
type Config struct {
	WorkID    string
	Selector  string
	Language  string
	Quality   models.Quality
	Output    string // file or directory; empty means the working directory
	Title     string
	Dump      bool
	Prefetch  int
	Prefilter bool
	Verbose   bool

	APIBase   string
	Timeout   time.Duration
	RateLimit float64

	Geometry pdf.Geometry
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		Selector:  "1",
		Language:  "en",
		Quality:   models.QualityStandard,
		Prefetch:  1,
		Prefilter: true,
		APIBase:   mdhttp.DefaultAPIBase,
		Timeout:   mdhttp.DefaultTimeout,
		RateLimit: mdhttp.DefaultRateLimit,
		Geometry:  pdf.DefaultGeometry(),
	}
}

// LoadDotEnv loads path into the process environment. A missing file is not
// an error; variables already set are kept.
func LoadDotEnv(path string) error {
	if !utils.FileExists(path) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return utils.WrapError(err, "load "+path)
	}
	return nil
}

// FromEnv returns Default overlaid with the MDBIND_* environment variables.
// Unparsable numeric values are reported and ignored.
func FromEnv() (Config, []error) {
	cfg := Default()
	var warnings []error

	cfg.APIBase = withDefault(os.Getenv(EnvAPI), cfg.APIBase)
	cfg.Language = withDefault(os.Getenv(EnvLanguage), cfg.Language)
	cfg.Output = withDefault(os.Getenv(EnvOutput), cfg.Output)

	if raw := strings.TrimSpace(os.Getenv(EnvRate)); raw != "" {
		rate, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			warnings = append(warnings, fmt.Errorf("%s=%q: %w", EnvRate, raw, err))
		} else {
			cfg.RateLimit = rate
		}
	}

	if raw := strings.TrimSpace(os.Getenv(EnvTimeout)); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			warnings = append(warnings, fmt.Errorf("%s=%q: %w", EnvTimeout, raw, err))
		} else {
			cfg.Timeout = timeout
		}
	}

	return cfg, warnings
}

// Validate checks the run settings and canonicalises the work id and
// language in place.
func (c *Config) Validate() error {
	id, err := utils.ParseMangaDexID(c.WorkID)
	if err != nil {
		return err
	}
	c.WorkID = id

	lang := strings.ToLower(strings.TrimSpace(c.Language))
	if lang == "" {
		return fmt.Errorf("language is required")
	}
	if _, err := language.Parse(lang); err != nil {
		return fmt.Errorf("invalid language %q: %w", c.Language, err)
	}
	c.Language = lang

	if c.Prefetch < 1 {
		return fmt.Errorf("prefetch must be at least 1, got %d", c.Prefetch)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative, got %g", c.RateLimit)
	}
	if !utils.IsAbsoluteURL(c.APIBase) {
		return fmt.Errorf("api base %q is not an absolute URL", c.APIBase)
	}

	return c.Geometry.Validate()
}

// ClientOptions returns the transport settings of the run
func (c Config) ClientOptions() mdhttp.Options {
	return mdhttp.Options{
		APIBase:   c.APIBase,
		Timeout:   c.Timeout,
		RateLimit: c.RateLimit,
	}
}

func withDefault(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}
