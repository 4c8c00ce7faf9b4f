package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata" // report timezones must resolve in minimal runtime images
)

// Default values for the network report. They mirror the report the loader
// was first built for and can be overridden through the environment.
const (
	DefaultTargetTable   = "admob_reporting_data.admob_network_report"
	DefaultCurrencyCode  = "PKR"
	DefaultTimezone      = "America/Los_Angeles"
	DefaultSortDimension = "DATE"
	DefaultSortOrder     = "DESCENDING"
	DefaultAPIEndpoint   = "https://admob.googleapis.com/v1/"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
)

// DefaultDimensions is the dimension set requested for every report.
var DefaultDimensions = []string{"DATE", "APP", "COUNTRY"}

// DefaultMetrics is the metric set requested for every report.
var DefaultMetrics = []string{
	"ESTIMATED_EARNINGS",
	"IMPRESSION_RPM",
	"AD_REQUESTS",
	"MATCH_RATE",
	"MATCHED_REQUESTS",
	"SHOW_RATE",
	"IMPRESSIONS",
	"IMPRESSION_CTR",
	"CLICKS",
}

// ErrInvalidConfig is returned by Validate for any unusable setting.
var ErrInvalidConfig = errors.New("invalid configuration")

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Config is the explicit configuration record handed to every component.
type Config struct {
	ProjectID   string
	TargetTable string

	CurrencyCode  string
	Timezone      string
	Dimensions    []string
	Metrics       []string
	SortDimension string
	SortOrder     string

	APIEndpoint       string
	CredentialsFile   string
	CredentialsSecret string

	// ArchiveBucket, when set, receives a copy of every raw report response.
	ArchiveBucket string
	// StagingBucket, when set, makes load jobs read NDJSON from GCS instead of
	// an inline upload.
	StagingBucket string

	LogLevel  string
	LogFormat string
}

// Default returns a Config populated with the built-in defaults only.
func Default() *Config {
	return &Config{
		TargetTable:   DefaultTargetTable,
		CurrencyCode:  DefaultCurrencyCode,
		Timezone:      DefaultTimezone,
		Dimensions:    append([]string(nil), DefaultDimensions...),
		Metrics:       append([]string(nil), DefaultMetrics...),
		SortDimension: DefaultSortDimension,
		SortOrder:     DefaultSortOrder,
		APIEndpoint:   DefaultAPIEndpoint,
		LogLevel:      DefaultLogLevel,
		LogFormat:     DefaultLogFormat,
	}
}

// FromEnv builds a Config from the process environment and validates it.
func FromEnv() (*Config, error) {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	get := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	get("GCP_PROJECT", &cfg.ProjectID)
	get("GOOGLE_CLOUD_PROJECT", &cfg.ProjectID)
	get("TARGET_TABLE", &cfg.TargetTable)
	get("CURRENCY_CODE", &cfg.CurrencyCode)
	get("REPORT_TIMEZONE", &cfg.Timezone)
	get("ADMOB_API_ENDPOINT", &cfg.APIEndpoint)
	get("ADMOB_CREDENTIALS_FILE", &cfg.CredentialsFile)
	get("ADMOB_CREDENTIALS_SECRET", &cfg.CredentialsSecret)
	get("ARCHIVE_BUCKET", &cfg.ArchiveBucket)
	get("STAGING_BUCKET", &cfg.StagingBucket)
	get("LOG_LEVEL", &cfg.LogLevel)
	get("LOG_FORMAT", &cfg.LogFormat)

	if v, ok := lookup("REPORT_DIMENSIONS"); ok && strings.TrimSpace(v) != "" {
		cfg.Dimensions = SplitList(v)
	}
	if v, ok := lookup("REPORT_METRICS"); ok && strings.TrimSpace(v) != "" {
		cfg.Metrics = SplitList(v)
	}
	if v, ok := lookup("REPORT_SORT"); ok && strings.TrimSpace(v) != "" {
		dim, order, err := ParseSort(v)
		if err != nil {
			return nil, err
		}
		cfg.SortDimension, cfg.SortOrder = dim, order
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every setting the pipeline depends on.
func (c *Config) Validate() error {
	if !currencyPattern.MatchString(c.CurrencyCode) {
		return fmt.Errorf("%w: currency code %q is not an ISO 4217 code", ErrInvalidConfig, c.CurrencyCode)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if len(c.Dimensions) == 0 {
		return fmt.Errorf("%w: at least one dimension is required", ErrInvalidConfig)
	}
	if len(c.Metrics) == 0 {
		return fmt.Errorf("%w: at least one metric is required", ErrInvalidConfig)
	}
	if c.SortDimension == "" {
		return fmt.Errorf("%w: sort dimension is empty", ErrInvalidConfig)
	}
	if c.SortOrder != "ASCENDING" && c.SortOrder != "DESCENDING" {
		return fmt.Errorf("%w: sort order %q must be ASCENDING or DESCENDING", ErrInvalidConfig, c.SortOrder)
	}
	if c.APIEndpoint == "" {
		return fmt.Errorf("%w: API endpoint is empty", ErrInvalidConfig)
	}
	if _, err := c.Table(); err != nil {
		return err
	}
	return nil
}

// Location loads the report timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Timezone, err)
	}
	return loc, nil
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}

// ParseSort parses "DIMENSION:ORDER". The order defaults to DESCENDING.
func ParseSort(s string) (string, string, error) {
	dim, order, found := strings.Cut(strings.TrimSpace(s), ":")
	dim = strings.ToUpper(strings.TrimSpace(dim))
	order = strings.ToUpper(strings.TrimSpace(order))
	if !found || order == "" {
		order = DefaultSortOrder
	}
	if dim == "" {
		return "", "", fmt.Errorf("%w: sort %q has no dimension", ErrInvalidConfig, s)
	}
	return dim, order, nil
}
