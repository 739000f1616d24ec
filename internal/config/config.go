package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config struct is the top-level configuration structure.
type Config struct {
	Input      InputConfig       `mapstructure:"input"`
	Output     OutputConfig      `mapstructure:"output"`
	ECG        ECGConfig         `mapstructure:"ecg"`
	Trends     TrendsConfig      `mapstructure:"trends"`
	Server     ServerConfig      `mapstructure:"server"`
	Logging    LoggingConfig     `mapstructure:"logging"`
	Dashboards []DashboardConfig `mapstructure:"dashboards"`
}

// InputConfig points at the raw export directories.
type InputConfig struct {
	ECGDir    string `mapstructure:"ecg_dir"`
	HealthDir string `mapstructure:"health_dir"`
}

// OutputConfig holds where the generated artifacts go.
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// ECGConfig holds every tunable of the ECG pipeline.
type ECGConfig struct {
	SamplingRate        float64            `mapstructure:"sampling_rate"`
	LowCut              float64            `mapstructure:"low_cut"`
	HighCut             float64            `mapstructure:"high_cut"`
	FilterOrder         int                `mapstructure:"filter_order"`
	PeakThreshold       float64            `mapstructure:"peak_threshold"`
	MinRR               float64            `mapstructure:"min_rr"`
	MaxRR               float64            `mapstructure:"max_rr"`
	ExcludedLabels      []string           `mapstructure:"excluded_labels"`
	BaselineLabel       string             `mapstructure:"baseline_label"`
	MinBaselineRecords  int                `mapstructure:"min_baseline_records"`
	ThresholdMultiplier float64            `mapstructure:"threshold_multiplier"`
	Fallback            FallbackThresholds `mapstructure:"fallback"`
	HeaderLines         int                `mapstructure:"header_lines"`
	Timezone            string             `mapstructure:"timezone"`
	Enrich              bool               `mapstructure:"enrich"`
	Workers             int                `mapstructure:"workers"`
}

// FallbackThresholds are used when the baseline cohort is too small.
type FallbackThresholds struct {
	RMSSD float64 `mapstructure:"rmssd"`
	PNN50 float64 `mapstructure:"pnn50"`
	SDNN  float64 `mapstructure:"sdnn"`
}

// TrendsConfig configures the per-metric rolling z-score exports.
type TrendsConfig struct {
	Catalog    string `mapstructure:"catalog"`
	Window     int    `mapstructure:"window"`
	MinPeriods int    `mapstructure:"min_periods"`
	// Timezone is where sample timestamps are bucketed into days.
	Timezone string `mapstructure:"timezone"`
}

// ServerConfig holds server-related settings.
type ServerConfig struct {
	Port      string `mapstructure:"port"`
	RateLimit int    `mapstructure:"rate_limit"`
}

// LoggingConfig holds settings for the logger.
type LoggingConfig struct {
	Directory  string `mapstructure:"directory"`
	Level      string `mapstructure:"level"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// DashboardConfig is an externally hosted dashboard the presentation layer embeds.
type DashboardConfig struct {
	Name string `mapstructure:"name" json:"name"`
	URL  string `mapstructure:"url" json:"url"`
}

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"ecg-dir":       "input.ecg_dir",
	"health-dir":    "input.health_dir",
	"out":           "output.dir",
	"catalog":       "trends.catalog",
	"sampling-rate": "ecg.sampling_rate",
	"workers":       "ecg.workers",
	"timezone":      "ecg.timezone",
	"no-enrich":     "ecg.no_enrich",
	"port":          "server.port",
	"log-level":     "logging.level",
}

// setDefaults sets the default values for the configuration.
func setDefaults(v *viper.Viper) {
	// Input / output defaults
	v.SetDefault("input.ecg_dir", "apple_health_export/electrocardiograms")
	v.SetDefault("input.health_dir", "apple_health_export/cleaned")
	v.SetDefault("output.dir", "exports")

	// ECG pipeline defaults
	v.SetDefault("ecg.sampling_rate", 512.0)
	v.SetDefault("ecg.low_cut", 0.5)
	v.SetDefault("ecg.high_cut", 50.0)
	v.SetDefault("ecg.filter_order", 5)
	v.SetDefault("ecg.peak_threshold", 0.5)
	v.SetDefault("ecg.min_rr", 300.0)
	v.SetDefault("ecg.max_rr", 2000.0)
	v.SetDefault("ecg.excluded_labels", []string{"Poor Recording"})
	v.SetDefault("ecg.baseline_label", "Sinus Rhythm")
	v.SetDefault("ecg.min_baseline_records", 5)
	v.SetDefault("ecg.threshold_multiplier", 2.0)
	v.SetDefault("ecg.fallback.rmssd", 150.0)
	v.SetDefault("ecg.fallback.pnn50", 70.0)
	v.SetDefault("ecg.fallback.sdnn", 100.0)
	v.SetDefault("ecg.header_lines", 13)
	v.SetDefault("ecg.timezone", "America/Chicago")
	v.SetDefault("ecg.enrich", true)
	v.SetDefault("ecg.no_enrich", false)
	v.SetDefault("ecg.workers", runtime.NumCPU())

	// Trend export defaults
	v.SetDefault("trends.catalog", "config/metrics.yaml")
	v.SetDefault("trends.window", 7)
	v.SetDefault("trends.min_periods", 1)
	v.SetDefault("trends.timezone", "UTC")

	// Server defaults
	v.SetDefault("server.port", "5050")
	v.SetDefault("server.rate_limit", 5) // reruns per minute

	// Logging defaults
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.max_size", 10)   // 10 MB
	v.SetDefault("logging.max_backups", 3) // Keep 3 backups
	v.SetDefault("logging.max_age", 7)     // 7 days
	v.SetDefault("logging.compress", true) // Compress old logs

	v.SetDefault("dashboards", []map[string]string{
		{"name": "Cardiovascular Health", "url": "https://public.tableau.com/views/Cardinovascularhealthdashboard/Dashboard1?:embed=y&:display_count=yes&publish=yes"},
		{"name": "Sleep, Activity & Lifestyle", "url": "https://public.tableau.com/views/SleepActivityandLifestyleDashboard/Dashboard1?:embed=y&:display_count=yes&publish=yes"},
		{"name": "Multi-Metric Anomaly Detection", "url": "https://public.tableau.com/views/Multi-metricanomalydetectionsystem/Dashboard1?:embed=y&:display_count=yes&publish=yes"},
	})
}

// Flags returns the command-line flags understood by Load.
func Flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "path to a config file (default: <root>/config/config.yaml)")
	fs.String("ecg-dir", "", "directory of ECG export CSV files")
	fs.String("health-dir", "", "directory of per-metric health export CSV files")
	fs.String("out", "", "output directory")
	fs.String("catalog", "", "metric catalog YAML")
	fs.Float64("sampling-rate", 0, "ECG sampling rate in Hz")
	fs.Int("workers", 0, "number of records processed concurrently")
	fs.String("timezone", "", "display timezone for recording dates")
	fs.Bool("no-enrich", false, "skip the optional time-domain HRV enrichment")
	fs.String("port", "", "API port for the serve command")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	return fs
}

// Load builds the configuration from defaults, the optional config file, a
// .env file, the environment and finally the given flags.
func Load(projectRoot string, flags *pflag.FlagSet) (*Config, *viper.Viper, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// .env is optional; a missing file is not an error.
	if err := godotenv.Load(filepath.Join(projectRoot, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("error reading .env file: %w", err)
	}

	// --- File Configuration ---
	if file := flagString(flags, "config"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(filepath.Join(projectRoot, "config"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// --- Environment Variable Binding ---
	v.SetEnvPrefix("PULSE") // e.g., PULSE_ECG_SAMPLING_RATE
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// It's okay if the file doesn't exist; defaults and env vars will be used.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, nil, fmt.Errorf("binding flag %s: %w", name, err)
			}
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

// Watch reloads the configuration when the config file changes and hands the
// new value to onChange. Only settings read after the change are affected.
func Watch(v *viper.Viper, log *zap.Logger, onChange func(*Config)) {
	if v.ConfigFileUsed() == "" {
		log.Debug("No config file in use, skipping config watch")
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		log.Info("Configuration file changed, reloading.", zap.String("file", e.Name))
		cfg, err := decode(v)
		if err != nil {
			log.Error("Error reloading configuration", zap.Error(err))
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if v.GetBool("ecg.no_enrich") {
		cfg.ECG.Enrich = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	e := c.ECG
	switch {
	case e.SamplingRate <= 0:
		return fmt.Errorf("ecg.sampling_rate must be positive, got %v", e.SamplingRate)
	case e.MinRR < 0 || e.MaxRR <= e.MinRR:
		return fmt.Errorf("ecg.min_rr/max_rr must satisfy 0 <= min < max, got %v/%v", e.MinRR, e.MaxRR)
	case e.HeaderLines < 4:
		return fmt.Errorf("ecg.header_lines must be at least 4, got %d", e.HeaderLines)
	case e.MinBaselineRecords < 2:
		return fmt.Errorf("ecg.min_baseline_records must be at least 2, got %d", e.MinBaselineRecords)
	case c.Trends.Window < 1 || c.Trends.MinPeriods < 1:
		return fmt.Errorf("trends.window and trends.min_periods must be positive")
	}
	return nil
}

func flagString(flags *pflag.FlagSet, name string) string {
	if flags == nil {
		return ""
	}
	s, err := flags.GetString(name)
	if err != nil {
		return ""
	}
	return s
}

// Default returns the built-in configuration without reading files or the
// environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := decode(v)
	if err != nil {
		panic("invalid default configuration: " + err.Error())
	}
	return cfg
}
