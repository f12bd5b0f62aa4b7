package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"audio-merger/internal/database"
	"audio-merger/internal/logging"
	"audio-merger/internal/mediatypes"
	"audio-merger/internal/merge"
	"audio-merger/internal/workers"
)

// Config holds all application configuration
type Config struct {
	UploadDir       string
	DatabaseDir     string
	StaticDir       string
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	LogStaticFiles  bool
	LogHealthChecks bool
	LogLevel        string

	MaxFileSize       int64
	AllowedExtensions []string

	FFmpegPath       string
	FFprobePath      string
	ProbeTimeout     time.Duration
	NormalizeTimeout time.Duration
	ConcatTimeout    time.Duration
	MergeWorkers     int
	DefaultBitrate   string

	SessionTTL      time.Duration
	CleanupInterval time.Duration

	// Derived paths
	DatabasePath string
	ConfigFile   string
}

// fileConfig is the optional configuration file. Empty fields keep the
// defaults.
type fileConfig struct {
	UploadDir         string   `yaml:"upload_dir" toml:"upload_dir"`
	DatabaseDir       string   `yaml:"database_dir" toml:"database_dir"`
	StaticDir         string   `yaml:"static_dir" toml:"static_dir"`
	Port              string   `yaml:"port" toml:"port"`
	MetricsPort       string   `yaml:"metrics_port" toml:"metrics_port"`
	MetricsEnabled    *bool    `yaml:"metrics_enabled" toml:"metrics_enabled"`
	LogStaticFiles    *bool    `yaml:"log_static_files" toml:"log_static_files"`
	LogHealthChecks   *bool    `yaml:"log_health_checks" toml:"log_health_checks"`
	LogLevel          string   `yaml:"log_level" toml:"log_level"`
	MaxFileSize       string   `yaml:"max_file_size" toml:"max_file_size"`
	AllowedExtensions []string `yaml:"allowed_extensions" toml:"allowed_extensions"`
	FFmpegPath        string   `yaml:"ffmpeg_path" toml:"ffmpeg_path"`
	FFprobePath       string   `yaml:"ffprobe_path" toml:"ffprobe_path"`
	ProbeTimeout      string   `yaml:"probe_timeout" toml:"probe_timeout"`
	NormalizeTimeout  string   `yaml:"normalize_timeout" toml:"normalize_timeout"`
	ConcatTimeout     string   `yaml:"concat_timeout" toml:"concat_timeout"`
	MergeWorkers      int      `yaml:"merge_workers" toml:"merge_workers"`
	DefaultBitrate    string   `yaml:"default_bitrate" toml:"default_bitrate"`
	SessionTTL        string   `yaml:"session_ttl" toml:"session_ttl"`
	CleanupInterval   string   `yaml:"cleanup_interval" toml:"cleanup_interval"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		UploadDir:         "./uploads",
		DatabaseDir:       "./data",
		StaticDir:         "./static",
		Port:              "5000",
		MetricsPort:       "9090",
		MetricsEnabled:    true,
		LogStaticFiles:    false,
		LogHealthChecks:   true,
		LogLevel:          logging.GetLevel().String(),
		MaxFileSize:       100 * 1000 * 1000,
		AllowedExtensions: []string{"mp3", "wav", "ogg", "m4a", "aac", "flac"},
		FFmpegPath:        "ffmpeg",
		FFprobePath:       "ffprobe",
		ProbeTimeout:      30 * time.Second,
		NormalizeTimeout:  5 * time.Minute,
		ConcatTimeout:     10 * time.Minute,
		MergeWorkers:      workers.ForCPU(4),
		DefaultBitrate:    merge.DefaultBitrate,
		SessionTTL:        24 * time.Hour,
		CleanupInterval:   time.Hour,
	}
}

// LoadConfig loads configuration from defaults, the optional CONFIG_FILE
// and environment variables, in that order, then prepares the directories.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	config, err := readConfig()
	if err != nil {
		return nil, err
	}
	if level, ok := logging.ParseLevel(config.LogLevel); ok {
		logging.SetLevel(level)
	}
	logConfig(config)

	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	if err := prepareDirectories(config); err != nil {
		return nil, err
	}
	return config, nil
}

// readConfig resolves the configuration without touching the filesystem
// beyond reading the config file.
func readConfig() (*Config, error) {
	config := DefaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFile(&config, path); err != nil {
			return nil, err
		}
		config.ConfigFile = path
	}
	applyEnv(&config)

	config.DatabasePath = filepath.Join(config.DatabaseDir, database.FileName)
	return &config, nil
}

func applyFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &fc)
	case ".yaml", ".yml", "":
		err = yaml.Unmarshal(data, &fc)
	default:
		return fmt.Errorf("unsupported config file type %q (use .yaml or .toml)", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&config.UploadDir, fc.UploadDir)
	setString(&config.DatabaseDir, fc.DatabaseDir)
	setString(&config.StaticDir, fc.StaticDir)
	setString(&config.Port, fc.Port)
	setString(&config.MetricsPort, fc.MetricsPort)
	setString(&config.LogLevel, fc.LogLevel)
	setString(&config.FFmpegPath, fc.FFmpegPath)
	setString(&config.FFprobePath, fc.FFprobePath)
	setString(&config.DefaultBitrate, fc.DefaultBitrate)
	setBool(&config.MetricsEnabled, fc.MetricsEnabled)
	setBool(&config.LogStaticFiles, fc.LogStaticFiles)
	setBool(&config.LogHealthChecks, fc.LogHealthChecks)
	if len(fc.AllowedExtensions) > 0 {
		config.AllowedExtensions = fc.AllowedExtensions
	}
	if fc.MergeWorkers > 0 {
		config.MergeWorkers = fc.MergeWorkers
	}

	if fc.MaxFileSize != "" {
		size, err := parseSize(fc.MaxFileSize)
		if err != nil {
			return fmt.Errorf("config file max_file_size: %w", err)
		}
		config.MaxFileSize = size
	}

	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"probe_timeout", fc.ProbeTimeout, &config.ProbeTimeout},
		{"normalize_timeout", fc.NormalizeTimeout, &config.NormalizeTimeout},
		{"concat_timeout", fc.ConcatTimeout, &config.ConcatTimeout},
		{"session_ttl", fc.SessionTTL, &config.SessionTTL},
		{"cleanup_interval", fc.CleanupInterval, &config.CleanupInterval},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("config file %s: %w", d.name, err)
		}
		*d.dst = parsed
	}
	return nil
}

func applyEnv(config *Config) {
	config.UploadDir = getEnv("UPLOAD_DIR", config.UploadDir)
	config.DatabaseDir = getEnv("DATABASE_DIR", config.DatabaseDir)
	config.StaticDir = getEnv("STATIC_DIR", config.StaticDir)
	config.Port = getEnv("PORT", config.Port)
	config.MetricsPort = getEnv("METRICS_PORT", config.MetricsPort)
	config.MetricsEnabled = getEnvBool("METRICS_ENABLED", config.MetricsEnabled)
	config.LogStaticFiles = getEnvBool("LOG_STATIC_FILES", config.LogStaticFiles)
	config.LogHealthChecks = getEnvBool("LOG_HEALTH_CHECKS", config.LogHealthChecks)
	config.LogLevel = getEnv("LOG_LEVEL", config.LogLevel)
	config.FFmpegPath = getEnv("FFMPEG_PATH", config.FFmpegPath)
	config.FFprobePath = getEnv("FFPROBE_PATH", config.FFprobePath)
	config.DefaultBitrate = getEnv("DEFAULT_BITRATE", config.DefaultBitrate)

	config.ProbeTimeout = getEnvDuration("PROBE_TIMEOUT", config.ProbeTimeout)
	config.NormalizeTimeout = getEnvDuration("NORMALIZE_TIMEOUT", config.NormalizeTimeout)
	config.ConcatTimeout = getEnvDuration("CONCAT_TIMEOUT", config.ConcatTimeout)
	config.SessionTTL = getEnvDuration("SESSION_TTL", config.SessionTTL)
	config.CleanupInterval = getEnvDuration("CLEANUP_INTERVAL", config.CleanupInterval)

	if value := os.Getenv(workers.EnvOverride); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			config.MergeWorkers = n
		} else {
			logging.Warn("Invalid %s: %q, using %d", workers.EnvOverride, value, config.MergeWorkers)
		}
	}

	if value := os.Getenv("MAX_FILE_SIZE"); value != "" {
		if size, err := parseSize(value); err == nil {
			config.MaxFileSize = size
		} else {
			logging.Warn("Invalid MAX_FILE_SIZE: %q, using %s", value, humanize.Bytes(uint64(config.MaxFileSize)))
		}
	}

	if value := os.Getenv("ALLOWED_EXTENSIONS"); value != "" {
		var exts []string
		for _, ext := range strings.Split(value, ",") {
			if ext = strings.TrimSpace(ext); ext != "" {
				exts = append(exts, ext)
			}
		}
		config.AllowedExtensions = exts
	}
}

// ValidateConfig rejects settings the server cannot run with.
func ValidateConfig(config *Config) error {
	var problems []string

	if config.MaxFileSize <= 0 {
		problems = append(problems, "MAX_FILE_SIZE must be positive")
	}
	if len(config.AllowedExtensions) == 0 {
		problems = append(problems, "ALLOWED_EXTENSIONS must not be empty")
	}
	for _, ext := range config.AllowedExtensions {
		if !mediatypes.IsAudioExtension(ext) {
			logging.Warn("ALLOWED_EXTENSIONS: %q is not a known audio type, ffmpeg may reject it", ext)
		}
	}
	timeouts := []struct {
		name  string
		value time.Duration
	}{
		{"PROBE_TIMEOUT", config.ProbeTimeout},
		{"NORMALIZE_TIMEOUT", config.NormalizeTimeout},
		{"CONCAT_TIMEOUT", config.ConcatTimeout},
		{"SESSION_TTL", config.SessionTTL},
		{"CLEANUP_INTERVAL", config.CleanupInterval},
	}
	for _, t := range timeouts {
		if t.value <= 0 {
			problems = append(problems, t.name+" must be positive")
		}
	}
	if config.MergeWorkers <= 0 {
		problems = append(problems, "MERGE_WORKERS must be positive")
	}
	if err := merge.ValidateBitrate(config.DefaultBitrate); err != nil {
		problems = append(problems, "DEFAULT_BITRATE: "+err.Error())
	}
	for _, port := range []struct{ name, value string }{{"PORT", config.Port}, {"METRICS_PORT", config.MetricsPort}} {
		if n, err := strconv.Atoi(port.value); err != nil || n <= 0 || n > 65535 {
			problems = append(problems, port.name+" must be a port number")
		}
	}
	if config.MetricsEnabled && config.Port == config.MetricsPort {
		problems = append(problems, "PORT and METRICS_PORT must differ")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func prepareDirectories(config *Config) error {
	var err error
	for _, dir := range []*string{&config.UploadDir, &config.DatabaseDir, &config.StaticDir} {
		if *dir, err = filepath.Abs(*dir); err != nil {
			return fmt.Errorf("failed to resolve directory path: %w", err)
		}
	}
	config.DatabasePath = filepath.Join(config.DatabaseDir, database.FileName)

	logging.Info("  Upload directory (absolute):   %s", config.UploadDir)
	logging.Info("  Database directory (absolute): %s", config.DatabaseDir)
	logging.Info("  Static directory (absolute):   %s", config.StaticDir)

	if err := ensureDirectory(config.UploadDir, "upload"); err != nil {
		return fmt.Errorf("upload directory error: %w", err)
	}
	if err := testWriteAccess(config.UploadDir); err != nil {
		return fmt.Errorf("upload directory is not writable: %w", err)
	}
	logging.Info("  [OK] Upload directory is writable")

	if err := ensureDirectory(config.DatabaseDir, "database"); err != nil {
		return fmt.Errorf("database directory error: %w", err)
	}
	if err := testWriteAccess(config.DatabaseDir); err != nil {
		return fmt.Errorf("database directory is not writable (required for database): %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	if info, err := os.Stat(config.StaticDir); err != nil || !info.IsDir() {
		logging.Warn("  Static directory not found, the web interface will not be served")
	}
	return nil
}

func logConfig(config *Config) {
	if config.ConfigFile != "" {
		logging.Info("  CONFIG_FILE:         %s", config.ConfigFile)
	}
	logging.Info("  UPLOAD_DIR:          %s", config.UploadDir)
	logging.Info("  DATABASE_DIR:        %s", config.DatabaseDir)
	logging.Info("  STATIC_DIR:          %s", config.StaticDir)
	logging.Info("  PORT:                %s", config.Port)
	logging.Info("  METRICS_PORT:        %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:     %v", config.MetricsEnabled)
	logging.Info("  MAX_FILE_SIZE:       %s", humanize.Bytes(uint64(config.MaxFileSize)))
	logging.Info("  ALLOWED_EXTENSIONS:  %s", strings.Join(config.AllowedExtensions, ","))
	logging.Info("  FFMPEG_PATH:         %s", config.FFmpegPath)
	logging.Info("  FFPROBE_PATH:        %s", config.FFprobePath)
	logging.Info("  PROBE_TIMEOUT:       %v", config.ProbeTimeout)
	logging.Info("  NORMALIZE_TIMEOUT:   %v", config.NormalizeTimeout)
	logging.Info("  CONCAT_TIMEOUT:      %v", config.ConcatTimeout)
	logging.Info("  MERGE_WORKERS:       %d", config.MergeWorkers)
	logging.Info("  DEFAULT_BITRATE:     %s", config.DefaultBitrate)
	logging.Info("  SESSION_TTL:         %v", config.SessionTTL)
	logging.Info("  CLEANUP_INTERVAL:    %v", config.CleanupInterval)
	logging.Info("  LOG_STATIC_FILES:    %v", config.LogStaticFiles)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", config.LogHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())
}

// parseSize accepts humanized sizes such as "100MB" or "512 KiB" as well
// as plain byte counts.
func parseSize(value string) (int64, error) {
	n, err := humanize.ParseBytes(value)
	if err != nil {
		return 0, err
	}
	if n == 0 || n > 1<<40 {
		return 0, fmt.Errorf("size %q out of range", value)
	}
	return int64(n), nil
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func setBool(dst *bool, value *bool) {
	if value != nil {
		*dst = *value
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		logging.Warn("Invalid duration for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
