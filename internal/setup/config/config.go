package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
	ErrInvalidConfig         = errors.New("invalid config")
)

// RepositoryVersion is the repository version tag for config file references.
const RepositoryVersion = "v0.1.0"

// Current version of the config file.
const (
	CurrentCommonVersion = 1
	CurrentBotVersion    = 1
)

// EnvPrefix is the prefix of environment variables that override file values.
// LUNALOG_BOT__TRACKING__TRACK_VOICE=false sets bot.tracking.track_voice.
const EnvPrefix = "LUNALOG_"

// Supported storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config represents the entire application configuration.
type Config struct {
	Common CommonConfig
	Bot    BotConfig
	Vibes  VibesConfig
}

// CommonConfig contains configuration shared between the bot and the db tool.
type CommonConfig struct {
	// Version of the common config.
	Version   int       `koanf:"version"`
	Debug     Debug     `koanf:"debug"`
	Storage   Storage   `koanf:"storage"`
	Redis     Redis     `koanf:"redis"`
	Telemetry Telemetry `koanf:"telemetry"`
}

// BotConfig contains Discord bot specific configuration.
type BotConfig struct {
	// Version of the bot config.
	Version int `koanf:"version"`
	// Request timeout in milliseconds.
	RequestTimeout   int              `koanf:"request_timeout"`
	Discord          Discord          `koanf:"discord"`
	Tracking         Tracking         `koanf:"tracking"`
	Moments          Moments          `koanf:"moments"`
	PersonalChannels PersonalChannels `koanf:"personal_channels"`
	Scoped           Scoped           `koanf:"scoped"`
	Leaderboard      Leaderboard      `koanf:"leaderboard"`
	Recap            Recap            `koanf:"recap"`
	Dispatch         Dispatch         `koanf:"dispatch"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Maximum log files to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep"`
	// Maximum lines per log file.
	MaxLogLines int `koanf:"max_log_lines"`
}

// Storage selects and configures the database backend.
type Storage struct {
	// Driver is either "postgres" or "sqlite".
	Driver string `koanf:"driver"`
	// Path of the SQLite database file.
	SQLitePath string     `koanf:"sqlite_path"`
	PostgreSQL PostgreSQL `koanf:"postgresql"`
}

// Name returns the database name used in traces.
func (s *Storage) Name() string {
	if s.Driver == DriverSQLite {
		return strings.TrimSuffix(filepath.Base(s.SQLitePath), filepath.Ext(s.SQLitePath))
	}
	return s.PostgreSQL.DBName
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	// Database hostname.
	Host string `koanf:"host"`
	// Database port.
	Port int `koanf:"port"`
	// Database username.
	User string `koanf:"user"`
	// Database password.
	Password string `koanf:"password"`
	// Database name.
	DBName string `koanf:"db_name"`
	// Maximum open connections.
	MaxOpenConns int `koanf:"max_open_conns"`
	// Maximum idle connections.
	MaxIdleConns int `koanf:"max_idle_conns"`
	// Connection lifetime in minutes.
	MaxLifetime int `koanf:"max_lifetime"`
	// Idle timeout in minutes.
	MaxIdleTime int `koanf:"max_idle_time"`
}

// Redis contains Redis connection configuration.
type Redis struct {
	// Enable the Redis result cache.
	Enabled bool `koanf:"enabled"`
	// Redis hostname.
	Host string `koanf:"host"`
	// Redis port.
	Port int `koanf:"port"`
	// Redis username.
	Username string `koanf:"username"`
	// Redis password.
	Password string `koanf:"password"`
}

// Telemetry contains OpenTelemetry export configuration.
type Telemetry struct {
	// Enable tracing export through uptrace.
	Enabled bool `koanf:"enabled"`
	// Uptrace DSN.
	DSN string `koanf:"dsn"`
	// Service name reported on spans.
	ServiceName string `koanf:"service_name"`
}

// Discord contains the bot credentials and the tracked guild.
type Discord struct {
	Token   string `koanf:"token"`
	GuildID uint64 `koanf:"guild_id"`
}

// Tracking toggles each kind of activity tracking.
type Tracking struct {
	TrackMessages     bool `koanf:"track_messages"`
	TrackVoice        bool `koanf:"track_voice"`
	TrackInteractions bool `koanf:"track_interactions"`
}

// Moments contains moment thresholds and caps.
type Moments struct {
	// Minimum session length for a FIRST_VC moment.
	MinFirstVCMinutes int `koanf:"min_first_vc_minutes"`
	// Maximum notes per user.
	MaxPerUser int `koanf:"max_per_user"`
	// Number of partners shown as "most seen with".
	MaxMostSeenWith int `koanf:"max_most_seen_with"`
}

// PersonalChannels controls exclusion of a creator's activity in their own channels.
type PersonalChannels struct {
	ExcludeCreatorActivity      bool `koanf:"exclude_creator_activity"`
	UseAuditLogs                bool `koanf:"use_audit_logs"`
	UseManageOverwriteHeuristic bool `koanf:"use_manage_overwrite_heuristic"`
	// Audit log lookup timeout in milliseconds.
	LookupTimeout int `koanf:"lookup_timeout"`
}

// Scoped lists the channel categories counted in the scoped activity table.
type Scoped struct {
	MessageCategoryIDs []uint64 `koanf:"message_category_ids"`
	VoiceCategoryIDs   []uint64 `koanf:"voice_category_ids"`
}

// Leaderboard contains board size limits and caching.
type Leaderboard struct {
	DefaultSize int `koanf:"default_size"`
	MinSize     int `koanf:"min_size"`
	MaxSize     int `koanf:"max_size"`
	// Result cache lifetime in seconds.
	CacheTTL int `koanf:"cache_ttl"`
}

// Recap contains weekly recap configuration.
type Recap struct {
	Enabled        bool   `koanf:"enabled"`
	ChannelID      uint64 `koanf:"channel_id"`
	TopN           int    `koanf:"top_n"`
	IncludeMoments bool   `koanf:"include_moments"`
	Highlights     int    `koanf:"highlights"`
}

// Dispatch contains per-user event queue configuration.
type Dispatch struct {
	// Idle worker lifetime in milliseconds.
	IdleTimeout int `koanf:"idle_timeout"`
	// Buffered events per user queue.
	QueueSize int `koanf:"queue_size"`
}

// VibesConfig lists the vibe categories in display and tie-break order.
type VibesConfig struct {
	Categories []VibeCategory `koanf:"categories"`
}

// VibeCategory is one vibe with the signals that infer it.
type VibeCategory struct {
	Name       string   `koanf:"name"`
	ChannelIDs []uint64 `koanf:"channel_ids"`
	Keywords   []string `koanf:"keywords"`
}

// Names returns the category names in configured order.
func (v *VibesConfig) Names() []string {
	names := make([]string, 0, len(v.Categories))
	for _, category := range v.Categories {
		names = append(names, category.Name)
	}
	return names
}

// Default returns a config with every default applied, suitable as the base
// that config files are decoded onto.
func Default() *Config {
	cfg := &Config{
		Bot: BotConfig{
			Tracking: Tracking{
				TrackMessages:     true,
				TrackVoice:        true,
				TrackInteractions: true,
			},
			PersonalChannels: PersonalChannels{
				ExcludeCreatorActivity:      true,
				UseAuditLogs:                true,
				UseManageOverwriteHeuristic: true,
			},
			Recap: Recap{
				IncludeMoments: true,
			},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every unset numeric or list value with its default.
func (c *Config) ApplyDefaults() {
	setDefault(&c.Common.Debug.LogLevel, "info")
	setDefault(&c.Common.Debug.MaxLogsToKeep, 10)
	setDefault(&c.Common.Debug.MaxLogLines, 100000)

	setDefault(&c.Common.Storage.Driver, DriverSQLite)
	setDefault(&c.Common.Storage.SQLitePath, "lunalog.db")
	setDefault(&c.Common.Storage.PostgreSQL.Port, 5432)
	setDefault(&c.Common.Storage.PostgreSQL.MaxOpenConns, 10)
	setDefault(&c.Common.Storage.PostgreSQL.MaxIdleConns, 5)
	setDefault(&c.Common.Storage.PostgreSQL.MaxLifetime, 30)
	setDefault(&c.Common.Storage.PostgreSQL.MaxIdleTime, 10)

	setDefault(&c.Common.Redis.Host, "localhost")
	setDefault(&c.Common.Redis.Port, 6379)
	setDefault(&c.Common.Telemetry.ServiceName, "lunalog")

	setDefault(&c.Bot.RequestTimeout, 5000)
	setDefault(&c.Bot.Moments.MinFirstVCMinutes, 5)
	setDefault(&c.Bot.Moments.MaxPerUser, 50)
	setDefault(&c.Bot.Moments.MaxMostSeenWith, 3)
	setDefault(&c.Bot.PersonalChannels.LookupTimeout, 3000)
	setDefault(&c.Bot.Leaderboard.DefaultSize, 10)
	setDefault(&c.Bot.Leaderboard.MinSize, 3)
	setDefault(&c.Bot.Leaderboard.MaxSize, 25)
	setDefault(&c.Bot.Leaderboard.CacheTTL, 60)
	setDefault(&c.Bot.Recap.TopN, 10)
	setDefault(&c.Bot.Recap.Highlights, 2)
	setDefault(&c.Bot.Dispatch.IdleTimeout, 60000)
	setDefault(&c.Bot.Dispatch.QueueSize, 256)

	if len(c.Vibes.Categories) == 0 {
		for _, name := range []string{"chat", "game", "movie", "music"} {
			c.Vibes.Categories = append(c.Vibes.Categories, VibeCategory{Name: name})
		}
	}
}

// Validate checks values that have no sensible fallback.
func (c *Config) Validate() error {
	switch c.Common.Storage.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, c.Common.Storage.Driver)
	}

	lb := c.Bot.Leaderboard
	if lb.MinSize > lb.MaxSize || lb.DefaultSize < lb.MinSize || lb.DefaultSize > lb.MaxSize {
		return fmt.Errorf("%w: leaderboard sizes must satisfy min <= default <= max", ErrInvalidConfig)
	}

	seen := make(map[string]struct{}, len(c.Vibes.Categories))
	for _, category := range c.Vibes.Categories {
		name := strings.TrimSpace(category.Name)
		if name == "" {
			return fmt.Errorf("%w: vibe category without a name", ErrInvalidConfig)
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("%w: duplicate vibe category %q", ErrInvalidConfig, name)
		}
		seen[name] = struct{}{}
	}

	return nil
}

// LoadConfig loads the configuration from the first config path holding each file.
// Returns the config along with the used config directory.
func LoadConfig() (*Config, string, error) {
	// Get user's home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	// List search paths
	configPaths := []string{
		".lunalog",
		homeDir + "/.lunalog/config",
		"/etc/lunalog/config",
		"/app/config",
		"config",
		".",
	}

	return LoadFrom(configPaths)
}

// LoadFrom loads the configuration from the given search paths.
func LoadFrom(configPaths []string) (*Config, string, error) {
	k := koanf.New(".")

	// Load required config files
	var usedConfigPath string

	for _, configName := range []string{"common", "bot"} {
		path, ok := loadFirst(k, configPaths, configName)
		if !ok {
			return nil, "", fmt.Errorf("%w: %s.toml", ErrConfigFileNotFound, configName)
		}

		if usedConfigPath == "" {
			usedConfigPath = path
		}
	}

	// Vibe categories are optional
	loadFirst(k, configPaths, "vibes")

	// Environment overrides
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load environment overrides: %w", err)
	}

	config := Default()
	config.Vibes.Categories = nil

	if err := k.Unmarshal("", config); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Check versions for each config file
	if err := checkConfigVersion("common", config.Common.Version, CurrentCommonVersion); err != nil {
		return nil, "", err
	}

	if err := checkConfigVersion("bot", config.Bot.Version, CurrentBotVersion); err != nil {
		return nil, "", err
	}

	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, "", err
	}

	return config, usedConfigPath, nil
}

// loadFirst loads name.toml from the first path that has it.
func loadFirst(k *koanf.Koanf, configPaths []string, name string) (string, bool) {
	for _, path := range configPaths {
		configPath := fmt.Sprintf("%s/%s.toml", path, name)
		if err := k.Load(file.Provider(configPath), toml.Parser()); err == nil {
			return path, true
		}
	}
	return "", false
}

// envKey maps LUNALOG_BOT__TRACKING__TRACK_VOICE to bot.tracking.track_voice.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(name string, current, expected int) error {
	if current == 0 {
		return fmt.Errorf("%w: %s.toml", ErrConfigVersionMissing, name)
	}

	if current != expected {
		return fmt.Errorf(
			"%w: %s.toml (got: %d, expected: %d)\n"+
				"Please update your config file from: https://github.com/lunalog/lunalog/tree/%s/config/%s.toml",
			ErrConfigVersionMismatch,
			name,
			current,
			expected,
			RepositoryVersion,
			name,
		)
	}

	return nil
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}
