package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sethvargo/go-password/password"
)

// Settings represents the application configuration persisted to disk.
type Settings struct {
	Server   ServerSettings   `json:"server"`
	Metadata MetadataSettings `json:"metadata"`
	Database DatabaseSettings `json:"database"`
	Sync     SyncSettings     `json:"sync"`
	Auth     AuthSettings     `json:"auth"`
	Log      LogConfig        `json:"log"`
}

type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type MetadataSettings struct {
	OMDBAPIKey    string `json:"omdbApiKey"`
	TMDBAPIKey    string `json:"tmdbApiKey"`
	YouTubeAPIKey string `json:"youtubeApiKey"`
	CacheTTLHours int    `json:"cacheTtlHours"`
}

// DatabaseSettings defines where durable state lives on disk.
type DatabaseSettings struct {
	FavoritesPath string `json:"favoritesPath"`
	CachePath     string `json:"cachePath"`
	UsersDir      string `json:"usersDir"`
}

// SyncSettings controls the background reconciliation loop.
type SyncSettings struct {
	ReplayIntervalMinutes int `json:"replayIntervalMinutes"`
}

// AuthSettings defines token signing configuration. JWTSecret is generated
// on first load when empty.
type AuthSettings struct {
	JWTSecret string `json:"jwtSecret"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	File       string `json:"file"`
	Level      string `json:"level"`
	MaxSize    int    `json:"maxSize"`
	MaxAge     int    `json:"maxAge"`
	MaxBackups int    `json:"maxBackups"`
	Compress   bool   `json:"compress"`
}

// DefaultSettings returns sane defaults for a fresh install.
func DefaultSettings() Settings {
	return Settings{
		Server:   ServerSettings{Host: "0.0.0.0", Port: 7777},
		Metadata: MetadataSettings{OMDBAPIKey: "", TMDBAPIKey: "", YouTubeAPIKey: "", CacheTTLHours: 24},
		Database: DatabaseSettings{
			FavoritesPath: "data/favorites.db",
			CachePath:     "data/localcache.db",
			UsersDir:      "data",
		},
		Sync: SyncSettings{ReplayIntervalMinutes: 5},
		Auth: AuthSettings{JWTSecret: ""},
		Log: LogConfig{
			File:       "data/logs/backend.log",
			Level:      "info",
			MaxSize:    50,   // 50 MB per file
			MaxBackups: 3,    // keep 3 old files
			MaxAge:     7,    // 7 days
			Compress:   true, // compress old files
		},
	}
}

// Manager loads and persists settings to a JSON file.
type Manager struct {
	path string
}

func NewManager(configPath string) *Manager {
	return &Manager{path: configPath}
}

// EnsureDir ensures parent directory exists.
func (m *Manager) EnsureDir() error {
	dir := filepath.Dir(m.path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Load reads settings.json from disk or creates defaults if missing.
// Missing fields in an existing file are backfilled with defaults, and a
// JWT secret is generated and persisted when none is configured.
func (m *Manager) Load() (Settings, error) {
	if m.path == "" {
		return Settings{}, errors.New("config path not set")
	}
	if _, err := os.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
		defaults := DefaultSettings()
		secret, err := generateSecret()
		if err != nil {
			return Settings{}, err
		}
		defaults.Auth.JWTSecret = secret
		if err := m.Save(defaults); err != nil {
			return Settings{}, err
		}
		return defaults, nil
	}
	f, err := os.Open(m.path)
	if err != nil {
		return Settings{}, err
	}
	defer f.Close()

	var s Settings
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return Settings{}, err
	}

	// Backfill defaults for settings introduced after the config was written
	if strings.TrimSpace(s.Server.Host) == "" {
		s.Server.Host = "0.0.0.0"
	}
	if s.Server.Port == 0 {
		s.Server.Port = 7777
	}
	if s.Metadata.CacheTTLHours == 0 {
		s.Metadata.CacheTTLHours = 24
	}
	if strings.TrimSpace(s.Database.FavoritesPath) == "" {
		s.Database.FavoritesPath = "data/favorites.db"
	}
	if strings.TrimSpace(s.Database.CachePath) == "" {
		s.Database.CachePath = "data/localcache.db"
	}
	if strings.TrimSpace(s.Database.UsersDir) == "" {
		s.Database.UsersDir = "data"
	}
	if s.Sync.ReplayIntervalMinutes == 0 {
		s.Sync.ReplayIntervalMinutes = 5
	}
	if strings.TrimSpace(s.Log.File) == "" {
		s.Log.File = "data/logs/backend.log"
	}
	if s.Log.MaxSize == 0 {
		s.Log.MaxSize = 50
	}
	if s.Log.MaxBackups == 0 {
		s.Log.MaxBackups = 3
	}
	if s.Log.MaxAge == 0 {
		s.Log.MaxAge = 7
	}

	if strings.TrimSpace(s.Auth.JWTSecret) == "" {
		secret, err := generateSecret()
		if err != nil {
			return Settings{}, err
		}
		s.Auth.JWTSecret = secret
		if err := m.Save(s); err != nil {
			return Settings{}, err
		}
	}

	return s, nil
}

// Save writes the provided settings to disk atomically.
func (m *Manager) Save(s Settings) error {
	if m.path == "" {
		return errors.New("config path not set")
	}
	if err := m.EnsureDir(); err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, m.path)
}

func generateSecret() (string, error) {
	secret, err := password.Generate(64, 16, 0, false, true)
	if err != nil {
		return "", err
	}
	return secret, nil
}
