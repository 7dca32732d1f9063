package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"
	defaultPort       = 3001
	defaultEnv        = "production"

	StorageFile     = "file"
	StorageDatabase = "database"

	ProviderCloudinary = "cloudinary"
	ProviderS3         = "s3"
	ProviderLocal      = "local"
)

// AppConfig holds runtime startup configuration. Values come from defaults, then the YAML
// file, then the environment.
type AppConfig struct {
	Port           int             `yaml:"port"            env:"PORT"`
	Env            string          `yaml:"env"             env:"APP_ENV"`
	AllowedOrigins []string        `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" env-separator:","`
	Admin          AdminConfig     `yaml:"admin"`
	Session        SessionConfig   `yaml:"session"`
	Storage        StorageConfig   `yaml:"storage"`
	Database       DatabaseConfig  `yaml:"database"`
	Redis          RedisConfig     `yaml:"redis"`
	Media          MediaConfig     `yaml:"media"`
	Upload         UploadConfig    `yaml:"upload"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
	Backup         BackupConfig    `yaml:"backup"`
	Paths          PathsConfig     `yaml:"paths"`
}

type AdminConfig struct {
	Username string `yaml:"username" env:"ADMIN_USERNAME"`
	Password string `yaml:"password" env:"ADMIN_PASSWORD"`
	// PasswordHash is a bcrypt hash; it takes precedence over Password.
	PasswordHash string `yaml:"password_hash" env:"ADMIN_PASSWORD_HASH"`
}

type SessionConfig struct {
	Secret       string        `yaml:"secret"        env:"SESSION_SECRET"`
	TTL          time.Duration `yaml:"ttl"           env:"SESSION_TTL"`
	CookieSecure bool          `yaml:"cookie_secure" env:"SESSION_COOKIE_SECURE"`
}

type StorageConfig struct {
	Mode string            `yaml:"mode" env:"STORAGE_MODE"`
	File FileStorageConfig `yaml:"file"`
}

type FileStorageConfig struct {
	Dir  string `yaml:"dir"  env:"DATA_DIR"`
	Lock bool   `yaml:"lock" env:"STORAGE_FILE_LOCK"`
}

type DatabaseConfig struct {
	// DSN is used as-is. postgres:// and sqlite:// prefixes select the dialect.
	DSN      string            `yaml:"dsn"      env:"DATABASE_URL"`
	Host     string            `yaml:"host"     env:"DB_HOST"`
	Port     int               `yaml:"port"     env:"DB_PORT"`
	User     string            `yaml:"user"     env:"DB_USER"`
	Password string            `yaml:"password" env:"DB_PASSWORD"`
	Name     string            `yaml:"name"     env:"DB_NAME"`
	Params   map[string]string `yaml:"params"`
}

type RedisConfig struct {
	URL string `yaml:"url" env:"REDIS_URL"`
	// CacheTTL caches anonymous GET responses; zero disables the cache.
	CacheTTL time.Duration `yaml:"cache_ttl" env:"REDIS_CACHE_TTL"`
	// IdempotenceTTL blocks repeated identical submissions; zero disables the check.
	IdempotenceTTL time.Duration `yaml:"idempotence_ttl" env:"REDIS_IDEMPOTENCE_TTL"`
}

type MediaConfig struct {
	Provider   string           `yaml:"provider" env:"MEDIA_PROVIDER"`
	Timeout    time.Duration    `yaml:"timeout"  env:"MEDIA_TIMEOUT"`
	Cloudinary CloudinaryConfig `yaml:"cloudinary"`
	S3         S3Config         `yaml:"s3"`
	Local      LocalConfig      `yaml:"local"`
	// LegacyDir holds the pending-gallery/ and gallery/ folders of files uploaded to disk
	// before a media host was used.
	LegacyDir string `yaml:"legacy_dir" env:"LEGACY_GALLERY_DIR"`
}

type CloudinaryConfig struct {
	CloudName    string `yaml:"cloud_name"    env:"CLOUDINARY_CLOUD_NAME"`
	APIKey       string `yaml:"api_key"       env:"CLOUDINARY_API_KEY"`
	APISecret    string `yaml:"api_secret"    env:"CLOUDINARY_API_SECRET"`
	BaseURL      string `yaml:"base_url"      env:"CLOUDINARY_BASE_URL"`
	Folder       string `yaml:"folder"        env:"CLOUDINARY_FOLDER"`
	StaticFolder string `yaml:"static_folder" env:"CLOUDINARY_STATIC_FOLDER"`
}

type S3Config struct {
	Bucket          string `yaml:"bucket"            env:"S3_BUCKET"`
	Region          string `yaml:"region"            env:"S3_REGION"`
	Endpoint        string `yaml:"endpoint"          env:"S3_ENDPOINT"`
	AccessKeyID     string `yaml:"access_key_id"     env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"S3_SECRET_ACCESS_KEY"`
	PublicBaseURL   string `yaml:"public_base_url"   env:"S3_PUBLIC_BASE_URL"`
	PathStyle       bool   `yaml:"path_style"        env:"S3_PATH_STYLE"`
	Prefix          string `yaml:"prefix"            env:"S3_PREFIX"`
}

type LocalConfig struct {
	Dir     string `yaml:"dir"      env:"UPLOAD_DIR"`
	BaseURL string `yaml:"base_url" env:"UPLOAD_BASE_URL"`
}

type UploadConfig struct {
	MaxGalleryBytes int64 `yaml:"max_gallery_bytes" env:"UPLOAD_MAX_GALLERY_BYTES"`
	MaxStaticBytes  int64 `yaml:"max_static_bytes"  env:"UPLOAD_MAX_STATIC_BYTES"`
}

type RateLimitConfig struct {
	Max    int64         `yaml:"max"    env:"RATE_LIMIT_MAX"`
	Window time.Duration `yaml:"window" env:"RATE_LIMIT_WINDOW"`
}

// BackupConfig schedules automatic backups. A zero Interval disables the schedule.
type BackupConfig struct {
	Interval time.Duration `yaml:"interval" env:"BACKUP_INTERVAL"`
	Keep     int           `yaml:"keep"     env:"BACKUP_KEEP"`
}

type PathsConfig struct {
	Logs    string `yaml:"logs"    env:"LOG_DIR"`
	Backups string `yaml:"backups" env:"BACKUP_DIR"`
}

// IsDevelopment reports whether the app runs in development mode.
func (c *AppConfig) IsDevelopment() bool { return c.Env == "development" }

// Load reads configPath (a missing default file is allowed), a .env file, and the
// environment, then validates the result.
func Load(configPath string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	path := strings.TrimSpace(configPath)
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}

	cfg := defaultAppConfig()
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decodeYAML(content, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %q: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	normalize(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeYAML(content []byte, cfg *AppConfig) error {
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		AllowedOrigins: []string{
			"https://www.ephraimjackman.com",
			"https://efraimmemorial-frontend.vercel.app",
			"http://localhost:3000",
		},
		Admin:   AdminConfig{Username: "admin"},
		Session: SessionConfig{TTL: time.Hour},
		Storage: StorageConfig{
			Mode: StorageFile,
			File: FileStorageConfig{Dir: ".", Lock: true},
		},
		Database: DatabaseConfig{Port: 3306},
		Redis:    RedisConfig{IdempotenceTTL: time.Minute},
		Media: MediaConfig{
			Provider: ProviderCloudinary,
			Timeout:  45 * time.Second,
			Cloudinary: CloudinaryConfig{
				BaseURL:      "https://api.cloudinary.com",
				Folder:       "efraim-gallery",
				StaticFolder: "efraim-static-gallery",
			},
			S3:        S3Config{Region: "us-east-1", Prefix: "efraim-gallery"},
			Local:     LocalConfig{Dir: "uploads", BaseURL: "/uploads"},
			LegacyDir: ".",
		},
		Upload: UploadConfig{
			MaxGalleryBytes: 5 << 20,
			MaxStaticBytes:  15 << 20,
		},
		RateLimit: RateLimitConfig{Max: 10, Window: time.Minute},
		Backup:    BackupConfig{Keep: 7},
	}
}

func normalize(cfg *AppConfig) {
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	if cfg.Env == "dev" {
		cfg.Env = "development"
	}
	cfg.AllowedOrigins = normalizeOrigins(cfg.AllowedOrigins)
	cfg.Admin.Username = strings.TrimSpace(cfg.Admin.Username)
	cfg.Admin.PasswordHash = strings.TrimSpace(cfg.Admin.PasswordHash)
	cfg.Storage.Mode = strings.ToLower(strings.TrimSpace(cfg.Storage.Mode))
	if cfg.Storage.Mode == "db" || cfg.Storage.Mode == "sql" {
		cfg.Storage.Mode = StorageDatabase
	}
	cfg.Storage.File.Dir = ResolveRuntimePath(cfg.Storage.File.Dir, ".")
	cfg.Media.Provider = strings.ToLower(strings.TrimSpace(cfg.Media.Provider))
	cfg.Media.Cloudinary.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Media.Cloudinary.BaseURL), "/")
	cfg.Media.Local.Dir = ResolveRuntimePath(cfg.Media.Local.Dir, "uploads")
	cfg.Media.Local.BaseURL = "/" + strings.Trim(strings.TrimSpace(cfg.Media.Local.BaseURL), "/")
	cfg.Media.LegacyDir = ResolveRuntimePath(cfg.Media.LegacyDir, ".")
	cfg.Paths.Backups = ResolveRuntimePath(cfg.Paths.Backups, "backups")
	cfg.Database.DSN = strings.TrimSpace(cfg.Database.DSN)
	cfg.Redis.URL = strings.TrimSpace(cfg.Redis.URL)
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	seen := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" {
			continue
		}
		if _, ok := seen[o]; ok {
			continue
		}
		seen[o] = struct{}{}
		out = append(out, o)
	}
	return out
}

// Validate rejects configurations the server cannot run with.
func (c *AppConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d, expected 1-65535", c.Port)
	}
	if c.Admin.Username == "" {
		return errors.New("admin username is required")
	}
	if c.Admin.Password == "" && c.Admin.PasswordHash == "" {
		return errors.New("ADMIN_PASSWORD is required")
	}
	if strings.TrimSpace(c.Session.Secret) == "" {
		return errors.New("SESSION_SECRET is required")
	}

	switch c.Storage.Mode {
	case StorageFile:
	case StorageDatabase:
		if c.Database.DSNValue() == "" {
			return errors.New("DATABASE_URL is required when storage mode is database")
		}
	default:
		return fmt.Errorf("unknown storage mode %q", c.Storage.Mode)
	}

	switch c.Media.Provider {
	case ProviderCloudinary:
		cl := c.Media.Cloudinary
		var missing []string
		if cl.CloudName == "" {
			missing = append(missing, "CLOUDINARY_CLOUD_NAME")
		}
		if cl.APIKey == "" {
			missing = append(missing, "CLOUDINARY_API_KEY")
		}
		if cl.APISecret == "" {
			missing = append(missing, "CLOUDINARY_API_SECRET")
		}
		if len(missing) > 0 {
			return fmt.Errorf("missing Cloudinary configuration: %s", strings.Join(missing, ", "))
		}
	case ProviderS3:
		if c.Media.S3.Bucket == "" {
			return errors.New("S3_BUCKET is required for the s3 media provider")
		}
	case ProviderLocal:
	default:
		return fmt.Errorf("unknown media provider %q", c.Media.Provider)
	}

	if c.Backup.Interval < 0 || c.Backup.Keep < 0 {
		return errors.New("backup interval and keep must not be negative")
	}
	if c.Upload.MaxGalleryBytes <= 0 || c.Upload.MaxStaticBytes <= 0 {
		return errors.New("upload size limits must be positive")
	}
	return nil
}
