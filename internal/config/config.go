package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Admin       AdminConfig
	Scanner     ScannerConfig
	Session     SessionConfig
	Leaderboard LeaderboardConfig
	Share       ShareConfig
	RateLimit   RateLimitConfig `mapstructure:"ratelimit"`
	WebSocket   WebSocketConfig
	CORS        CORSConfig `mapstructure:"cors"`
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port         string
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	Mode       string   `mapstructure:"mode"`
	Addrs      []string `mapstructure:"addrs"`
	Addr       string   `mapstructure:"addr"` // для режима single, если Addrs пуст
	Password   string   `mapstructure:"password"`
	DB         int      `mapstructure:"db"`
	MasterName string   `mapstructure:"master_name"`
	KeyPrefix  string   `mapstructure:"key_prefix"`

	MaxRetries      int `mapstructure:"max_retries"`
	MinRetryBackoff int `mapstructure:"min_retry_backoff"` // мс
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"` // мс
}

// JWTConfig содержит настройки JWT администратора и тикетов WebSocket
type JWTConfig struct {
	Secret            string `mapstructure:"secret"`
	ExpirationHrs     int    `mapstructure:"expiration_hrs"`
	WSTicketExpirySec int    `mapstructure:"ws_ticket_expiry_sec"`
}

// AdminConfig содержит bcrypt-хеш пароля администратора
type AdminConfig struct {
	PasswordHash string `mapstructure:"password_hash"`
}

// ScannerConfig содержит настройки подавления повторных сканов
type ScannerConfig struct {
	DebounceWindowMs int `mapstructure:"debounce_window_ms"`
}

// SessionConfig содержит настройки сессий забега
type SessionConfig struct {
	IdleTTLMin       int `mapstructure:"idle_ttl_min"`
	SweepIntervalSec int `mapstructure:"sweep_interval_sec"`
}

// LeaderboardConfig содержит настройки кеша таблицы результатов
type LeaderboardConfig struct {
	CacheTTLSec int `mapstructure:"cache_ttl_sec"`
}

// ShareConfig содержит базовый адрес для ссылок на забеги
type ShareConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// RateLimitConfig содержит лимиты запросов в минуту
type RateLimitConfig struct {
	ImportPerMinute int `mapstructure:"import_per_minute"`
	ScansPerMinute  int `mapstructure:"scans_per_minute"`
	LoginPerMinute  int `mapstructure:"login_per_minute"`
}

// WebSocketConfig содержит настройки соединений потока сканов
type WebSocketConfig struct {
	ClientSendBuffer int `mapstructure:"client_send_buffer"`
	MaxMessageSize   int `mapstructure:"max_message_size"`
	WriteWait        int `mapstructure:"write_wait"` // секунды
	PongWait         int `mapstructure:"pong_wait"`  // секунды
}

// CORSConfig содержит список разрешённых источников
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// PostgresURL формирует URL подключения для golang-migrate
func (d *DatabaseConfig) PostgresURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.read_timeout", 15)
	vip.SetDefault("server.write_timeout", 15)
	vip.SetDefault("database.port", "5432")
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("redis.mode", "single")
	vip.SetDefault("redis.addr", "localhost:6379")
	vip.SetDefault("redis.key_prefix", "checkrun:")
	vip.SetDefault("jwt.expiration_hrs", 24)
	vip.SetDefault("jwt.ws_ticket_expiry_sec", 6*60*60)
	vip.SetDefault("scanner.debounce_window_ms", 2000)
	vip.SetDefault("session.idle_ttl_min", 120)
	vip.SetDefault("session.sweep_interval_sec", 60)
	vip.SetDefault("leaderboard.cache_ttl_sec", 300)
	vip.SetDefault("share.base_url", "http://localhost:5173")
	vip.SetDefault("ratelimit.import_per_minute", 20)
	vip.SetDefault("ratelimit.scans_per_minute", 240)
	vip.SetDefault("ratelimit.login_per_minute", 10)
	vip.SetDefault("websocket.client_send_buffer", 64)
	vip.SetDefault("websocket.max_message_size", 4096)
	vip.SetDefault("websocket.write_wait", 10)
	vip.SetDefault("websocket.pong_wait", 60)
	vip.SetDefault("cors.allow_origins", []string{"http://localhost:5173", "http://localhost:3000"})
}

// Load загружает конфигурацию из файла
func Load(configPath string) (*Config, error) {
	vip := viper.New() // Используем новый экземпляр Viper, чтобы избежать глобального состояния

	setDefaults(vip)

	// Привязываем переменные окружения ЯВНО
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")

	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	vip.BindEnv("jwt.secret", "JWT_SECRET")
	vip.BindEnv("jwt.expiration_hrs", "JWT_EXPIRATION_HRS")
	vip.BindEnv("admin.password_hash", "ADMIN_PASSWORD_HASH")

	vip.BindEnv("server.port", "SERVER_PORT")
	vip.BindEnv("share.base_url", "SHARE_BASE_URL")
	vip.BindEnv("scanner.debounce_window_ms", "SCANNER_DEBOUNCE_WINDOW_MS")

	if configPath != "" {
		vip.SetConfigFile(configPath)
		// не страшно, если файла нет, т.к. есть BindEnv и умолчания
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// REDIS_ADDRS приходит одной строкой через запятую
	if len(cfg.Redis.Addrs) == 1 && strings.Contains(cfg.Redis.Addrs[0], ",") {
		cfg.Redis.Addrs = strings.Split(cfg.Redis.Addrs[0], ",")
	}

	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Загруженные значения конфигурации ---")
		log.Printf("Database Host: %s", cfg.Database.Host)
		log.Printf("Database Name: %s", cfg.Database.DBName)
		log.Printf("Redis Addr: %s", cfg.Redis.Addr)
		log.Printf("Redis Mode: %s", cfg.Redis.Mode)
		log.Printf("JWT Expiration Hours: %d", cfg.JWT.ExpirationHrs)
		log.Printf("Admin Password Hash Set: %t", cfg.Admin.PasswordHash != "")
		log.Printf("Scanner Debounce Window: %dms", cfg.Scanner.DebounceWindowMs)
		log.Printf("Share Base URL: %s", cfg.Share.BaseURL)
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("-----------------------------------------")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет обязательные параметры
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required in config (check JWT_SECRET env var)")
	}
	if c.Database.Host == "" || c.Database.DBName == "" || c.Database.User == "" {
		return fmt.Errorf("database configuration (host, dbname, user) is incomplete in config (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	if c.Scanner.DebounceWindowMs < 0 {
		return fmt.Errorf("scanner.debounce_window_ms must not be negative")
	}
	if c.Admin.PasswordHash == "" {
		log.Println("Warning: ADMIN_PASSWORD_HASH is not set, admin login is disabled.")
	}
	return nil
}
