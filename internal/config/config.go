package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/palemoky/old-maid/internal/game/card"
)

const (
	defaultHost           = "0.0.0.0"
	defaultPort           = 1780
	defaultMaxConnections = 1000

	defaultMaxPlayers            = 6
	defaultMinPlayers            = 2
	defaultRoomTimeout           = 10 // 分钟
	defaultCleanupInterval       = 60 // 秒
	defaultLogCapacity           = 50
	defaultSnapshotLogSize       = 10
	defaultShutdownTimeout       = 10 // 分钟
	defaultShutdownCheckInterval = 5  // 秒

	defaultRateMaxPerSecond    = 10
	defaultRateMaxPerMinute    = 60
	defaultBanDuration         = 60 // 秒
	defaultMessageMaxPerSecond = 20

	defaultLogLevel  = "info"
	defaultLogFormat = "text"

	envPrefix = "OLDMAID_"
)

// Config 服务端配置
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	Game     GameConfig     `yaml:"game"`
	Deck     DeckConfig     `yaml:"deck"`
	Security SecurityConfig `yaml:"security"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig WebSocket 服务器配置
type ServerConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	MaxConnections  int    `yaml:"max_connections"`
	ShutdownWebhook string `yaml:"shutdown_webhook"` // 优雅关闭后 POST 通知的地址，可为空
}

// Addr 监听地址
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedisConfig Redis 配置，Addr 为空表示不使用 Redis（不镜像房间，不记录统计）
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Enabled 是否启用 Redis
func (c *RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// GameConfig 游戏配置
type GameConfig struct {
	MaxPlayers            int `yaml:"max_players"`
	MinPlayers            int `yaml:"min_players"`
	RoomTimeout           int `yaml:"room_timeout"`            // 大厅房间闲置超时（分钟）
	CleanupInterval       int `yaml:"cleanup_interval"`        // 房间清理间隔（秒）
	LogCapacity           int `yaml:"log_capacity"`            // 事件日志容量
	SnapshotLogSize       int `yaml:"snapshot_log_size"`       // 快照中展示的日志条数
	ShutdownTimeout       int `yaml:"shutdown_timeout"`        // 优雅关闭等待对局结束的超时（分钟）
	ShutdownCheckInterval int `yaml:"shutdown_check_interval"` // 优雅关闭检查间隔（秒）
}

// RoomTimeoutDuration 返回房间等待超时时长
func (c *GameConfig) RoomTimeoutDuration() time.Duration {
	return time.Duration(c.RoomTimeout) * time.Minute
}

// CleanupIntervalDuration 返回房间清理间隔
func (c *GameConfig) CleanupIntervalDuration() time.Duration {
	return time.Duration(c.CleanupInterval) * time.Second
}

// ShutdownTimeoutDuration 返回优雅关闭超时时长
func (c *GameConfig) ShutdownTimeoutDuration() time.Duration {
	return time.Duration(c.ShutdownTimeout) * time.Minute
}

// ShutdownCheckIntervalDuration 返回优雅关闭检查间隔
func (c *GameConfig) ShutdownCheckIntervalDuration() time.Duration {
	return time.Duration(c.ShutdownCheckInterval) * time.Second
}

// DeckConfig 牌组配置，为空时使用标准 53 张牌
type DeckConfig struct {
	Ranks []int `yaml:"ranks"` // 1-13
	Suits []int `yaml:"suits"` // 1=黑桃 2=红心 3=梅花 4=方块
}

// CardConfig 转换为牌组配置
func (c *DeckConfig) CardConfig() card.DeckConfig {
	if len(c.Ranks) == 0 && len(c.Suits) == 0 {
		return card.StandardDeckConfig()
	}
	cfg := card.DeckConfig{
		Ranks: make([]card.Rank, 0, len(c.Ranks)),
		Suits: make([]card.Suit, 0, len(c.Suits)),
	}
	for _, r := range c.Ranks {
		cfg.Ranks = append(cfg.Ranks, card.Rank(r))
	}
	for _, s := range c.Suits {
		cfg.Suits = append(cfg.Suits, card.Suit(s))
	}
	return cfg
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	AllowedOrigins    []string           `yaml:"allowed_origins"`
	BlockedIPs        []string           `yaml:"blocked_ips"`     // IP 或 CIDR
	TrustedProxies    []string           `yaml:"trusted_proxies"` // 只信任来自这些地址的 X-Forwarded-For / X-Real-IP
	AdminPassword     string             `yaml:"admin_password"`      // 创建房间的口令（明文，启动时哈希）
	AdminPasswordHash string             `yaml:"admin_password_hash"` // bcrypt 哈希，优先于明文
	RateLimit         RateLimitConfig    `yaml:"rate_limit"`
	MessageLimit      MessageLimitConfig `yaml:"message_limit"`
}

// BlockedPrefixes 解析黑名单
func (s SecurityConfig) BlockedPrefixes() ([]netip.Prefix, error) {
	return parsePrefixes(s.BlockedIPs)
}

// TrustedProxyPrefixes 解析可信代理列表
func (s SecurityConfig) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	return parsePrefixes(s.TrustedProxies)
}

// parsePrefixes 单个 IP 视为 /32 或 /128
func parsePrefixes(entries []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if strings.Contains(e, "/") {
			p, err := netip.ParsePrefix(e)
			if err != nil {
				return nil, fmt.Errorf("无效的网段 %q: %w", e, err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(e)
		if err != nil {
			return nil, fmt.Errorf("无效的 IP %q: %w", e, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// RateLimitConfig 连接速率限制
type RateLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second"`
	MaxPerMinute int `yaml:"max_per_minute"`
	BanDuration  int `yaml:"ban_duration"` // 秒
}

// BanDurationTime 返回封禁时长
func (c *RateLimitConfig) BanDurationTime() time.Duration {
	return time.Duration(c.BanDuration) * time.Second
}

// MessageLimitConfig 消息速率限制
type MessageLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug/info/warn/error
	Format string `yaml:"format"` // text/json
	File   string `yaml:"file"`   // 为空时输出到标准输出
}

// Load 加载配置文件，随后应用环境变量覆盖
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default 返回默认配置（同样应用环境变量覆盖）
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	_ = cfg.applyEnv()
	return cfg
}

// LoadDotEnv 加载 .env 文件到环境变量，文件不存在时忽略，已存在的环境变量不会被覆盖
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("加载 %s 失败: %w", f, err)
		}
	}
	return nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("无效的端口: %d", c.Server.Port)
	}
	if c.Game.MinPlayers < 2 || c.Game.MaxPlayers < c.Game.MinPlayers {
		return fmt.Errorf("无效的玩家人数: min=%d max=%d", c.Game.MinPlayers, c.Game.MaxPlayers)
	}
	if err := c.Deck.CardConfig().Validate(); err != nil {
		return fmt.Errorf("牌组配置: %w", err)
	}
	if _, err := c.Security.BlockedPrefixes(); err != nil {
		return fmt.Errorf("blocked_ips: %w", err)
	}
	if _, err := c.Security.TrustedProxyPrefixes(); err != nil {
		return fmt.Errorf("trusted_proxies: %w", err)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("无效的日志格式: %s", c.Logging.Format)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = defaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Server.MaxConnections == 0 {
		c.Server.MaxConnections = defaultMaxConnections
	}
	if c.Game.MaxPlayers == 0 {
		c.Game.MaxPlayers = defaultMaxPlayers
	}
	if c.Game.MinPlayers == 0 {
		c.Game.MinPlayers = defaultMinPlayers
	}
	if c.Game.RoomTimeout == 0 {
		c.Game.RoomTimeout = defaultRoomTimeout
	}
	if c.Game.CleanupInterval == 0 {
		c.Game.CleanupInterval = defaultCleanupInterval
	}
	if c.Game.LogCapacity == 0 {
		c.Game.LogCapacity = defaultLogCapacity
	}
	if c.Game.SnapshotLogSize == 0 {
		c.Game.SnapshotLogSize = defaultSnapshotLogSize
	}
	if c.Game.ShutdownTimeout == 0 {
		c.Game.ShutdownTimeout = defaultShutdownTimeout
	}
	if c.Game.ShutdownCheckInterval == 0 {
		c.Game.ShutdownCheckInterval = defaultShutdownCheckInterval
	}
	if len(c.Security.AllowedOrigins) == 0 {
		c.Security.AllowedOrigins = []string{"*"}
	}
	if c.Security.RateLimit.MaxPerSecond == 0 {
		c.Security.RateLimit.MaxPerSecond = defaultRateMaxPerSecond
	}
	if c.Security.RateLimit.MaxPerMinute == 0 {
		c.Security.RateLimit.MaxPerMinute = defaultRateMaxPerMinute
	}
	if c.Security.RateLimit.BanDuration == 0 {
		c.Security.RateLimit.BanDuration = defaultBanDuration
	}
	if c.Security.MessageLimit.MaxPerSecond == 0 {
		c.Security.MessageLimit.MaxPerSecond = defaultMessageMaxPerSecond
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
}

// applyEnv 环境变量覆盖配置文件
func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			*dst = v
		}
	}
	var errs []error
	setInt := func(key string, dst *int) {
		v, ok := os.LookupEnv(envPrefix + key)
		if !ok {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("环境变量 %s%s 不是整数: %w", envPrefix, key, err))
			return
		}
		*dst = n
	}

	setString("SERVER_HOST", &c.Server.Host)
	setInt("SERVER_PORT", &c.Server.Port)
	setInt("MAX_CONNECTIONS", &c.Server.MaxConnections)
	setString("SHUTDOWN_WEBHOOK", &c.Server.ShutdownWebhook)
	setString("REDIS_ADDR", &c.Redis.Addr)
	setString("REDIS_PASSWORD", &c.Redis.Password)
	setInt("REDIS_DB", &c.Redis.DB)
	setInt("MAX_PLAYERS", &c.Game.MaxPlayers)
	setInt("ROOM_TIMEOUT", &c.Game.RoomTimeout)
	setString("ADMIN_PASSWORD", &c.Security.AdminPassword)
	setString("ADMIN_PASSWORD_HASH", &c.Security.AdminPasswordHash)
	setString("LOG_LEVEL", &c.Logging.Level)
	setString("LOG_FORMAT", &c.Logging.Format)
	setString("LOG_FILE", &c.Logging.File)

	setList := func(key string, dst *[]string) {
		v, ok := os.LookupEnv(envPrefix + key)
		if !ok {
			return
		}
		var items []string
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		*dst = items
	}
	setList("ALLOWED_ORIGINS", &c.Security.AllowedOrigins)
	setList("TRUSTED_PROXIES", &c.Security.TrustedProxies)

	return errors.Join(errs...)
}
