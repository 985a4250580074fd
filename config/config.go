package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"db"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Log        LogConfig        `mapstructure:"log"`
	Attendance AttendanceConfig `mapstructure:"attendance"`
	IPGeo      IPGeoConfig      `mapstructure:"ipgeo"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Bootstrap  BootstrapConfig  `mapstructure:"bootstrap"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int        `mapstructure:"port"`
	BaseURL      string     `mapstructure:"base_url"`
	BodyLimitMB  int64      `mapstructure:"body_limit_mb"`
	TrustProxies []string   `mapstructure:"trusted_proxies"`
	CORS         CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 缓存配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 认证配置
type AuthConfig struct {
	JWTSecret               string        `mapstructure:"jwt_secret"`
	AccessTokenTTL          time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTLDefault  time.Duration `mapstructure:"refresh_token_ttl_default"`
	RefreshTokenTTLRemember time.Duration `mapstructure:"refresh_token_ttl_remember_me"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// 签到窗口模式
const (
	WindowModeFixed     = "fixed"     // 创建即开始，固定时长后关闭
	WindowModeScheduled = "scheduled" // 显式起止时间
)

// AttendanceConfig 签到规则全局默认值
//
// 半径与窗口各只有一个权威默认值：
//   - default_radius_meters：地点未设置半径且会话规则未覆盖时使用
//   - fixed_window：fixed 模式会话的签到时长
//
// scheduled 模式与 auto_close 由会话创建请求 / 会话规则显式指定，不存在隐式的第二默认值。
type AttendanceConfig struct {
	DefaultRadiusMeters    int           `mapstructure:"default_radius_meters"`
	FixedWindow            time.Duration `mapstructure:"fixed_window"`
	DefaultWindowMode      string        `mapstructure:"default_window_mode"`
	DefaultLatenessMinutes int           `mapstructure:"default_lateness_minutes"`
	RequireEnrollment      bool          `mapstructure:"require_enrollment"`
}

// IPGeoConfig IP 定位兜底配置（仅用于审计日志，不参与拒绝判定）
type IPGeoConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	CheckInPerMinute int `mapstructure:"checkin_per_minute"`
	LoginPerMinute   int `mapstructure:"login_per_minute"`
}

// BootstrapConfig 首个管理员账号；admin_password 为空时不创建
type BootstrapConfig struct {
	AdminName     string `mapstructure:"admin_name"`
	AdminMatricNo string `mapstructure:"admin_matric_no"`
	AdminEmail    string `mapstructure:"admin_email"`
	AdminPassword string `mapstructure:"admin_password"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.body_limit_mb", 10)
	v.SetDefault("server.trusted_proxies", []string{})
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:3000"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "erecord")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Africa/Lagos")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)  // 60分钟
	v.SetDefault("db.conn_max_idle_time", 30) // 30分钟

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.access_token_ttl", "15m")
	v.SetDefault("auth.refresh_token_ttl_default", "24h")
	v.SetDefault("auth.refresh_token_ttl_remember_me", "168h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("attendance.default_radius_meters", 50)
	v.SetDefault("attendance.fixed_window", "15m")
	v.SetDefault("attendance.default_window_mode", WindowModeFixed)
	v.SetDefault("attendance.default_lateness_minutes", 15)
	v.SetDefault("attendance.require_enrollment", false)

	v.SetDefault("ipgeo.enabled", true)
	v.SetDefault("ipgeo.base_url", "http://ip-api.com/json")
	v.SetDefault("ipgeo.timeout", "3s")
	v.SetDefault("ipgeo.cache_ttl", "6h")

	v.SetDefault("rate_limit.checkin_per_minute", 10)
	v.SetDefault("rate_limit.login_per_minute", 20)

	v.SetDefault("bootstrap.admin_name", "System Administrator")
	v.SetDefault("bootstrap.admin_matric_no", "ADMIN001")
	v.SetDefault("bootstrap.admin_email", "admin@erecord.local")
	v.SetDefault("bootstrap.admin_password", "")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("EREC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// ── 关键配置校验 ──
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.Attendance.DefaultRadiusMeters <= 0 {
		return fmt.Errorf("配置校验失败: attendance.default_radius_meters 必须为正整数")
	}
	if c.Attendance.FixedWindow <= 0 {
		return fmt.Errorf("配置校验失败: attendance.fixed_window 必须大于 0")
	}
	switch c.Attendance.DefaultWindowMode {
	case WindowModeFixed, WindowModeScheduled:
	default:
		return fmt.Errorf("配置校验失败: attendance.default_window_mode 只能是 fixed 或 scheduled")
	}
	if c.Attendance.DefaultLatenessMinutes < 0 {
		return fmt.Errorf("配置校验失败: attendance.default_lateness_minutes 不能为负数")
	}
	if c.Bootstrap.AdminPassword != "" {
		if len(c.Bootstrap.AdminPassword) < 8 {
			return fmt.Errorf("配置校验失败: bootstrap.admin_password 长度不能少于 8 字符")
		}
		if c.Bootstrap.AdminMatricNo == "" || c.Bootstrap.AdminEmail == "" {
			return fmt.Errorf("配置校验失败: 设置 bootstrap.admin_password 时必须提供 admin_matric_no 与 admin_email")
		}
	}
	return nil
}
