package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	CRM          CRMConfig
	Numbering    NumberingConfig
	Compliance   ComplianceConfig
	RateLimit    RateLimitConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ORDERSYNC_APP_ENV" required:"true"`
	Port         string `envconfig:"ORDERSYNC_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ORDERSYNC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ORDERSYNC_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ORDERSYNC_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ORDERSYNC_DB_DSN"`
	Driver string `envconfig:"ORDERSYNC_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ORDERSYNC_DB_HOST"`
	LegacyPort     int    `envconfig:"ORDERSYNC_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ORDERSYNC_DB_USER"`
	LegacyPassword string `envconfig:"ORDERSYNC_DB_PASSWORD"`
	LegacyName     string `envconfig:"ORDERSYNC_DB_NAME"`
	LegacySSLMode  string `envconfig:"ORDERSYNC_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ORDERSYNC_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ORDERSYNC_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ORDERSYNC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ORDERSYNC_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ORDERSYNC_REDIS_URL" required:"true"`
	PoolSize     int           `envconfig:"ORDERSYNC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ORDERSYNC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ORDERSYNC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ORDERSYNC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ORDERSYNC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// CRMConfig describes the external CRM tenant plus the transport knobs shared
// by every call site (per-call timeout, bounded retry).
type CRMConfig struct {
	AccountsHost string        `envconfig:"ORDERSYNC_CRM_ACCOUNTS_HOST" default:"https://accounts.zoho.com"`
	APIHost      string        `envconfig:"ORDERSYNC_CRM_API_HOST" default:"https://www.zohoapis.com"`
	ClientID     string        `envconfig:"ORDERSYNC_CRM_CLIENT_ID" required:"true"`
	ClientSecret string        `envconfig:"ORDERSYNC_CRM_CLIENT_SECRET" required:"true"`
	RefreshToken string        `envconfig:"ORDERSYNC_CRM_REFRESH_TOKEN" required:"true"`
	CallTimeout  time.Duration `envconfig:"ORDERSYNC_CRM_CALL_TIMEOUT" default:"15s"`
	MaxAttempts  int           `envconfig:"ORDERSYNC_CRM_MAX_ATTEMPTS" default:"4"`
	RetryBase    time.Duration `envconfig:"ORDERSYNC_CRM_RETRY_BASE" default:"500ms"`
}

// NumberingConfig controls order number construction. TestMode prepends the
// "test" marker so sandbox traffic never collides with production numbers.
type NumberingConfig struct {
	TestMode bool `envconfig:"ORDERSYNC_NUMBERING_TEST_MODE" default:"false"`
}

// ComplianceConfig carries the hold policy defaults. Rows in the
// compliance_settings table override these at runtime.
type ComplianceConfig struct {
	WindowDays        int  `envconfig:"ORDERSYNC_COMPLIANCE_WINDOW_DAYS" default:"30"`
	RegulatedLimit    int  `envconfig:"ORDERSYNC_COMPLIANCE_REGULATED_LIMIT" default:"5"`
	EnableCountHold   bool `envconfig:"ORDERSYNC_COMPLIANCE_ENABLE_COUNT_HOLD" default:"true"`
	EnableDealerCheck bool `envconfig:"ORDERSYNC_COMPLIANCE_ENABLE_DEALER_CHECK" default:"true"`
}

type RateLimitConfig struct {
	IntakeLimit  int64         `envconfig:"ORDERSYNC_RATE_LIMIT_INTAKE_LIMIT" default:"60"`
	IntakeWindow time.Duration `envconfig:"ORDERSYNC_RATE_LIMIT_INTAKE_WINDOW" default:"1m"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ORDERSYNC_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"ORDERSYNC_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ORDERSYNC_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"ORDERSYNC_PUBSUB_ORDERS_TOPIC" required:"true"`
	OrdersSubscription string `envconfig:"ORDERSYNC_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ORDERSYNC_FEATURE_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
