package config

// EnvPrefix is the envconfig prefix shared by every binary.
const EnvPrefix = "ORDERSYNC"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

// Environment variable names referenced outside struct tags (tests, error messages).
const (
	EnvAppEnv   = "ORDERSYNC_APP_ENV"
	EnvPort     = "ORDERSYNC_APP_PORT"
	EnvDBDSN    = "ORDERSYNC_DB_DSN"
	EnvDBHost   = "ORDERSYNC_DB_HOST"
	EnvDBUser   = "ORDERSYNC_DB_USER"
	EnvDBName   = "ORDERSYNC_DB_NAME"
	EnvRedisURL = "ORDERSYNC_REDIS_URL"

	EnvCRMClientID     = "ORDERSYNC_CRM_CLIENT_ID"
	EnvCRMClientSecret = "ORDERSYNC_CRM_CLIENT_SECRET"
	EnvCRMRefreshToken = "ORDERSYNC_CRM_REFRESH_TOKEN"

	EnvGCPProjectID      = "ORDERSYNC_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic = "ORDERSYNC_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSub   = "ORDERSYNC_PUBSUB_ORDERS_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
