// Package config loads the checklist API configuration.
//
// Values come from three layers, later ones winning: built-in defaults, an
// optional YAML file named by CHECKLIST_CONFIG_FILE, and CHECKLIST_*
// environment variables.
//
// Server settings:
//
//	CHECKLIST_HOST="0.0.0.0"
//	CHECKLIST_PORT="8080"
//	CHECKLIST_HEALTH_PORT="9090"
//	CHECKLIST_READ_TIMEOUT="15s"
//
// Database settings:
//
//	CHECKLIST_DB_DRIVER="postgres"  # postgres, sqlite3
//	CHECKLIST_DB_DSN="postgres://localhost/checklist?sslmode=disable"
//	CHECKLIST_DB_REPLICA_DSNS="postgres://replica1/checklist,postgres://replica2/checklist"
//	CHECKLIST_DB_REPLICA_CHECK_INTERVAL="30s"
//	CHECKLIST_DB_MIGRATE_ON_START="true"
//	CHECKLIST_REDIS_URL="redis://localhost:6379/0"
//
// Auth settings:
//
//	CHECKLIST_SIGNING_KEY="..."  # at least 32 bytes
//	CHECKLIST_TOKEN_ISSUER="checklist-api"
//	CHECKLIST_TOKEN_AUDIENCE="checklist-clients"
//	CHECKLIST_BCRYPT_COST="10"
//	CHECKLIST_LIST_USERS_ROLE="Admin"
//
// Observability settings:
//
//	CHECKLIST_LOG_LEVEL="info"  # debug, info, warn, error
//	CHECKLIST_METRICS_ENABLED="true"
//	CHECKLIST_OTEL_ENABLED="true"
//	CHECKLIST_OTEL_ENDPOINT="otel-collector:4317"
//	CHECKLIST_OTEL_SAMPLE_RATIO="0.1"
//
// The same settings in YAML:
//
//	server:
//	  port: "8080"
//	database:
//	  driver: postgres
//	  dsn: postgres://localhost/checklist
//	auth:
//	  signing_key: ...
//	rate_limit:
//	  window: 1m
//
// Token lifetime is fixed at auth.DefaultTokenLifetime and cannot be configured.
package config
