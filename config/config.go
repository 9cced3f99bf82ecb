package config

import "time"

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"gymlink-api"`
	Port                          int      `env:"PORT" env-default:"3004"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	Version                       string   `env:"VERSION" env-default:"dev"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST,PUT,DELETE"`

	// PostgreSQL
	DatabaseDriver              string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                string        `env:"DB_HOST" env-default:""`
	DatabasePort                string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName            string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword            string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                string        `env:"DB_NAME" env-default:"gymlink"`
	DatabaseSSLMode             string        `env:"DB_SSL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns        int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns        int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime     time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion    int           `env:"DB_MIGRATION_VERSION" env-default:"0"`

	// Graph Database (Memgraph)
	GraphDBEnabled  bool   `env:"GRAPH_DB_ENABLED" env-default:"false"`
	GraphDBHost     string `env:"GRAPH_DB_HOST" env-default:"localhost"`
	GraphDBPort     int    `env:"GRAPH_DB_PORT" env-default:"7687"`
	GraphDBUser     string `env:"GRAPH_DB_USER" env-default:""`
	GraphDBPassword string `env:"GRAPH_DB_PASSWORD" env-default:""`

	// Kafka Producer
	KafkaEnabled      bool     `env:"KAFKA_ENABLED" env-default:"false"`
	KafkaBrokers      []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaOutputTopic  string   `env:"KAFKA_OUTPUT_TOPIC" env-default:"gym-events"`
	KafkaBatchSize    int      `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout int      `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks int      `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression  string   `env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Tracing
	TracingEnabled      bool   `env:"TRACING_ENABLED" env-default:"false"`
	TracingOTLPEndpoint string `env:"TRACING_OTLP_ENDPOINT" env-default:"localhost:4317"`
	TracingOTLPProtocol string `env:"TRACING_OTLP_PROTOCOL" env-default:"grpc"`
	TracingOTLPInsecure bool   `env:"TRACING_OTLP_INSECURE" env-default:"true"`

	// Matching policy
	AutoLinkThreshold float64  `env:"AUTO_LINK_THRESHOLD" env-default:"90"`
	PendingThreshold  float64  `env:"PENDING_THRESHOLD" env-default:"70"`
	CityBoost         float64  `env:"CITY_BOOST" env-default:"15"`
	MaxCandidates     int      `env:"MAX_CANDIDATES" env-default:"25"`
	SuffixTokens      []string `env:"SUFFIX_TOKENS" env-default:""`

	// Federation fetchers
	IBJJFBaseURL string `env:"IBJJF_BASE_URL" env-default:"https://ibjjf.com"`
	JJWLBaseURL  string `env:"JJWL_BASE_URL" env-default:"https://jjworldleague.com"`

	// Geocoding
	GeocodeBaseURL   string        `env:"GEOCODE_BASE_URL" env-default:"https://nominatim.openstreetmap.org"`
	GeocodeUserAgent string        `env:"GEOCODE_USER_AGENT" env-default:"gymlink"`
	GeocodeTimeout   time.Duration `env:"GEOCODE_TIMEOUT" env-default:"10s"`
	GeocodeFailedTTL time.Duration `env:"GEOCODE_FAILED_TTL" env-default:"168h"`

	// Sync scheduler
	SchedulerEnabled bool   `env:"SCHEDULER_ENABLED" env-default:"false"`
	SchedulerCron    string `env:"SCHEDULER_CRON" env-default:"0 3 * * *"`
}
