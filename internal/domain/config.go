package domain

// Config holds the complete Kestrel configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Tier determines feature availability
	Tier Tier `json:"tier"`

	// Engine is the default risk-engine configuration. Individual recompute
	// requests may override parts of it.
	Engine EngineConfig `json:"engine"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// PeerGroupStrategy selects how customers are assigned to peer groups.
type PeerGroupStrategy string

const (
	// PeerGroupMapping uses the single default customer -> peer-group table.
	PeerGroupMapping PeerGroupStrategy = "mapping"

	// PeerGroupNamed selects one of several named mapping tables.
	PeerGroupNamed PeerGroupStrategy = "named"

	// PeerGroupRule derives membership from a customer-name match instead
	// of a lookup table ("Modern Trade" style grouping).
	PeerGroupRule PeerGroupStrategy = "rule"
)

// CorridorPolicy selects how corridor bounds are looked up for a row.
type CorridorPolicy string

const (
	// CorridorSingle keys both bounds by (suffering country, category).
	CorridorSingle CorridorPolicy = "single"

	// CorridorDual keys the max bound by the suffering country and the min
	// bound by the generating country of the group minimum price.
	CorridorDual CorridorPolicy = "dual"
)

// EngineConfig parameterizes the risk engine. The historical tool shipped
// four near-identical pipelines; each was one combination of these fields.
type EngineConfig struct {
	// PeerGroupStrategy selects the customer -> peer-group assignment.
	PeerGroupStrategy PeerGroupStrategy `json:"peerGroupStrategy"`

	// ActiveMapping names the mapping table used by the "named" strategy.
	ActiveMapping string `json:"activeMapping,omitempty"`

	// RuleMatch is the customer-name substring for the "rule" strategy
	// (case-insensitive). RuleLabel is the group assigned on a match.
	RuleMatch string `json:"ruleMatch,omitempty"`
	RuleLabel string `json:"ruleLabel,omitempty"`

	// CorridorPolicy selects single- or dual-country corridor lookups.
	CorridorPolicy CorridorPolicy `json:"corridorPolicy"`

	// DropUnmappedPeerGroup drops rows whose customer has no peer group
	// instead of retaining them with an empty one.
	DropUnmappedPeerGroup bool `json:"dropUnmappedPeerGroup"`

	// AreaEnabled attaches the country -> area dimension when an area
	// table is present.
	AreaEnabled bool `json:"areaEnabled"`
}

// DefaultRuleLabel is the peer-group label the rule strategy assigns when
// none is configured.
const DefaultRuleLabel = "Modern Trade"

// DefaultMappingName is the key of the single mapping table in a
// ReferenceSet when the caller does not name its mappings.
const DefaultMappingName = "default"

// DefaultEngineConfig mirrors the behavior of the original tool: single
// alliance mapping, single-country corridors, unmapped customers dropped.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		PeerGroupStrategy:     PeerGroupMapping,
		ActiveMapping:         DefaultMappingName,
		RuleLabel:             DefaultRuleLabel,
		CorridorPolicy:        CorridorSingle,
		DropUnmappedPeerGroup: true,
	}
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool   `json:"enabled"`
	ServiceName  string `json:"serviceName"`
	ExporterType string `json:"exporterType"` // stdout, otlp, jaeger
	Endpoint     string `json:"endpoint"`
}

// Tier represents the product tier.
type Tier string

const (
	// TierCommunity is the free tier with SQLite + channels
	TierCommunity Tier = "community"

	// TierPro is the paid tier with PostgreSQL + NATS + Redis
	TierPro Tier = "pro"
)

// DefaultConfig returns a default configuration for Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Tier:   TierCommunity,
		Engine: DefaultEngineConfig(),
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./kestrel.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 1000,
			LocalTTL:     300, // 5 minutes
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "kestrel",
		},
	}
}

// ProConfig returns a configuration for Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "kestrel",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   100,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}
