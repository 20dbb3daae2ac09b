package config

const (
	// BackendExact keeps every sample and computes exact percentiles.
	BackendExact = "exact"
	// BackendSketch keeps a bounded log-bucket histogram per metric.
	BackendSketch = "sketch"
	// DefaultBackend is used when the config names no backend.
	DefaultBackend = BackendExact
	// MaxDecimals bounds the rounding precision of summary statistics.
	MaxDecimals = 6
	// DefaultSketchAlpha is the relative accuracy of sketch quantiles.
	DefaultSketchAlpha = 0.01
	// DefaultNumWorkers is the size of the manager's worker pool.
	DefaultNumWorkers = 4
	// DefaultAuditChannelSize is the buffer size of the audit input channel.
	DefaultAuditChannelSize = 1024
	// DefaultNATSURL is the NATS server the engine connects to.
	DefaultNATSURL = "nats://127.0.0.1:4222"
	// DefaultAuditSubject carries audit results into the engine.
	DefaultAuditSubject = "perfspectra.audits"
	// DefaultSummarySubject carries per-group summaries out of the engine.
	DefaultSummarySubject = "perfspectra.summary"
	// DefaultErrorSubject carries audits that could not be aggregated.
	DefaultErrorSubject = "perfspectra.errors"
	// DefaultPublishInterval is how often per-group summaries are published.
	DefaultPublishInterval = "1m"
	// DefaultCheckInterval is how often alert rules are evaluated.
	DefaultCheckInterval = "1m"
	// DefaultAPIListenAddr is the HTTP API address.
	DefaultAPIListenAddr = ":8080"
	// DefaultGRPCListenAddr is the gRPC health server address.
	DefaultGRPCListenAddr = ":50051"
	// DefaultConfigPath is read by the binaries unless PERFSPECTRA_CONFIG is set.
	DefaultConfigPath = "configs/config.yaml"
	// DefaultClickHousePort is the native ClickHouse port.
	DefaultClickHousePort = 9000
)
