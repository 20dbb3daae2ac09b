package model

// Engine defines the common interface for a running aggregation engine,
// allowing the stream consumer and the HTTP API to drive it without knowing its internals.
type Engine interface {
	// Start launches the engine's processing workers.
	Start()

	// Stop gracefully shuts down the engine, ensuring buffered audits are aggregated and flushed.
	Stop()

	// Input returns the channel to which audit messages should be sent for processing.
	Input() chan<- *AuditMessage
}
