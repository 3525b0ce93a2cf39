// Package logging sets up structured, rotating file logging for the search
// layer (spec's ambient stack: log/slog with a JSON handler). Every
// Orchestrator run emits one structured log line per query carrying query,
// intent, verdict_code, and latency_ms.
package logging
