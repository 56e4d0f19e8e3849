// Package trace provides a tracing subsystem for the dataflow engine.
//
// The trace package enables tracking of analysis phases, per-TU processing,
// and other operations to help diagnose performance issues and hangs.
//
// # Usage
//
// Enable tracing via command-line flags:
//
//	ctucheck analyze --trace=- --trace-level=phase file.i
//
// # Architecture
//
// The package provides several tracer implementations:
//
//   - NopTracer: Zero-overhead no-op tracer when disabled
//   - StreamTracer: Immediate write to output (file/stderr)
//   - RingTracer: Circular buffer for crash dumps
//   - MultiTracer: Combines multiple tracers
//
// # Levels
//
// Tracing verbosity is controlled by levels:
//
//   - LevelOff: No tracing
//   - LevelError: Only crash dumps
//   - LevelPhase: Driver and rule-group boundaries
//   - LevelDetail: Per-function value-flow events
//   - LevelDebug: Everything including per-token value sets
//
// # Scopes
//
// Events are categorized by scope:
//
//   - ScopeDriver: Top-level CLI operations
//   - ScopeModule: Per-translation-unit processing
//   - ScopePass: Value-flow rule groups (literal, assign, cond, loop, ctu)
//   - ScopeNode: Token-level detail (debug only)
//
// # Context Propagation
//
// Tracers are propagated through the analysis pipeline via context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopePass, "valueflow", parentID)
//	defer span.End("")
package trace
