/*
Package observability provides tools for monitoring the leadflow engine.

It exposes Prometheus collectors for node visits, action durations and chat turns,
and builds lifecycle hooks that feed them together with structured audit logs.
*/
package observability
