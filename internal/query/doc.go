// Package query is the read side of the service: dashboard projections of
// the registry and readings, plus the validated command submission path.
package query
