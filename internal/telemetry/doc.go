// Package telemetry wires OpenTelemetry tracing for the client.
package telemetry
