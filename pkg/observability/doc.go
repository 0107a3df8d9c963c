// Package observability provides the structured JSON logger, Prometheus
// metrics, and health endpoint shared by the BookCourier binaries.
package observability
