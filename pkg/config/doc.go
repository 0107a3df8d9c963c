// Package config loads BookCourier configuration from environment
// variables and validates it before the server starts.
package config
