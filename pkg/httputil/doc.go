// Package httputil provides the JSON request and response helpers the
// API handlers share, including the fixed error bodies clients rely on.
package httputil
