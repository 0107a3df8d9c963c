// Package middleware provides HTTP middleware shared by the BookCourier
// server: CORS handling and request logging with metrics.
package middleware
