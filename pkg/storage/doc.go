// Package storage defines the persistence interfaces for BookCourier
// resources and the configuration shared by its backends.
package storage
