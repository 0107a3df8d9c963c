// Package api implements the BookCourier HTTP surface: the mux router
// and the per-resource handlers behind the authorization gates. Domain
// records are defined in pkg/model and re-exported here.
package api
