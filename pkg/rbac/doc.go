// Package rbac resolves user roles and enforces the route-level
// authorization policies of the BookCourier API. Roles are user,
// librarian, and admin; resolution is store-backed with optional LRU
// and Redis caching.
package rbac
