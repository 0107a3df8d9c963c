// Package auth issues and verifies the bearer credentials BookCourier
// clients present. Tokens are short-lived HS256 JWTs carrying the
// user's email and display name.
package auth
