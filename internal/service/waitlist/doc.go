// Package waitlist implements the admission and review flow for THE
// ALCHEMIST access queue.
//
// The service layer owns the admission pipeline (rate limit → validate →
// normalize → dedup → insert → notify) and the reviewer operations (stats,
// status update). It depends on the Repository interface defined in this
// package and should never import from the api/ layer.
//
// Repository implementations live in repository/postgres/. Queue positions
// are assigned by the store, never by this package: the database sequence is
// the single authority, which is what makes concurrent admissions safe.
package waitlist
