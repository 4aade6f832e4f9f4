// Package pack implements the annotated-document container: a pack owns its
// entries, mints their identifiers, records which component produced which
// entries and fields, and maintains the lookup indexes readers query.
//
// Entries, types and components are indexed eagerly on every add. The link
// and group indexes are built on first query by scanning the pack's link or
// group list, and afterwards receive only the entries added since.
//
// A pack assumes a single owner mutating it sequentially. Nothing in this
// package takes a lock; the lazy index builds are mutations of the index
// cache and must not race with adds on the same pack.
package pack
