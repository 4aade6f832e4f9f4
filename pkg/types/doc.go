// Package types defines the entry model, the entry-type registry, pack
// metadata, the Archive interface, configuration, and the standard error
// values shared by the annopack packages.
//
// Entries are owned by the pack that added them. Every concrete entry embeds
// one of the three structural variants (Annotation, Link, Group), which in
// turn embed EntryHeader, the identity block the pack stamps on add.
package types
