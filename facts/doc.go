// Package facts provides a durable, category-keyed fact store backed by a
// transactional SQLite table.
//
// Writes to an existing category merge key-wise into the stored map instead
// of replacing it; a reserved sub-key records the last update time. Reads
// sweep expired records first. Records past the staleness window but inside
// their TTL are still returned, flagged as stale.
package facts
