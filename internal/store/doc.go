// Package store persists fetched raw records in a local SQLite
// database so reconstructions can replay offline and repeatably.
//
// Writes are idempotent: records are content-addressed (the row id is a
// digest over the record's coordinates and payload) and inserted with
// ON CONFLICT DO NOTHING, so re-fetching an overlapping block range
// never duplicates rows. Reads return records in a deterministic order,
// though the replay engine does not rely on it.
//
// The Store satisfies the engine's source.Source interface, making a
// populated cache directly usable as a reconstruction input.
package store
