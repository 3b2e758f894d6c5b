// Package realtime tracks live WebSocket connections and fans events out
// to them.
//
// The Registry holds the set of open connections per principal; the
// Dispatcher routes events to administrators, to individual clients, or
// to every client assigned to an area. Both are purely in-memory: a
// restart drops all connections and clients are expected to reconnect.
// Delivery is best-effort with no replay.
package realtime
