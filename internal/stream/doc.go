// Package stream pushes pool snapshots and arbitrage alerts to websocket
// subscribers. Each accepted connection gets its own session goroutine
// that broadcasts the cache contents on a fixed interval, runs detection
// over the same snapshot, and enforces a heartbeat. Sessions are fully
// independent: a slow or dead client only terminates its own session.
package stream
