// Package cexfeed implements the centralized-exchange price feed.
//
// The feed:
//   - Streams ticker frames from the Upbit WebSocket API
//   - Converts KRW trade prices to USD with a configured rate
//   - Keeps the latest price per symbol behind a read-write lock
//   - Reconnects with exponential backoff on connection loss
//   - Discovers KRW-quoted symbols over REST
//
// Consumers only ever read immutable snapshots via AllPrices; the feed
// never blocks a caller waiting for a symbol to appear.
package cexfeed
