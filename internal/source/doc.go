// Package source defines the pool data provider capability and its
// concrete implementations.
//
// Providers:
//   - GeckoTerminal: multi-chain pool search with LP reserve and volume
//   - DexScreener: pair search across major DEXes
//
// All providers are safe for concurrent use and report failures through
// the typed Error with a Kind (network, parse, rate_limit, not_found).
// The collector absorbs every provider error; none is fatal.
package source
