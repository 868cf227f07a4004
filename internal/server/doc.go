// Package server exposes the monitor over HTTP: JSON endpoints for the
// cached pool set, on-demand collection, current arbitrage opportunities,
// and operational stats, plus the /ws upgrade point for the streaming
// distribution loop. CORS is permissive; the API is read-only.
package server
