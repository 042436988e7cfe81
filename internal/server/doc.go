// Package server provides the HTTP server for the dripfeed control panel.
//
// This package is internal to dripfeed and handles all HTTP concerns:
//
//   - Panel page: serves the embedded page at "/" with the start, stop and
//     status buttons and the message area
//   - Commands: POST /command/{cmd} forwards button presses to the poller
//   - Banner API: JSON snapshots at "/banner" and "/banner/history"
//   - Live updates: Server-Sent Events at "/events", WebSocket at "/ws"
//   - Metrics: Prometheus exposition at "/metrics"
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
package server
