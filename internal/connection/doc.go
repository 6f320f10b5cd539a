// Package connection implements the stream connection manager.
//
// The Manager:
//   - Owns zero or more named streams, each backed by at most one socket
//   - Authenticates streams whose provider requires it before subscribing
//   - Tracks per-category topic sets and replays them after every (re)authentication
//   - Reconnects abnormally closed streams with capped exponential backoff
//   - Sends periodic keep-alive frames while a socket is open
//   - Fans out messages and status transitions to per-stream observers
package connection
