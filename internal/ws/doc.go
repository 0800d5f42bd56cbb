// Package ws serves the live event stream over WebSocket.
//
// Each connection gets its own broadcaster subscription; reading, prediction,
// and alert events arrive as JSON envelopes:
//
//	{"type": "alert", "data": { ... }, "timestamp": "..."}
//
// Ping/pong keepalive detects dead peers. The upgrader accepts all origins;
// apply CORS restrictions at the reverse-proxy level. The endpoint is mounted
// at /ws/stream by the server.
package ws
