// Package broadcast implements the transport-agnostic event fan-out for the
// live stream: readings, predictions, and alerts published once and delivered
// to every subscriber over its own bounded queue.
//
// Publish never blocks. A slow subscriber loses its oldest buffered events;
// it cannot stall ingestion or other subscribers. Package ws adapts
// subscribers onto WebSocket connections.
package broadcast
