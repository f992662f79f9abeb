// Package realtime pushes queue and profile state to connected clients over
// Server-Sent Events. A Hub fans messages out per channel; a Bus carries
// them to the Hub, either directly (LocalBus) or through Redis pub/sub
// (RedisBus) so every API instance sees every message.
package realtime
