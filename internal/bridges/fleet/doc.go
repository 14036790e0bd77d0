// Package fleet implements the vehicle telemetry stream bridge.
//
// The bridge maintains one WebSocket session per configured vehicle. Each
// session subscribes to the upstream streaming endpoint with the vehicle's
// VIN, normalizes incoming field frames through the telemetry package and
// publishes the results to per-vehicle MQTT topics.
//
// # Session Lifecycle
//
// A session cycles through connect, subscribe and stream phases. Any
// failure (dial error, unconfirmed subscription, closed stream, vehicle
// offline) ends the cycle; the session then sleeps per its reconnect
// policy and starts over. The policy's backoff resets only once a
// subscription is confirmed, so a vehicle that connects but never
// confirms keeps backing off.
//
// Sessions are fully independent: one vehicle going offline never stalls
// or delays another vehicle's stream.
//
// # Shutdown
//
// Cancelling the context passed to Bridge.Start stops all sessions. Each
// session publishes a final "disconnected" state before exiting. Stop
// waits a bounded time for sessions to drain.
package fleet
