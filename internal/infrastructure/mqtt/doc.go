// Package mqtt provides the optional outbound event mirror.
//
// When enabled, every event dispatched to WebSocket connections is also
// published to homelink/event/<name> on the configured broker, and the
// hub's own liveness is announced on homelink/system/status with a Last
// Will for crash detection. The hub never subscribes: MQTT is an
// observation surface, not a command surface.
//
// The mirror is disabled by default and the hub is fully functional
// without a broker.
package mqtt
