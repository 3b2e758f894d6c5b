package telemetry

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// RecordEvent records one event dispatch and how many connections
// received it. Satisfies the dispatcher's sink interface.
func (c *Client) RecordEvent(event string, recipients int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"events",
		map[string]string{
			"event": event,
		},
		map[string]interface{}{
			"recipients": recipients,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// RecordHTTPRequest records one API request's outcome and latency.
func (c *Client) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"http_requests",
		map[string]string{
			"method": method,
			"route":  route,
		},
		map[string]interface{}{
			"status":      status,
			"duration_ms": float64(duration.Microseconds()) / 1000.0,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// RecordConnections records the current live WebSocket connection count.
func (c *Client) RecordConnections(count int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"connections",
		nil,
		map[string]interface{}{
			"count": count,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
