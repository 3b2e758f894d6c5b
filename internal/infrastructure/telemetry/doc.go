// Package telemetry provides the optional InfluxDB metrics sink.
//
// When enabled it records event dispatch volume, HTTP request timings,
// and connection counts. Writes are batched and asynchronous; a slow or
// absent InfluxDB never delays a request or an event. Disabled by
// default.
package telemetry
