// Package handlers implements the HTTP surface: the MJPEG stream
// endpoint, health and readiness probes, the stats API, and visibility
// control.
package handlers
