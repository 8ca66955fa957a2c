// Package middleware provides the HTTP access-log and Prometheus metrics
// wrappers shared by all routes.
package middleware
