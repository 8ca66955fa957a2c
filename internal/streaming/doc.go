// Package streaming writes encoded frames to HTTP clients as a
// multipart MJPEG stream, with timeout protection against slow readers.
package streaming
