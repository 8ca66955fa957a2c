// Package encode converts composited frames to JPEG for the streaming
// endpoint, using libvips when available and a pure-Go fallback otherwise.
package encode
