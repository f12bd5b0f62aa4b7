// Package middleware provides HTTP middleware for the audio merger.
//
// It includes:
//   - Request correlation through the X-Request-ID header
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics labelled by route template
package middleware
