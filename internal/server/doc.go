// Package server exposes the store over HTTP with Fiber: read an entry, add
// an entry once, and trigger a dump. Every request gets an X-Request-ID and an
// access log line; store errors map onto HTTP status codes so that a miss is
// a 404, a duplicate write a 409 and everything else a 4xx/5xx with a short
// machine-readable error code.
package server
