// Package api exposes the generation queue over HTTP. It authenticates the
// principal, translates requests into service calls, maps service errors to
// status codes, and streams queue and profile changes as server-sent events.
package api
