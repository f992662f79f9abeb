// Package generation defines the boundary between the task queue and the
// external AI services that write scripts and render thumbnails. The queue
// treats each call as an opaque operation that either yields a result or
// fails; concrete adapters (Gemini) live under internal/platform.
package generation
