// Package gemini implements the generation backends on top of Google's Gemini
// API. Scripts and scene prompts come from a text model; thumbnails come from
// an image model and are returned inline as base64 data URLs.
//
// Every API call goes through the same retry loop: transient failures are
// retried with exponential backoff and jitter, while safety blocks and
// malformed responses are returned immediately.
package gemini
