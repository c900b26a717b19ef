// Package translation sends text to an OpenAI-compatible completion API (or
// Gemini) and returns the translated text. It includes a model router and a
// circuit breaker around the remote calls.
package translation
