// Package models lists the models polyglot can route and, with an API key,
// the chat models offered by the configured endpoint.
package models
