// Package history keeps the list of completed translations, newest first,
// in durable storage.
package history
