// Package storage provides durable local storage for polyglot. Values are
// JSON documents addressed by key, kept in a SQLite database or in memory,
// and exposed through Value, a persisted value with change notification.
package storage
