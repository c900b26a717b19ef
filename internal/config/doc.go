// Package config holds the user-editable translation settings: API
// endpoint, key, model, sampling temperature and streaming flag. Values are
// persisted through the storage package and merged with defaults on read.
package config
