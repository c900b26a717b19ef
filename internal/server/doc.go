// Package server exposes the session as a JSON HTTP API for a browser
// front-end.
package server
