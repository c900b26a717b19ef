// Package processor drives translations from the command line. It feeds
// single texts or batch files through the session and prints progress.
package processor
