package batch

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Entry is one text to translate
type Entry struct {
	Text string
	// ToLang overrides the target language when set
	ToLang string
}

// ReadBatchFile reads entries from a file
// Supports formats:
// - Text only: "good morning" (translated into the default target language)
// - With target: "good morning = de" (translated into German)
// - Comments: lines starting with '#' are ignored
func ReadBatchFile(filename string) ([]Entry, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	defer f.Close()

	entries, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	return entries, nil
}

// Parse reads entries from r
func Parse(r io.Reader) ([]Entry, error) {
	var entries []Entry

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if entry, ok := parseLine(line); ok {
			entries = append(entries, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// parseLine splits "text = lang". A right-hand side that is not a single
// language code is treated as part of the text.
func parseLine(line string) (Entry, bool) {
	i := strings.LastIndex(line, "=")
	if i < 0 {
		return Entry{Text: line}, true
	}

	text := strings.TrimSpace(line[:i])
	lang := strings.TrimSpace(line[i+1:])
	if lang == "" || strings.ContainsAny(lang, " \t") {
		return Entry{Text: line}, true
	}
	if text == "" {
		// Ignore lines without text
		return Entry{}, false
	}
	return Entry{Text: text, ToLang: lang}, true
}
