package processor

import (
	"context"
	"fmt"
	"io"
	"os"

	"codeberg.org/snonux/polyglot/internal/batch"
	"codeberg.org/snonux/polyglot/internal/cli"
	"codeberg.org/snonux/polyglot/internal/session"
)

// Processor handles translations requested on the command line
type Processor struct {
	flags   *cli.Flags
	session *session.Session
	out     io.Writer
}

// NewProcessor creates a new processor
func NewProcessor(flags *cli.Flags, sess *session.Session) *Processor {
	return &Processor{
		flags:   flags,
		session: sess,
		out:     os.Stdout,
	}
}

// SetOutput redirects progress output
func (p *Processor) SetOutput(w io.Writer) {
	p.out = w
}

// ProcessSingle translates one text into the target language from the flags
func (p *Processor) ProcessSingle(ctx context.Context, text string) error {
	if text == "" {
		return fmt.Errorf("nothing to translate")
	}

	translated, streamed, err := p.translate(ctx, text, p.flags.To)
	if err != nil {
		return fmt.Errorf("translation failed: %w", err)
	}

	if streamed {
		fmt.Fprintln(p.out)
	} else {
		fmt.Fprintln(p.out, translated)
	}
	return nil
}

// ProcessBatch translates every entry of the batch file
func (p *Processor) ProcessBatch(ctx context.Context) error {
	entries, err := batch.ReadBatchFile(p.flags.BatchFile)
	if err != nil {
		return err
	}

	// Track statistics
	processedCount := 0
	errorCount := 0

	for i, entry := range entries {
		to := entry.ToLang
		if to == "" {
			to = p.flags.To
		}

		fmt.Fprintf(p.out, "\nTranslating %d/%d: %s (%s -> %s)\n", i+1, len(entries), entry.Text, p.flags.From, to)

		translated, streamed, err := p.translate(ctx, entry.Text, to)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error translating '%s': %v\n", entry.Text, err)
			errorCount++
			// Continue with next entry
			continue
		}

		if streamed {
			fmt.Fprintln(p.out)
		} else {
			fmt.Fprintf(p.out, "  %s\n", translated)
		}
		processedCount++
	}

	// Print summary
	fmt.Fprintf(p.out, "\n=== Batch Translation Summary ===\n")
	fmt.Fprintf(p.out, "Total texts: %d\n", len(entries))
	fmt.Fprintf(p.out, "Translated: %d\n", processedCount)
	if errorCount > 0 {
		fmt.Fprintf(p.out, "Errors: %d\n", errorCount)
	}
	fmt.Fprintf(p.out, "=================================\n")

	return nil
}

// translate runs one request through the session and waits for it. The
// second result reports whether the answer was already printed as a stream.
func (p *Processor) translate(ctx context.Context, text, to string) (string, bool, error) {
	if p.flags.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.flags.Timeout)
		defer cancel()
	}

	streamed := false
	var onDelta func(string)
	if p.session.Config().StreamEnabled {
		onDelta = func(delta string) {
			streamed = true
			fmt.Fprint(p.out, delta)
		}
	}

	call, err := p.session.TranslateStream(ctx, text, p.flags.From, to, onDelta)
	if err != nil {
		return "", false, err
	}

	translated, err := call.Wait(ctx)
	if err != nil {
		// The request may still be streaming into p.out; let it finish
		// before anything else is printed.
		<-call.Done()
		return "", false, err
	}
	return translated, streamed, nil
}
