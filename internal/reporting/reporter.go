// internal/reporting/reporter.go

// Package reporting writes the outcome of an exploration run to a file or
// stdout, as plain text or JSON.
package reporting

import (
	"fmt"
	"io"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Report is the result of exploring a single target.
type Report struct {
	RunID       string    `json:"run_id"`
	Target      string    `json:"target"`
	GeneratedAt time.Time `json:"generated_at"`
	Links       []string  `json:"links"`
}

// Reporter writes run reports to an output.
type Reporter interface {
	// Write renders a report to the underlying output.
	Write(report *Report) error
	// Close finalizes the report and releases the underlying resources.
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// New creates a reporter for the given format, writing to outputPath or to
// stdout when the path is empty or "stdout".
func New(format, outputPath string) (Reporter, error) {
	var writer io.WriteCloser
	isStdOut := outputPath == "" || outputPath == "stdout"

	if isStdOut {
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}

	switch format {
	case "json":
		return &jsonReporter{writer: writer}, nil
	case "text":
		return &textReporter{writer: writer}, nil
	default:
		if !isStdOut {
			writer.Close()
		}
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

type jsonReporter struct {
	writer io.WriteCloser
}

func (r *jsonReporter) Write(report *Report) error {
	enc := json.NewEncoder(r.writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

func (r *jsonReporter) Close() error {
	return r.writer.Close()
}

type textReporter struct {
	writer io.WriteCloser
}

func (r *textReporter) Write(report *Report) error {
	var err error
	write := func(format string, args ...any) {
		if err != nil {
			return
		}
		_, err = fmt.Fprintf(r.writer, format, args...)
	}

	write("Exploration of %s (run %s)\n", report.Target, report.RunID)
	write("Generated %s\n", report.GeneratedAt.Format(time.RFC3339))
	write("Document links found: %d\n", len(report.Links))
	for i, link := range report.Links {
		write("  %2d. %s\n", i+1, link)
	}
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func (r *textReporter) Close() error {
	return r.writer.Close()
}
