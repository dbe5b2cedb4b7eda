// Package export turns a reconciled portfolio into tabular documents and
// publishes them to files, object storage and spreadsheets.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Document is one rendered export. Rows starts with the column header.
type Document struct {
	Args Args
	Rows [][]string
	CSV  string
}

// NewDocument renders args once for every sink.
func NewDocument(args Args) Document {
	return Document{
		Args: args,
		Rows: Rows(args),
		CSV:  BuildCSV(args),
	}
}

// BaseName is the file name stem used by sinks: the address plus the generation day.
func (d Document) BaseName() string {
	return fmt.Sprintf("%s_%s", safeName(d.Args.Address), d.Args.GeneratedAt.UTC().Format("2006-01-02"))
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func safeName(s string) string {
	s = unsafeChars.ReplaceAllString(strings.TrimSpace(s), "_")
	if s == "" {
		return "unknown"
	}
	return s
}

// Sink receives finished documents.
type Sink interface {
	Publish(ctx context.Context, doc Document) error
}

// Publisher fans a document out to every configured sink.
type Publisher struct {
	sinks []Sink
}

// NewPublisher creates a Publisher. Nil sinks are ignored.
func NewPublisher(sinks ...Sink) *Publisher {
	p := &Publisher{}
	for _, s := range sinks {
		if s != nil {
			p.sinks = append(p.sinks, s)
		}
	}
	return p
}

// Publish sends doc to all sinks. A failing sink does not stop the others;
// the returned error joins every failure.
func (p *Publisher) Publish(ctx context.Context, doc Document) error {
	var errs []error
	for _, s := range p.sinks {
		if err := s.Publish(ctx, doc); err != nil {
			slog.Warn("export: sink failed", "sink", fmt.Sprintf("%T", s), "address", doc.Args.Address, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Format selects the file format written by DirSink.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// DirSink writes each document into a local directory.
type DirSink struct {
	Dir     string
	Formats []Format
}

// Publish writes doc as <dir>/<basename>.<format> for every configured format.
func (s DirSink) Publish(_ context.Context, doc Document) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("creating export dir: %w", err)
	}
	formats := s.Formats
	if len(formats) == 0 {
		formats = []Format{FormatCSV}
	}
	for _, f := range formats {
		path := filepath.Join(s.Dir, doc.BaseName()+"."+string(f))
		if err := WriteFile(path, f, doc); err != nil {
			return err
		}
		slog.Info("export: file written", "path", path)
	}
	return nil
}

// WriteFile writes doc to path in the given format.
func WriteFile(path string, f Format, doc Document) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer out.Close()

	switch f {
	case FormatXLSX:
		err = WriteXLSX(out, doc)
	default:
		_, err = out.WriteString(doc.CSV)
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return out.Close()
}
