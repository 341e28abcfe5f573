package output

import (
	"io"
	"os"

	"github.com/KilimcininKorOglu/nettool/internal/trace"
	"github.com/mattn/go-isatty"
)

// Writer handles output formatting and writing.
type Writer struct {
	formatter Formatter
	output    io.Writer
	isTTY     bool
}

// NewWriter creates a new output writer on stdout.
func NewWriter(format Format, config Config) *Writer {
	// Colors only make sense on a terminal
	isTTY := isTerminal(os.Stdout)
	if !isTTY {
		config.Colors = false
	}

	return &Writer{
		formatter: NewFormatter(format, config),
		output:    os.Stdout,
		isTTY:     isTTY,
	}
}

// NewWriterWithFormatter creates a writer with a specific formatter.
func NewWriterWithFormatter(formatter Formatter, output io.Writer) *Writer {
	return &Writer{
		formatter: formatter,
		output:    output,
		isTTY:     IsTerminal(output),
	}
}

// Write formats and writes the trace result.
func (w *Writer) Write(result *trace.Result) error {
	data, err := w.formatter.Format(result)
	if err != nil {
		return err
	}

	if _, err := w.output.Write(data); err != nil {
		return err
	}

	if f, ok := w.output.(*os.File); ok {
		_ = f.Sync()
	}

	return nil
}

// WriteString writes raw text, such as a streamed hop line.
func (w *Writer) WriteString(s string) error {
	_, err := io.WriteString(w.output, s)
	return err
}

// SetOutput changes the output destination.
func (w *Writer) SetOutput(output io.Writer) {
	w.output = output
	w.isTTY = IsTerminal(output)
}

// IsTTY returns whether the output is a terminal.
func (w *Writer) IsTTY() bool {
	return w.isTTY
}

// Formatter returns the underlying formatter.
func (w *Writer) Formatter() Formatter {
	return w.formatter
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isTerminal(f)
}

func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// WriteToFile writes the trace result to a file.
func WriteToFile(result *trace.Result, filename string, formatter Formatter) error {
	data, err := formatter.Format(result)
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0o600)
}
