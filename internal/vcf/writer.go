// Package vcf provides VCF file parsing functionality.
package vcf

import (
	"bufio"
	"fmt"
	"os"
)

// Writer writes variants back out as VCF, preserving their verbatim source
// lines so the output can be re-read by Parser without loss.
type Writer struct {
	w    *bufio.Writer
	file *os.File
}

// NewWriter creates a VCF writer at path and writes the header lines.
// Use "-" to write to stdout.
func NewWriter(path string, header []string) (*Writer, error) {
	w := &Writer{}

	if path == "-" {
		w.w = bufio.NewWriter(os.Stdout)
	} else {
		file, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("create vcf file: %w", err)
		}
		w.file = file
		w.w = bufio.NewWriter(file)
	}

	for _, line := range header {
		if _, err := w.w.WriteString(line + "\n"); err != nil {
			w.Close()
			return nil, fmt.Errorf("write vcf header: %w", err)
		}
	}

	return w, nil
}

// Write appends one variant record, byte-for-byte as it was parsed.
func (w *Writer) Write(v *Variant) error {
	if _, err := w.w.WriteString(v.Raw + "\n"); err != nil {
		return fmt.Errorf("write vcf record: %w", err)
	}
	return nil
}

// Close flushes buffered records and closes the underlying file.
func (w *Writer) Close() error {
	flushErr := w.w.Flush()
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			return err
		}
	}
	return flushErr
}
