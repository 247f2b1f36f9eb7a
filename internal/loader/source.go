package loader

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/htmlindex"

	"github.com/odyssey-erp/quadro/internal/registry"
	"github.com/odyssey-erp/quadro/internal/shared"
)

// Source reads tab-delimited rows from the source file.
type Source struct {
	file   *os.File
	buf    *bufio.Reader
	reader *csv.Reader
	// skipped counts physical lines consumed before the csv reader took over.
	skipped int
	line    int
}

// OpenSource opens path and decodes it from the named text encoding. An empty name or
// "utf-8" passes bytes through untouched; any WHATWG label (latin1, windows-1252, ...)
// is accepted otherwise.
func OpenSource(path, encoding string) (*Source, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: open source %s: %w: %w", path, shared.ErrIO, err)
	}

	var in io.Reader = file
	if !isUTF8(encoding) {
		enc, err := htmlindex.Get(encoding)
		if err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("loader: source encoding %q: %w", encoding, err)
		}
		in = enc.NewDecoder().Reader(file)
	}

	buf := bufio.NewReader(in)
	reader := csv.NewReader(buf)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return &Source{file: file, buf: buf, reader: reader}, nil
}

// SkipHeader discards physical line 1 whatever it holds, including nothing at all. It
// must run before the first Next. An empty file is not an error.
func (s *Source) SkipHeader() error {
	_, err := s.buf.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("loader: read source: %w: %w", shared.ErrIO, err)
	}
	s.skipped = 1
	s.line = 1
	return nil
}

// Next returns the next data row. It returns io.EOF after the last row and an ErrSchema
// error for a row that does not have exactly registry.ColumnCount fields.
func (s *Source) Next() ([]string, error) {
	row, err := s.read()
	if err != nil {
		return nil, err
	}
	if len(row) != registry.ColumnCount {
		return nil, fmt.Errorf("loader: line %d: %w: expected %d fields, got %d",
			s.line, shared.ErrSchema, registry.ColumnCount, len(row))
	}
	return row, nil
}

// Line reports the source line of the last record read.
func (s *Source) Line() int {
	return s.line
}

// Close releases the file.
func (s *Source) Close() error {
	return s.file.Close()
}

func (s *Source) read() ([]string, error) {
	row, err := s.reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return nil, fmt.Errorf("loader: line %d: %w: %w", parseErr.Line+s.skipped, shared.ErrSchema, err)
		}
		return nil, fmt.Errorf("loader: read source: %w: %w", shared.ErrIO, err)
	}
	line, _ := s.reader.FieldPos(0)
	s.line = line + s.skipped
	return row, nil
}

func isUTF8(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return true
	}
	return false
}
