package dataset

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/urbanrisk/crimeml/pkg/errors"
)

// Source is the dataset-reading collaborator: a header row plus a
// restartable row iterator over the raw source file.
type Source interface {
	// Header returns the raw header row.
	Header() ([]string, error)

	// Next returns the next data row, or io.EOF when exhausted.
	Next() ([]string, error)

	// Reset rewinds the source to the first data row.
	Reset() error

	// Name identifies the source for error messages.
	Name() string

	// Close releases the underlying reader.
	Close() error
}

// CSVSource reads CSV rows from a file resolved through a FileStore.
// Reset reopens the file, so the source can be iterated any number of
// times without holding the whole dataset in memory.
type CSVSource struct {
	path   string
	name   string
	file   *os.File
	reader *csv.Reader
	header []string
}

// NewCSVSource opens a CSV file from the store and reads its header row.
func NewCSVSource(store FileStore, name string) (*CSVSource, error) {
	s := &CSVSource{path: store.Path(name), name: name}
	if err := s.Reset(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewCSVFileSource opens a CSV file directly from an absolute path.
func NewCSVFileSource(path string) (*CSVSource, error) {
	s := &CSVSource{path: path, name: path}
	if err := s.Reset(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *CSVSource) Header() ([]string, error) {
	return s.header, nil
}

func (s *CSVSource) Next() ([]string, error) {
	record, err := s.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		// Ragged or quoted-badly rows are the caller's skip decision, not
		// a fatal condition for the whole source.
		if parseErr, ok := err.(*csv.ParseError); ok {
			return nil, parseErr
		}
		return nil, errors.Wrapf(err, "read row from %s", s.name)
	}
	return record, nil
}

func (s *CSVSource) Reset() error {
	if s.file != nil {
		s.file.Close() //nolint:errcheck
	}
	file, err := os.Open(s.path)
	if err != nil {
		return errors.Wrapf(err, "open dataset %s", s.name)
	}
	s.file = file
	s.reader = csv.NewReader(file)
	s.reader.FieldsPerRecord = -1
	s.reader.TrimLeadingSpace = true

	header, err := s.reader.Read()
	if err != nil {
		file.Close() //nolint:errcheck
		return errors.Wrapf(err, "read header of %s", s.name)
	}
	s.header = header
	return nil
}

func (s *CSVSource) Name() string {
	return s.name
}

func (s *CSVSource) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
