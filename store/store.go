// Package store loads SPDX documents from their serialized form and owns the
// resources backing them. A Store is opened once per inspection and must be
// closed by the caller.
package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spdx/tools-golang/spdx"

	spdxjson "github.com/spdx/tools-golang/json"
	spdxrdf "github.com/spdx/tools-golang/rdf"
	spdxtv "github.com/spdx/tools-golang/tagvalue"
	spdxyaml "github.com/spdx/tools-golang/yaml"
)

var (
	// ErrClosed is returned by operations on a Store that has been closed.
	ErrClosed = errors.New("store is closed")
	// ErrUnknownDocument is returned when no document is registered for a URI.
	ErrUnknownDocument = errors.New("no document loaded for URI")
)

// Source fetches the raw bytes of a document. The returned closer, when
// non-nil, is owned by the Store and released on Close.
type Source interface {
	Fetch(ctx context.Context, path string) ([]byte, io.Closer, error)
}

// Option configures a Store.
type Option func(*Store)

// WithFormat forces a serialization format instead of detecting it.
func WithFormat(f Format) Option {
	return func(s *Store) { s.format = f }
}

// WithSource replaces the local file source.
func WithSource(src Source) Option {
	return func(s *Store) { s.source = src }
}

// WithLogger sets the logger used for load diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Store holds parsed SPDX documents keyed by document URI.
type Store struct {
	format  Format
	source  Source
	logger  *slog.Logger
	docs    map[string]*spdx.Document
	closers []io.Closer
	closed  bool
}

// New creates an empty Store reading local files unless configured otherwise.
func New(opts ...Option) *Store {
	s := &Store{
		format: FormatAuto,
		source: FileSource{},
		logger: slog.Default(),
		docs:   make(map[string]*spdx.Document),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open reads and parses the document at path and returns its document URI,
// which is the document namespace when one is declared.
func (s *Store) Open(ctx context.Context, path string) (string, error) {
	if s.closed {
		return "", ErrClosed
	}

	content, closer, err := s.source.Fetch(ctx, path)
	if closer != nil {
		s.closers = append(s.closers, closer)
	}
	if err != nil {
		return "", err
	}

	format := s.format
	if format == FormatAuto {
		format, err = DetectFormat(path, content)
		if err != nil {
			return "", fmt.Errorf("%s: %w", path, err)
		}
	}

	doc, err := decode(format, content)
	if err != nil {
		return "", fmt.Errorf("parsing %s as %s: %w", path, format, err)
	}
	normalize(doc, DeclaredVersion(format, content))

	uri := doc.DocumentNamespace
	if uri == "" {
		uri = fallbackURI(path)
	}
	s.docs[uri] = doc

	s.logger.Debug("loaded SPDX document",
		"path", path,
		"format", format,
		"bytes", len(content),
		"uri", uri,
		"version", doc.SPDXVersion,
		"packages", len(doc.Packages),
	)
	return uri, nil
}

// Document returns the parsed document registered under uri.
func (s *Store) Document(uri string) (*spdx.Document, error) {
	if s.closed {
		return nil, ErrClosed
	}
	doc, ok := s.docs[uri]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDocument, uri)
	}
	return doc, nil
}

// Close releases every resource acquired by Open. Closing twice returns ErrClosed.
func (s *Store) Close() error {
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	s.docs = nil

	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func decode(format Format, content []byte) (*spdx.Document, error) {
	r := bytes.NewReader(content)
	switch format {
	case FormatRDF:
		return spdxrdf.Read(r)
	case FormatJSON:
		return spdxjson.Read(r)
	case FormatYAML:
		return spdxyaml.Read(r)
	case FormatTagValue:
		return spdxtv.Read(r)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func fallbackURI(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return "file://" + filepath.ToSlash(path)
}

// FileSource reads documents from the local filesystem. The file handle stays
// open until the owning Store is closed.
type FileSource struct{}

// Fetch opens path and reads it fully.
func (FileSource) Fetch(_ context.Context, path string) ([]byte, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, f, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, f, nil
}
