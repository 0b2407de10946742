// Package spdxdoc provides a view over a parsed SPDX document and the
// structural verification rules of the SPDX 2.x specification.
package spdxdoc

import (
	"errors"
	"fmt"

	"github.com/spdx/tools-golang/spdx"
)

// ModelError reports that a document could not be materialized or analyzed
// because its model is inconsistent.
type ModelError struct {
	Op  string
	Err error
}

func (e *ModelError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *ModelError) Unwrap() error { return e.Err }

// IsModelError reports whether err or anything it wraps is a ModelError.
func IsModelError(err error) bool {
	var me *ModelError
	return errors.As(err, &me)
}

// Source resolves a document URI to a parsed document.
type Source interface {
	Document(uri string) (*spdx.Document, error)
}

// Document is an SPDX document loaded from a Source. The Source keeps
// ownership of the underlying resources.
type Document struct {
	uri    string
	source Source
	doc    *spdx.Document
}

// New builds a Document for uri from src.
func New(src Source, uri string) (*Document, error) {
	if src == nil {
		return nil, &ModelError{Op: "load document", Err: errors.New("no document source")}
	}
	doc, err := src.Document(uri)
	if err != nil {
		return nil, &ModelError{Op: "load document", Err: err}
	}
	if doc == nil {
		return nil, &ModelError{Op: "load document", Err: fmt.Errorf("document %s is empty", uri)}
	}
	return &Document{uri: uri, source: src, doc: doc}, nil
}

// URI returns the document URI the document was loaded under.
func (d *Document) URI() string { return d.uri }

// Source returns the Source the document was loaded from.
func (d *Document) Source() Source { return d.source }

// SPDX returns the underlying parsed model.
func (d *Document) SPDX() *spdx.Document { return d.doc }

// Verify checks the document against the SPDX structural rules and returns
// one message per violation. An empty result means the document is valid.
func (d *Document) Verify() []string {
	return Verify(d.doc)
}
