package spdxdoc

import (
	"errors"
	"fmt"
	"testing"

	"github.com/spdx/tools-golang/spdx"
)

type mapSource map[string]*spdx.Document

func (m mapSource) Document(uri string) (*spdx.Document, error) {
	doc, ok := m[uri]
	if !ok {
		return nil, fmt.Errorf("unknown document %s", uri)
	}
	return doc, nil
}

func TestNewDocument(t *testing.T) {
	src := mapSource{"https://example.com/doc": validDocument()}

	doc, err := New(src, "https://example.com/doc")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if doc.URI() != "https://example.com/doc" {
		t.Errorf("Expected URI https://example.com/doc, got %s", doc.URI())
	}
	if doc.SPDX().DocumentName != "hello-world" {
		t.Errorf("Expected document name hello-world, got %s", doc.SPDX().DocumentName)
	}
	if doc.Source() == nil {
		t.Error("Expected document to keep its source")
	}
	if v := doc.Verify(); len(v) != 0 {
		t.Errorf("Expected no violations, got %v", v)
	}
}

func TestNewDocumentErrors(t *testing.T) {
	tests := []struct {
		name string
		src  Source
		uri  string
	}{
		{"nil source", nil, "x"},
		{"unknown uri", mapSource{}, "https://example.com/missing"},
		{"nil document", mapSource{"x": nil}, "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.src, tt.uri)
			if err == nil {
				t.Fatal("Expected error")
			}
			if !IsModelError(err) {
				t.Errorf("Expected a ModelError, got %T", err)
			}
		})
	}
}

func TestModelErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("render: %w", &ModelError{Op: "resolve", Err: cause})

	if !IsModelError(err) {
		t.Error("Expected wrapped ModelError to be detected")
	}
	if !errors.Is(err, cause) {
		t.Error("Expected ModelError to unwrap to its cause")
	}
	if got := (&ModelError{Op: "resolve", Err: cause}).Error(); got != "resolve: boom" {
		t.Errorf("Expected 'resolve: boom', got %q", got)
	}
}
