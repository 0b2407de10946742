package viewer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"testing"

	"github.com/spdx/tools-golang/spdx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/build-flow-labs/spdxview/render"
	"github.com/build-flow-labs/spdxview/spdxdoc"
	"github.com/build-flow-labs/spdxview/store"
)

const testURI = "https://example.com/spdx/test"

type fakeStore struct {
	doc      *spdx.Document
	openErr  error
	closeErr error
	opened   []string
	closes   int
}

func (s *fakeStore) Open(_ context.Context, path string) (string, error) {
	s.opened = append(s.opened, path)
	if s.openErr != nil {
		return "", s.openErr
	}
	return testURI, nil
}

func (s *fakeStore) Document(uri string) (*spdx.Document, error) {
	if uri != testURI {
		return nil, fmt.Errorf("unknown uri %s", uri)
	}
	return s.doc, nil
}

func (s *fakeStore) Close() error {
	s.closes++
	return s.closeErr
}

type fakeDocument struct {
	violations []string
	doc        *spdx.Document
}

func (d *fakeDocument) Verify() []string { return d.violations }
func (d *fakeDocument) SPDX() *spdx.Document { return d.doc }

type fakeRenderer struct {
	output   string
	err      error
	panicMsg string
}

func (r *fakeRenderer) LoadConstants(resourceID string) (*render.Constants, error) {
	return render.LoadConstants(resourceID)
}

func (r *fakeRenderer) Render(w io.Writer, _ *spdx.Document, _ *render.Constants) error {
	io.WriteString(w, r.output)
	if r.panicMsg != "" {
		panic(r.panicMsg)
	}
	return r.err
}

type harness struct {
	inspector *Inspector
	store     *fakeStore
	document  *fakeDocument
	renderer  *fakeRenderer
	stores    int
	stdout    bytes.Buffer
	stderr    bytes.Buffer
}

func newHarness() *harness {
	h := &harness{
		store:    &fakeStore{doc: &spdx.Document{DocumentName: "test"}},
		renderer: &fakeRenderer{output: "RENDERED\n"},
	}
	h.document = &fakeDocument{doc: h.store.doc}
	h.inspector = &Inspector{
		NewStore: func() Store {
			h.stores++
			return h.store
		},
		NewDocument: func(src spdxdoc.Source, uri string) (Document, error) {
			if _, err := src.Document(uri); err != nil {
				return nil, &spdxdoc.ModelError{Op: "load document", Err: err}
			}
			return h.document, nil
		},
		Renderer: h.renderer,
		Stdout:   &h.stdout,
		Stderr:   &h.stderr,
	}
	return h
}

func TestRunWithoutArguments(t *testing.T) {
	h := newHarness()

	out := h.inspector.Run(context.Background(), nil)

	assert.Equal(t, usage, h.stderr.String())
	assert.Empty(t, h.stdout.String())
	assert.Zero(t, h.stores)
	require.NotNil(t, out.Err)
	assert.Equal(t, KindUsage, out.Err.Kind)
}

func TestRunExtraArguments(t *testing.T) {
	h := newHarness()

	out := h.inspector.Run(context.Background(), []string{"first.json", "second.json", "third.json"})

	assert.Equal(t, extraArgsWarning+"RENDERED\n", h.stdout.String())
	assert.Equal(t, []string{"first.json"}, h.store.opened)
	assert.Equal(t, "first.json", out.Path)
	assert.Nil(t, out.Err)
}

func TestRunValidDocument(t *testing.T) {
	h := newHarness()

	out := h.inspector.Run(context.Background(), []string{"doc.json"})

	assert.Equal(t, "RENDERED\n", h.stdout.String())
	assert.Empty(t, h.stderr.String())
	assert.Equal(t, 1, h.store.closes)
	assert.Equal(t, testURI, out.URI)
	assert.True(t, out.Valid())
	assert.NotEmpty(t, out.RunID)
}

func TestRunInvalidDocument(t *testing.T) {
	h := newHarness()
	h.document.violations = []string{"Missing document name", "Package SPDXRef-a: missing download location"}

	out := h.inspector.Run(context.Background(), []string{"doc.json"})

	want := "This SPDX Document is not valid due to:\n" +
		"\tMissing document name\n" +
		"\tPackage SPDXRef-a: missing download location\n" +
		"RENDERED\n"
	assert.Equal(t, want, h.stdout.String())
	assert.Equal(t, h.document.violations, out.Violations)
	assert.Nil(t, out.Err)
	assert.False(t, out.Valid())
}

func TestRunLoadFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness)
		cause string
	}{
		{
			name:  "open fails",
			setup: func(h *harness) { h.store.openErr = fmt.Errorf("open doc.json: %w", fs.ErrNotExist) },
			cause: "open doc.json: file does not exist",
		},
		{
			name: "document cannot be built",
			setup: func(h *harness) {
				h.inspector.NewDocument = func(spdxdoc.Source, string) (Document, error) {
					return nil, &spdxdoc.ModelError{Op: "load document", Err: errors.New("no such graph")}
				}
			},
			cause: "load document: no such graph",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			tt.setup(h)

			out := h.inspector.Run(context.Background(), []string{"doc.json"})

			assert.Equal(t, "Error creating SPDX Document: "+tt.cause+"\n", h.stdout.String())
			assert.NotContains(t, h.stdout.String(), invalidHeader)
			assert.Equal(t, 1, h.store.closes)
			require.NotNil(t, out.Err)
			assert.Equal(t, KindLoad, out.Err.Kind)
		})
	}
}

func TestRunRenderFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
		want string
	}{
		{
			name: "model error",
			err:  fmt.Errorf("printing: %w", &spdxdoc.ModelError{Op: "render", Err: errors.New("dangling package")}),
			kind: KindModel,
			want: "Error pretty printing SPDX Document: printing: render: dangling package\n",
		},
		{
			name: "other error",
			err:  errors.New("broken pipe"),
			kind: KindUnexpected,
			want: "Unexpected error displaying SPDX Document: broken pipe\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.renderer.output = ""
			h.renderer.err = tt.err

			out := h.inspector.Run(context.Background(), []string{"doc.json"})

			assert.Equal(t, tt.want, h.stdout.String())
			require.NotNil(t, out.Err)
			assert.Equal(t, tt.kind, out.Err.Kind)
			assert.Equal(t, 1, h.store.closes)
		})
	}
}

func TestRunRecoversRenderPanic(t *testing.T) {
	h := newHarness()
	h.renderer.output = "SPDX Document\n"
	h.renderer.panicMsg = "nil map"

	var out Outcome
	require.NotPanics(t, func() {
		out = h.inspector.Run(context.Background(), []string{"doc.json"})
	})

	assert.Equal(t, "SPDX Document\nUnexpected error displaying SPDX Document: nil map\n", h.stdout.String())
	assert.Equal(t, 1, h.store.closes)
	require.NotNil(t, out.Err)
	assert.Equal(t, KindUnexpected, out.Err.Kind)
}

func TestRunCloseWarning(t *testing.T) {
	h := newHarness()
	h.store.closeErr = errors.New("disk gone")

	out := h.inspector.Run(context.Background(), []string{"doc.json"})

	assert.Equal(t, "RENDERED\nWarning - unable to close SPDX store: disk gone\n", h.stdout.String())
	assert.Nil(t, out.Err)
	require.NotNil(t, out.CloseErr)
	assert.Equal(t, KindCleanup, out.CloseErr.Kind)
}

func TestRunIsIdempotent(t *testing.T) {
	h := newHarness()
	h.document.violations = []string{"Missing creator"}

	h.inspector.Run(context.Background(), []string{"doc.json"})
	first := h.stdout.String()
	h.stdout.Reset()
	h.inspector.Run(context.Background(), []string{"doc.json"})

	assert.Equal(t, first, h.stdout.String())
	assert.Equal(t, 2, h.store.closes)
}

func TestRunWithBundledCollaborators(t *testing.T) {
	inspect := func(path string) (string, Outcome) {
		var stdout, stderr bytes.Buffer
		in := &Inspector{
			NewStore:    func() Store { return store.New() },
			NewDocument: NewDocument,
			Renderer:    render.NewPrinter(""),
			Stdout:      &stdout,
			Stderr:      &stderr,
		}
		out := in.Run(context.Background(), []string{path})
		return stdout.String(), out
	}

	first, out := inspect("../../store/testdata/hello.spdx.json")
	require.Nil(t, out.Err)
	assert.Equal(t, "https://example.com/spdx/hello-world-1.0", out.URI)
	assert.Contains(t, first, "SPDX Document\n")
	assert.Contains(t, first, "Package Name: hello")

	second, _ := inspect("../../store/testdata/hello.spdx.json")
	assert.Equal(t, first, second)

	missing, out := inspect("../../store/testdata/absent.spdx.json")
	assert.True(t, strings.HasPrefix(missing, "Error creating SPDX Document: "))
	require.NotNil(t, out.Err)
	assert.Equal(t, KindLoad, out.Err.Kind)

	garbage, _ := inspect("../../store/testdata/garbage.txt")
	assert.True(t, strings.HasPrefix(garbage, "Error creating SPDX Document: "))
	assert.NotContains(t, garbage, "SPDX Document\n")
}

func TestRunRendersEveryFormatWithCanonicalIdentifiers(t *testing.T) {
	tests := []struct {
		path    string
		version string
		invalid bool
	}{
		{path: "../../store/testdata/hello.spdx.rdf", version: "SPDX-2.2"},
		{path: "../../store/testdata/hello.spdx.yaml", version: "SPDX-2.3"},
		{path: "../../store/testdata/legacy-2.2.spdx", version: "SPDX-2.2"},
		{path: "../../store/testdata/legacy-2.2.spdx.json", version: "SPDX-2.2", invalid: true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			in := &Inspector{
				NewStore:    func() Store { return store.New() },
				NewDocument: NewDocument,
				Renderer:    render.NewPrinter(""),
				Stdout:      &stdout,
				Stderr:      &stderr,
			}

			out := in.Run(context.Background(), []string{tt.path})
			got := stdout.String()

			require.Nil(t, out.Err, got)
			assert.Equal(t, tt.invalid, strings.HasPrefix(got, invalidHeader), got)
			assert.Contains(t, got, "SPDX Identifier: SPDXRef-DOCUMENT\n")
			assert.Contains(t, got, "SPDX Version: "+tt.version+"\n")
			assert.NotContains(t, got, "SPDXRef-SPDXRef-")
		})
	}
}

func TestErrorMessages(t *testing.T) {
	cause := errors.New("cause")
	assert.Equal(t, usage, (&Error{Kind: KindUsage, Err: cause}).Message())
	assert.Equal(t, "Error creating SPDX Document: cause\n", (&Error{Kind: KindLoad, Err: cause}).Message())
	assert.Equal(t, "Warning - unable to close SPDX store: cause\n", (&Error{Kind: KindCleanup, Err: cause}).Message())

	err := &Error{Kind: KindModel, Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "model: cause", err.Error())
}
