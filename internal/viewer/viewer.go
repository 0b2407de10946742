// Package viewer runs one inspection of an SPDX document: load it, report
// structural violations, then print it for humans.
package viewer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spdx/tools-golang/spdx"

	"github.com/build-flow-labs/spdxview/render"
	"github.com/build-flow-labs/spdxview/spdxdoc"
)

const (
	usage            = "Usage:\n spdxview file\nwhere file is the file path to a valid SPDX document\n"
	extraArgsWarning = "Warning: Extra arguments will be ignored\n"
	invalidHeader    = "This SPDX Document is not valid due to:\n"
)

var errNoPath = errors.New("no document path given")

// Store owns the resources behind loaded documents.
type Store interface {
	Open(ctx context.Context, path string) (string, error)
	Document(uri string) (*spdx.Document, error)
	Close() error
}

// Document is a loaded document that can verify itself.
type Document interface {
	Verify() []string
	SPDX() *spdx.Document
}

// Renderer prints a document using a set of labels.
type Renderer interface {
	LoadConstants(resourceID string) (*render.Constants, error)
	Render(w io.Writer, doc *spdx.Document, c *render.Constants) error
}

// Inspector wires the collaborators of an inspection together.
type Inspector struct {
	NewStore    func() Store
	NewDocument func(src spdxdoc.Source, uri string) (Document, error)
	Renderer    Renderer
	Stdout      io.Writer
	Stderr      io.Writer
	Logger      *slog.Logger
}

// Outcome is what a single Run observed.
type Outcome struct {
	RunID      string
	Path       string
	URI        string
	Violations []string
	Err        *Error
	CloseErr   *Error
}

// Valid reports whether the document loaded, printed and had no violations.
func (o Outcome) Valid() bool {
	return o.Err == nil && len(o.Violations) == 0
}

// NewDocument adapts spdxdoc.New to the Inspector's document factory.
func NewDocument(src spdxdoc.Source, uri string) (Document, error) {
	return spdxdoc.New(src, uri)
}

// Run inspects the document named by args[0]. Every failure is printed and
// recorded in the Outcome; Run itself never fails.
func (in *Inspector) Run(ctx context.Context, args []string) (out Outcome) {
	out.RunID = uuid.NewString()
	logger := in.logger().With("run", out.RunID)
	stdout := in.stdout()

	if len(args) < 1 {
		out.Err = &Error{Kind: KindUsage, Err: errNoPath}
		fmt.Fprint(in.stderr(), out.Err.Message())
		return out
	}
	if len(args) > 1 {
		fmt.Fprint(stdout, extraArgsWarning)
		logger.Debug("ignoring extra arguments", "ignored", args[1:])
	}
	out.Path = args[0]

	var (
		store Store
		w     *bufio.Writer
	)
	defer func() {
		if r := recover(); r != nil {
			out.Err = &Error{Kind: KindUnexpected, Err: fmt.Errorf("%v", r)}
			logger.Error("inspection panicked", "panic", r)
			fmt.Fprint(sink(w, stdout), out.Err.Message())
		}
		if w != nil {
			if err := w.Flush(); err != nil {
				logger.Warn("flushing output", "error", err)
			}
		}
		if store != nil {
			if err := store.Close(); err != nil {
				out.CloseErr = &Error{Kind: KindCleanup, Err: err}
				fmt.Fprint(stdout, out.CloseErr.Message())
			}
		}
		logger.Info("inspection finished", "path", out.Path, "violations", len(out.Violations), "ok", out.Err == nil)
	}()

	store = in.NewStore()
	uri, err := store.Open(ctx, out.Path)
	if err != nil {
		out.Err = &Error{Kind: KindLoad, Err: err}
		fmt.Fprint(stdout, out.Err.Message())
		return out
	}
	out.URI = uri

	doc, err := in.NewDocument(store, uri)
	if err != nil {
		out.Err = &Error{Kind: KindLoad, Err: err}
		fmt.Fprint(stdout, out.Err.Message())
		return out
	}
	logger.Debug("document loaded", "uri", uri)

	w = bufio.NewWriter(stdout)
	if err := in.display(w, doc, &out); err != nil {
		out.Err = classify(err)
		fmt.Fprint(w, out.Err.Message())
	}
	return out
}

func (in *Inspector) display(w io.Writer, doc Document, out *Outcome) error {
	out.Violations = doc.Verify()
	if len(out.Violations) > 0 {
		fmt.Fprint(w, invalidHeader)
		for _, v := range out.Violations {
			fmt.Fprintf(w, "\t%s\n", v)
		}
	}

	constants, err := in.Renderer.LoadConstants(render.ViewerConstants)
	if err != nil {
		return err
	}
	return in.Renderer.Render(w, doc.SPDX(), constants)
}

func classify(err error) *Error {
	if spdxdoc.IsModelError(err) {
		return &Error{Kind: KindModel, Err: err}
	}
	return &Error{Kind: KindUnexpected, Err: err}
}

func sink(w *bufio.Writer, fallback io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return fallback
}

func (in *Inspector) logger() *slog.Logger {
	if in.Logger != nil {
		return in.Logger
	}
	return slog.Default()
}

func (in *Inspector) stdout() io.Writer {
	if in.Stdout != nil {
		return in.Stdout
	}
	return os.Stdout
}

func (in *Inspector) stderr() io.Writer {
	if in.Stderr != nil {
		return in.Stderr
	}
	return os.Stderr
}
