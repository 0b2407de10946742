// Package render prints SPDX documents in a human-readable layout. The layout
// lives in an embedded template; labels come from a properties resource so
// they can be reworded without touching the template.
package render

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/spdx/tools-golang/spdx"
	"github.com/spdx/tools-golang/spdx/v2/common"

	"github.com/build-flow-labs/spdxview/spdxdoc"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var documentTemplate = template.Must(
	template.New("document.tmpl").Funcs(baseFuncs()).ParseFS(templateFS, "templates/document.tmpl"),
)

// Printer renders documents with the bundled labels, optionally overlaid by
// a user-supplied properties file.
type Printer struct {
	Overrides string
}

// NewPrinter creates a Printer. overrides may be empty.
func NewPrinter(overrides string) *Printer {
	return &Printer{Overrides: overrides}
}

// LoadConstants loads the bundled resource and applies the overrides file.
func (p *Printer) LoadConstants(resourceID string) (*Constants, error) {
	c, err := LoadConstants(resourceID)
	if err != nil {
		return nil, err
	}
	if p.Overrides != "" {
		if err := c.MergeFile(p.Overrides); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Render writes doc to w.
func (p *Printer) Render(w io.Writer, doc *spdx.Document, c *Constants) error {
	return Render(w, doc, c)
}

// Render writes a human-readable rendering of doc to w. Documents whose model
// cannot be rendered produce a *spdxdoc.ModelError.
func Render(w io.Writer, doc *spdx.Document, c *Constants) error {
	if doc == nil {
		return &spdxdoc.ModelError{Op: "render", Err: errors.New("no document")}
	}
	if doc.CreationInfo == nil {
		return &spdxdoc.ModelError{Op: "render", Err: errors.New("document has no creation information")}
	}
	if c == nil {
		return errors.New("no rendering constants loaded")
	}

	t, err := documentTemplate.Clone()
	if err != nil {
		return fmt.Errorf("cloning document template: %w", err)
	}
	t.Funcs(template.FuncMap{
		"label":   c.Label,
		"element": elementNamer(doc),
	})

	if err := t.ExecuteTemplate(w, "document.tmpl", doc); err != nil {
		return fmt.Errorf("rendering document: %w", err)
	}
	return nil
}

type fieldView struct {
	Indent string
	Key    string
	Value  string
}

type listView struct {
	Indent string
	Key    string
	Values []string
}

type fileView struct {
	Indent string
	File   *spdx.File
}

func baseFuncs() template.FuncMap {
	return template.FuncMap{
		"label":   func(key string) (string, error) { return key, nil },
		"element": func(id common.DocElementID) string { return docElementRef(id) },
		"field": func(indent, key string, value any) fieldView {
			return fieldView{Indent: indent, Key: key, Value: stringValue(value)}
		},
		"list": func(indent, key string, values []string) listView {
			return listView{Indent: indent, Key: key, Values: values}
		},
		"file": func(indent string, f *spdx.File) fileView {
			return fileView{Indent: indent, File: f}
		},
		"ref":              elementRef,
		"creators":         creators,
		"checksums":        checksums,
		"supplier":         supplier,
		"originator":       originator,
		"verificationCode": verificationCode,
		"packageRefs":      packageRefs,
		"externalRefs":     externalRefs,
		"unpackaged":       unpackagedFiles,
		"annotator":        annotator,
	}
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func elementRef(id common.ElementID) string {
	if id == "" {
		return ""
	}
	return "SPDXRef-" + string(id)
}

func docElementRef(id common.DocElementID) string {
	switch {
	case id.SpecialID != "":
		return id.SpecialID
	case id.DocumentRefID != "":
		return "DocumentRef-" + strings.TrimPrefix(id.DocumentRefID, "DocumentRef-") + ":" + elementRef(id.ElementRefID)
	default:
		return elementRef(id.ElementRefID)
	}
}

// elementNamer returns a func that labels local elements with their names.
func elementNamer(doc *spdx.Document) func(common.DocElementID) string {
	names := map[common.ElementID]string{"DOCUMENT": doc.DocumentName}
	for _, p := range doc.Packages {
		if p == nil {
			continue
		}
		names[p.PackageSPDXIdentifier] = p.PackageName
		for _, f := range p.Files {
			if f != nil {
				names[f.FileSPDXIdentifier] = f.FileName
			}
		}
	}
	for _, f := range doc.Files {
		if f != nil {
			names[f.FileSPDXIdentifier] = f.FileName
		}
	}
	for _, s := range doc.Snippets {
		names[s.SnippetSPDXIdentifier] = s.SnippetName
	}

	return func(id common.DocElementID) string {
		ref := docElementRef(id)
		if id.SpecialID != "" || id.DocumentRefID != "" {
			return ref
		}
		if name := names[id.ElementRefID]; name != "" {
			return ref + " (" + name + ")"
		}
		return ref
	}
}

func creators(cs []common.Creator) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, agent(c.CreatorType, c.Creator))
	}
	return out
}

func agent(kind, name string) string {
	if kind == "" {
		return name
	}
	return kind + ": " + name
}

func checksums(cs []common.Checksum) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, string(c.Algorithm)+": "+c.Value)
	}
	return out
}

func supplier(s *common.Supplier) string {
	if s == nil {
		return ""
	}
	return agent(s.SupplierType, s.Supplier)
}

func originator(o *common.Originator) string {
	if o == nil {
		return ""
	}
	return agent(o.OriginatorType, o.Originator)
}

func verificationCode(v *common.PackageVerificationCode) string {
	if v == nil || v.Value == "" {
		return ""
	}
	if len(v.ExcludedFiles) == 0 {
		return v.Value
	}
	return v.Value + " (excludes: " + strings.Join(v.ExcludedFiles, ", ") + ")"
}

func packageRefs(refs []*spdx.PackageExternalReference) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		if r == nil {
			continue
		}
		out = append(out, r.Category+" "+r.RefType+" "+r.Locator)
	}
	return out
}

func externalRefs(doc *spdx.Document) []string {
	out := make([]string, 0, len(doc.ExternalDocumentReferences))
	for _, ext := range doc.ExternalDocumentReferences {
		line := "DocumentRef-" + strings.TrimPrefix(ext.DocumentRefID, "DocumentRef-") + " " + ext.URI
		if ext.Checksum.Value != "" {
			line += " " + string(ext.Checksum.Algorithm) + ": " + ext.Checksum.Value
		}
		out = append(out, line)
	}
	return out
}

// unpackagedFiles returns the document-level files that no package contains.
func unpackagedFiles(doc *spdx.Document) []*spdx.File {
	packaged := make(map[*spdx.File]bool)
	for _, p := range doc.Packages {
		if p == nil {
			continue
		}
		for _, f := range p.Files {
			packaged[f] = true
		}
	}

	var out []*spdx.File
	for _, f := range doc.Files {
		if f != nil && !packaged[f] {
			out = append(out, f)
		}
	}
	return out
}

func annotator(a common.Annotator) string {
	return agent(a.AnnotatorType, a.Annotator)
}
