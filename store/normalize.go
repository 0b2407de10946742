package store

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/spdx/tools-golang/spdx"
	"github.com/spdx/tools-golang/spdx/v2/common"
	"gopkg.in/yaml.v3"
)

const spdxRefPrefix = "SPDXRef-"

var (
	tagValueVersionRegex = regexp.MustCompile(`(?m)^[ \t]*SPDXVersion:[ \t]*(\S+)`)
	rdfVersionRegex      = regexp.MustCompile(`specVersion[^>]*>\s*([^<\s]+)\s*<`)
)

// DeclaredVersion returns the spdxVersion written in content, or "" when it
// cannot be found. The readers convert every document to the newest model
// and overwrite its version, so this is read from the raw bytes.
func DeclaredVersion(format Format, content []byte) string {
	content = bytes.TrimPrefix(content, []byte("\uFEFF"))

	switch format {
	case FormatJSON:
		var head struct {
			SPDXVersion string `json:"spdxVersion"`
		}
		if err := json.Unmarshal(content, &head); err == nil {
			return strings.TrimSpace(head.SPDXVersion)
		}
	case FormatYAML:
		var head struct {
			SPDXVersion string `yaml:"spdxVersion"`
		}
		if err := yaml.Unmarshal(content, &head); err == nil {
			return strings.TrimSpace(head.SPDXVersion)
		}
	case FormatTagValue:
		if m := tagValueVersionRegex.FindSubmatch(content); m != nil {
			return string(m[1])
		}
	case FormatRDF:
		if m := rdfVersionRegex.FindSubmatch(content); m != nil {
			return string(m[1])
		}
	}
	return ""
}

// normalize restores the declared version and strips SPDXRef- prefixes that
// some readers leave on element identifiers, so every document reaches the
// verifier and the printer in the same shape.
func normalize(doc *spdx.Document, declaredVersion string) {
	if declaredVersion != "" {
		doc.SPDXVersion = declaredVersion
	}

	trimID(&doc.SPDXIdentifier)
	for _, p := range doc.Packages {
		if p == nil {
			continue
		}
		trimID(&p.PackageSPDXIdentifier)
		for _, f := range p.Files {
			if f != nil {
				trimID(&f.FileSPDXIdentifier)
			}
		}
	}
	for _, f := range doc.Files {
		if f != nil {
			trimID(&f.FileSPDXIdentifier)
		}
	}
	for i := range doc.Snippets {
		s := &doc.Snippets[i]
		trimID(&s.SnippetSPDXIdentifier)
		trimID(&s.SnippetFromFileSPDXIdentifier)
	}
	for _, r := range doc.Relationships {
		if r == nil {
			continue
		}
		trimID(&r.RefA.ElementRefID)
		trimID(&r.RefB.ElementRefID)
	}
	for _, a := range doc.Annotations {
		if a != nil {
			trimID(&a.AnnotationSPDXIdentifier.ElementRefID)
		}
	}
}

func trimID(id *common.ElementID) {
	*id = common.ElementID(strings.TrimPrefix(string(*id), spdxRefPrefix))
}
