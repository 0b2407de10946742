package store

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format represents the serialization of an SPDX document.
type Format string

const (
	// FormatAuto detects the format from the file name and content.
	FormatAuto Format = "auto"
	// FormatRDF is SPDX RDF/XML.
	FormatRDF Format = "rdf"
	// FormatJSON is SPDX JSON.
	FormatJSON Format = "json"
	// FormatYAML is SPDX YAML.
	FormatYAML Format = "yaml"
	// FormatTagValue is the SPDX tag-value text format.
	FormatTagValue Format = "tag-value"
)

// ParseFormat converts a string to a Format type.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "rdf", "rdf-xml", "rdfxml", "xml":
		return FormatRDF, nil
	case "json", "spdx-json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "tag-value", "tagvalue", "tv", "spdx":
		return FormatTagValue, nil
	default:
		return "", fmt.Errorf("unknown SPDX format: %s", s)
	}
}

// DetectFormat picks a format from the file extension, falling back to the
// content when the extension says nothing.
func DetectFormat(name string, content []byte) (Format, error) {
	if f := formatFromName(name); f != "" {
		return f, nil
	}
	return sniffFormat(content)
}

func formatFromName(name string) Format {
	lower := strings.ToLower(filepath.Base(name))
	switch {
	case strings.HasSuffix(lower, ".rdf"), strings.HasSuffix(lower, ".rdf.xml"), strings.HasSuffix(lower, ".xml"):
		return FormatRDF
	case strings.HasSuffix(lower, ".json"):
		return FormatJSON
	case strings.HasSuffix(lower, ".yaml"), strings.HasSuffix(lower, ".yml"):
		return FormatYAML
	case strings.HasSuffix(lower, ".spdx"), strings.HasSuffix(lower, ".tv"), strings.HasSuffix(lower, ".tag"):
		return FormatTagValue
	}
	return ""
}

func sniffFormat(content []byte) (Format, error) {
	trimmed := bytes.TrimLeft(content, " \t\r\n\uFEFF")
	if len(trimmed) == 0 {
		return "", fmt.Errorf("empty document")
	}

	switch trimmed[0] {
	case '<':
		return FormatRDF, nil
	case '{':
		return FormatJSON, nil
	}

	// Tag-value documents open with a comment block or the SPDXVersion tag.
	for _, line := range strings.Split(string(trimmed), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "SPDXVersion:") {
			return FormatTagValue, nil
		}
		break
	}

	var probe map[string]any
	if err := yaml.Unmarshal(trimmed, &probe); err == nil {
		if _, ok := probe["spdxVersion"]; ok {
			return FormatYAML, nil
		}
	}

	return "", fmt.Errorf("unable to detect SPDX document format")
}
