package spdxdoc

import (
	"sort"
	"strings"

	"github.com/github/go-spdx/v2/spdxexp"
)

const (
	noAssertion = "NOASSERTION"
	none        = "NONE"
)

// licenseRefs checks expr against the SPDX license expression grammar and
// the SPDX license list, then returns the local LicenseRef identifiers it
// mentions, sorted and without duplicates. References into external
// documents are left to the external document.
func licenseRefs(expr string) ([]string, error) {
	expr = strings.TrimSpace(expr)
	if expr == noAssertion || expr == none {
		return nil, nil
	}

	licenses, err := spdxexp.ExtractLicenses(expr)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var refs []string
	for _, l := range licenses {
		if !strings.HasPrefix(l, "LicenseRef-") || seen[l] {
			continue
		}
		seen[l] = true
		refs = append(refs, l)
	}
	sort.Strings(refs)
	return refs, nil
}
