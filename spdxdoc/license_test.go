package spdxdoc

import (
	"reflect"
	"testing"
)

func TestLicenseRefs(t *testing.T) {
	tests := []struct {
		expr     string
		refs     []string
		expected bool
	}{
		{"MIT", nil, true},
		{"NOASSERTION", nil, true},
		{"NONE", nil, true},
		{"Apache-2.0+", nil, true},
		{"MIT OR Apache-2.0", nil, true},
		{"(MIT AND BSD-3-Clause) OR LicenseRef-custom", []string{"LicenseRef-custom"}, true},
		{"LicenseRef-b AND (LicenseRef-a OR LicenseRef-b)", []string{"LicenseRef-a", "LicenseRef-b"}, true},
		{"GPL-2.0-only WITH Classpath-exception-2.0", nil, true},
		{"DocumentRef-base:LicenseRef-shared AND LicenseRef-local", []string{"LicenseRef-local"}, true},
		{"MIT AND", nil, false},
		{"AND MIT", nil, false},
		{"(MIT OR Apache-2.0", nil, false},
		{"MIT WITH", nil, false},
		{"MIT Apache-2.0", nil, false},
		{"NotARealLicense-1.0", nil, false},
	}

	for _, tt := range tests {
		refs, err := licenseRefs(tt.expr)
		if tt.expected && err != nil {
			t.Errorf("Expected %q to be valid, got %v", tt.expr, err)
			continue
		}
		if !tt.expected {
			if err == nil {
				t.Errorf("Expected %q to be invalid", tt.expr)
			}
			continue
		}
		if !reflect.DeepEqual(refs, tt.refs) {
			t.Errorf("Expected refs %v for %q, got %v", tt.refs, tt.expr, refs)
		}
	}
}
