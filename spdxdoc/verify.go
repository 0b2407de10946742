package spdxdoc

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/spdx/tools-golang/spdx"
	"github.com/spdx/tools-golang/spdx/v2/common"
)

const (
	spdxRefPrefix     = "SPDXRef-"
	documentRefPrefix = "DocumentRef-"
	documentElementID = "DOCUMENT"
	dataLicenseCC0    = "CC0-1.0"
	spdxDateLayout    = "2006-01-02T15:04:05Z"
)

var (
	elementIDRegex          = regexp.MustCompile(`^[A-Za-z0-9.\-]+$`)
	licenseListVersionRegex = regexp.MustCompile(`^[0-9]+\.[0-9]+$`)
	hexRegex                = regexp.MustCompile(`^[0-9a-fA-F]+$`)
	licenseRefRegex         = regexp.MustCompile(`^LicenseRef-[A-Za-z0-9.\-]+$`)
)

// checksumLengths maps checksum algorithms to their hex digest length.
// Zero means the length is variable.
var checksumLengths = map[string]int{
	"SHA1":        40,
	"SHA224":      56,
	"SHA256":      64,
	"SHA384":      96,
	"SHA512":      128,
	"SHA3-256":    64,
	"SHA3-384":    96,
	"SHA3-512":    128,
	"BLAKE2b-256": 64,
	"BLAKE2b-384": 96,
	"BLAKE2b-512": 128,
	"BLAKE3":      0,
	"MD2":         32,
	"MD4":         32,
	"MD5":         32,
	"MD6":         0,
	"ADLER32":     8,
}

var relationshipTypes = toSet(
	"DESCRIBES", "DESCRIBED_BY", "CONTAINS", "CONTAINED_BY",
	"DEPENDS_ON", "DEPENDENCY_OF", "DEPENDENCY_MANIFEST_OF",
	"BUILD_DEPENDENCY_OF", "DEV_DEPENDENCY_OF", "OPTIONAL_DEPENDENCY_OF",
	"PROVIDED_DEPENDENCY_OF", "TEST_DEPENDENCY_OF", "RUNTIME_DEPENDENCY_OF",
	"EXAMPLE_OF", "GENERATES", "GENERATED_FROM", "ANCESTOR_OF", "DESCENDANT_OF",
	"VARIANT_OF", "DISTRIBUTION_ARTIFACT", "PATCH_FOR", "PATCH_APPLIED",
	"COPY_OF", "FILE_ADDED", "FILE_DELETED", "FILE_MODIFIED",
	"EXPANDED_FROM_ARCHIVE", "DYNAMIC_LINK", "STATIC_LINK", "DATA_FILE_OF",
	"TEST_CASE_OF", "BUILD_TOOL_OF", "DEV_TOOL_OF", "TEST_OF", "TEST_TOOL_OF",
	"DOCUMENTATION_OF", "OPTIONAL_COMPONENT_OF", "METAFILE_OF", "PACKAGE_OF",
	"AMENDS", "PREREQUISITE_FOR", "HAS_PREREQUISITE",
	"REQUIREMENT_DESCRIPTION_FOR", "SPECIFICATION_FOR", "OTHER",
)

var (
	creatorTypes       = toSet("Person", "Organization", "Tool")
	agentTypes         = toSet("Person", "Organization")
	annotationTypes    = toSet("REVIEW", "OTHER")
	externalCategories = toSet("SECURITY", "PACKAGE-MANAGER", "PACKAGE_MANAGER", "PERSISTENT-ID", "PERSISTENT_ID", "OTHER")
	packagePurposes    = toSet(
		"APPLICATION", "FRAMEWORK", "LIBRARY", "CONTAINER", "OPERATING-SYSTEM",
		"DEVICE", "FIRMWARE", "SOURCE", "ARCHIVE", "FILE", "INSTALL", "OTHER",
	)
)

func toSet(values ...string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

// verifier accumulates violations in document order.
type verifier struct {
	doc        *spdx.Document
	violations []string
	elements   map[string]bool
	files      map[string]bool
	externals  map[string]bool
	licenses   map[string]bool

	// withFiles holds the packages that own at least one file, either
	// directly or through a CONTAINS relationship.
	withFiles map[common.ElementID]bool
}

// Verify returns the structural violations of doc in a stable order.
func Verify(doc *spdx.Document) []string {
	if doc == nil {
		return []string{"Document is empty"}
	}

	v := &verifier{
		doc:       doc,
		elements:  map[string]bool{documentElementID: true},
		files:     make(map[string]bool),
		externals: make(map[string]bool),
		licenses:  make(map[string]bool),
		withFiles: packagesWithFiles(doc),
	}

	v.verifyHeader()
	v.verifyCreationInfo()
	v.verifyExternalRefs()
	v.verifyExtractedLicenses()

	files := make(map[*spdx.File]bool)
	for _, p := range doc.Packages {
		if p == nil {
			continue
		}
		v.verifyPackage(p)
		for _, f := range p.Files {
			if f != nil && !files[f] {
				files[f] = true
				v.verifyFile(f)
			}
		}
	}
	for _, f := range doc.Files {
		if f != nil && !files[f] {
			files[f] = true
			v.verifyFile(f)
		}
	}
	for _, s := range doc.Snippets {
		v.verifySnippet(s.SnippetSPDXIdentifier, s.SnippetFromFileSPDXIdentifier, s.SnippetName, s.SnippetLicenseConcluded)
	}

	v.verifyRelationships()
	v.verifyAnnotations()

	return v.violations
}

func (v *verifier) addf(format string, args ...any) {
	v.violations = append(v.violations, fmt.Sprintf(format, args...))
}

func (v *verifier) verifyHeader() {
	doc := v.doc

	switch {
	case doc.SPDXVersion == "":
		v.addf("Missing required SPDX version")
	case !strings.HasPrefix(doc.SPDXVersion, "SPDX-2."):
		v.addf("Unsupported SPDX version %s", doc.SPDXVersion)
	}

	switch {
	case doc.DataLicense == "":
		v.addf("Missing required data license")
	case doc.DataLicense != dataLicenseCC0:
		v.addf("Invalid data license %s, expected %s", doc.DataLicense, dataLicenseCC0)
	}

	if string(doc.SPDXIdentifier) != documentElementID {
		v.addf("Invalid document SPDX identifier %s, expected %s%s", ref(doc.SPDXIdentifier), spdxRefPrefix, documentElementID)
	}

	if strings.TrimSpace(doc.DocumentName) == "" {
		v.addf("Missing required document name")
	}

	if doc.DocumentNamespace == "" {
		v.addf("Missing required document namespace")
	} else if err := checkNamespace(doc.DocumentNamespace); err != nil {
		v.addf("Invalid document namespace %s: %v", doc.DocumentNamespace, err)
	}
}

func checkNamespace(ns string) error {
	u, err := url.Parse(ns)
	if err != nil {
		return err
	}
	if u.Scheme == "" {
		return fmt.Errorf("not an absolute URI")
	}
	if strings.Contains(ns, "#") {
		return fmt.Errorf("must not contain '#'")
	}
	return nil
}

func (v *verifier) verifyCreationInfo() {
	ci := v.doc.CreationInfo
	if ci == nil {
		v.addf("Missing required creation information")
		return
	}

	if len(ci.Creators) == 0 {
		v.addf("Missing required creators")
	}
	for _, c := range ci.Creators {
		if !creatorTypes[c.CreatorType] {
			v.addf("Invalid creator type %q for creator %s", c.CreatorType, c.Creator)
		}
		if strings.TrimSpace(c.Creator) == "" {
			v.addf("Missing creator name for creator type %s", c.CreatorType)
		}
	}

	if ci.Created == "" {
		v.addf("Missing required created date")
	} else if !validDate(ci.Created) {
		v.addf("Invalid created date %s, expected format YYYY-MM-DDThh:mm:ssZ", ci.Created)
	}

	if ci.LicenseListVersion != "" && !licenseListVersionRegex.MatchString(ci.LicenseListVersion) {
		v.addf("Invalid license list version %s", ci.LicenseListVersion)
	}
}

func validDate(s string) bool {
	_, err := time.Parse(spdxDateLayout, s)
	return err == nil
}

func (v *verifier) verifyExternalRefs() {
	for _, ext := range v.doc.ExternalDocumentReferences {
		id := strings.TrimPrefix(ext.DocumentRefID, documentRefPrefix)
		label := documentRefPrefix + id
		if id == "" {
			v.addf("Missing external document reference ID")
			label = "external document reference"
		} else if v.externals[id] {
			v.addf("Duplicate external document reference %s", label)
		}
		v.externals[id] = true

		if ext.URI == "" {
			v.addf("%s: missing document URI", label)
		}
		if string(ext.Checksum.Algorithm) != "SHA1" {
			v.addf("%s: checksum algorithm must be SHA1, found %q", label, ext.Checksum.Algorithm)
		} else if msg := checksumProblem("SHA1", ext.Checksum.Value); msg != "" {
			v.addf("%s: %s", label, msg)
		}
	}
}

func (v *verifier) verifyExtractedLicenses() {
	for _, lic := range v.doc.OtherLicenses {
		if lic == nil {
			continue
		}
		id := lic.LicenseIdentifier
		if !strings.HasPrefix(id, "LicenseRef-") || !licenseRefRegex.MatchString(id) {
			v.addf("Invalid extracted license identifier %q, expected LicenseRef-[idstring]", id)
		}
		if v.licenses[id] {
			v.addf("Duplicate extracted license %s", id)
		}
		v.licenses[id] = true
		if strings.TrimSpace(lic.ExtractedText) == "" {
			v.addf("Extracted license %s: missing extracted text", id)
		}
	}
}

// registerElement records id as a known element and reports format problems
// and duplicates. It returns the display label for the element.
func (v *verifier) registerElement(kind string, id common.ElementID, name string) string {
	label := kind + " " + ref(id)
	if name != "" {
		label += " (" + name + ")"
	}

	raw := string(id)
	switch {
	case raw == "":
		v.addf("%s: missing SPDX identifier", label)
		return label
	case !elementIDRegex.MatchString(raw):
		v.addf("%s: invalid SPDX identifier", label)
	}
	if v.elements[raw] {
		v.addf("Duplicate SPDX identifier %s", ref(id))
	}
	v.elements[raw] = true
	return label
}

func (v *verifier) verifyPackage(p *spdx.Package) {
	label := v.registerElement("Package", p.PackageSPDXIdentifier, p.PackageName)

	if strings.TrimSpace(p.PackageName) == "" {
		v.addf("%s: missing required package name", label)
	}
	if strings.TrimSpace(p.PackageDownloadLocation) == "" {
		v.addf("%s: missing required download location", label)
	}

	if p.PackageSupplier != nil && p.PackageSupplier.Supplier != noAssertion && !agentTypes[p.PackageSupplier.SupplierType] {
		v.addf("%s: invalid supplier type %q", label, p.PackageSupplier.SupplierType)
	}
	if p.PackageOriginator != nil && p.PackageOriginator.Originator != noAssertion && !agentTypes[p.PackageOriginator.OriginatorType] {
		v.addf("%s: invalid originator type %q", label, p.PackageOriginator.OriginatorType)
	}

	for _, c := range p.PackageChecksums {
		if msg := checksumProblem(string(c.Algorithm), c.Value); msg != "" {
			v.addf("%s: %s", label, msg)
		}
	}

	missingCode := p.PackageVerificationCode == nil || p.PackageVerificationCode.Value == ""
	if p.FilesAnalyzed && v.withFiles[p.PackageSPDXIdentifier] && missingCode && !atLeast23(v.doc.SPDXVersion) {
		v.addf("%s: missing package verification code for a package with files analyzed", label)
	}
	if p.PackageVerificationCode != nil && p.PackageVerificationCode.Value != "" {
		if msg := checksumProblem("SHA1", p.PackageVerificationCode.Value); msg != "" {
			v.addf("%s: invalid package verification code: %s", label, msg)
		}
	}

	v.checkLicense(label, "license concluded", p.PackageLicenseConcluded)
	v.checkLicense(label, "license declared", p.PackageLicenseDeclared)
	for _, lic := range p.PackageLicenseInfoFromFiles {
		v.checkLicense(label, "license info from files", lic)
	}

	for _, ext := range p.PackageExternalReferences {
		if ext == nil {
			continue
		}
		if !externalCategories[ext.Category] {
			v.addf("%s: invalid external reference category %q", label, ext.Category)
		}
		if ext.RefType == "" {
			v.addf("%s: missing external reference type", label)
		}
		if ext.Locator == "" {
			v.addf("%s: missing external reference locator", label)
		}
	}

	if p.PrimaryPackagePurpose != "" && !packagePurposes[strings.ReplaceAll(p.PrimaryPackagePurpose, "_", "-")] {
		v.addf("%s: invalid primary package purpose %s", label, p.PrimaryPackagePurpose)
	}

	for _, d := range []struct{ name, value string }{
		{"release date", p.ReleaseDate},
		{"built date", p.BuiltDate},
		{"valid until date", p.ValidUntilDate},
	} {
		if d.value != "" && !validDate(d.value) {
			v.addf("%s: invalid %s %s", label, d.name, d.value)
		}
	}
}

func (v *verifier) verifyFile(f *spdx.File) {
	label := v.registerElement("File", f.FileSPDXIdentifier, f.FileName)
	v.files[string(f.FileSPDXIdentifier)] = true

	if strings.TrimSpace(f.FileName) == "" {
		v.addf("%s: missing required file name", label)
	}

	hasSHA1 := false
	for _, c := range f.Checksums {
		if string(c.Algorithm) == "SHA1" {
			hasSHA1 = true
		}
		if msg := checksumProblem(string(c.Algorithm), c.Value); msg != "" {
			v.addf("%s: %s", label, msg)
		}
	}
	if !hasSHA1 {
		v.addf("%s: missing required SHA1 checksum", label)
	}

	v.checkLicense(label, "license concluded", f.LicenseConcluded)
	for _, lic := range f.LicenseInfoInFiles {
		v.checkLicense(label, "license info in file", lic)
	}
}

func (v *verifier) verifySnippet(id, fromFile common.ElementID, name, concluded string) {
	label := v.registerElement("Snippet", id, name)
	switch {
	case fromFile == "":
		v.addf("%s: missing snippet from file", label)
	case !v.files[string(fromFile)]:
		v.addf("%s: snippet from file %s is not defined in the document", label, ref(fromFile))
	}
	v.checkLicense(label, "license concluded", concluded)
}

func (v *verifier) checkLicense(label, field, expr string) {
	if strings.TrimSpace(expr) == "" {
		return
	}
	refs, err := licenseRefs(expr)
	if err != nil {
		v.addf("%s: invalid %s %q: %v", label, field, expr, err)
		return
	}
	for _, r := range refs {
		if !v.licenses[r] {
			v.addf("%s: %s references %s which is not defined in the document", label, field, r)
		}
	}
}

func (v *verifier) verifyRelationships() {
	describes := false
	for _, r := range v.doc.Relationships {
		if r == nil {
			continue
		}
		typ := strings.ToUpper(r.Relationship)
		label := fmt.Sprintf("Relationship %s %s %s", docRef(r.RefA), r.Relationship, docRef(r.RefB))

		if !relationshipTypes[typ] {
			v.addf("%s: unknown relationship type %s", label, r.Relationship)
		}
		if msg := v.elementProblem(r.RefA, false); msg != "" {
			v.addf("%s: %s", label, msg)
		}
		if msg := v.elementProblem(r.RefB, true); msg != "" {
			v.addf("%s: %s", label, msg)
		}

		if (typ == "DESCRIBES" && isDocument(r.RefA)) || (typ == "DESCRIBED_BY" && isDocument(r.RefB)) {
			describes = true
		}
	}

	if !describes {
		v.addf("Document must contain at least one DESCRIBES relationship")
	}
}

func (v *verifier) verifyAnnotations() {
	for _, a := range v.doc.Annotations {
		if a == nil {
			continue
		}
		label := "Annotation on " + docRef(a.AnnotationSPDXIdentifier)
		if !creatorTypes[a.Annotator.AnnotatorType] {
			v.addf("%s: invalid annotator type %q", label, a.Annotator.AnnotatorType)
		}
		if a.AnnotationDate == "" || !validDate(a.AnnotationDate) {
			v.addf("%s: invalid annotation date %q", label, a.AnnotationDate)
		}
		if !annotationTypes[a.AnnotationType] {
			v.addf("%s: invalid annotation type %q", label, a.AnnotationType)
		}
		if msg := v.elementProblem(a.AnnotationSPDXIdentifier, false); msg != "" {
			v.addf("%s: %s", label, msg)
		}
	}
}

// packagesWithFiles returns the packages that hold files in Package.Files or
// relate to a document file with CONTAINS or CONTAINED_BY. JSON and YAML
// documents only express containment through relationships.
func packagesWithFiles(doc *spdx.Document) map[common.ElementID]bool {
	out := make(map[common.ElementID]bool)
	files := make(map[common.ElementID]bool)
	for _, p := range doc.Packages {
		if p == nil {
			continue
		}
		for _, f := range p.Files {
			if f != nil {
				out[p.PackageSPDXIdentifier] = true
				files[f.FileSPDXIdentifier] = true
			}
		}
	}
	for _, f := range doc.Files {
		if f != nil {
			files[f.FileSPDXIdentifier] = true
		}
	}

	for _, r := range doc.Relationships {
		if r == nil || r.RefA.DocumentRefID != "" || r.RefB.DocumentRefID != "" {
			continue
		}
		switch strings.ToUpper(r.Relationship) {
		case "CONTAINS":
			if files[r.RefB.ElementRefID] {
				out[r.RefA.ElementRefID] = true
			}
		case "CONTAINED_BY":
			if files[r.RefA.ElementRefID] {
				out[r.RefB.ElementRefID] = true
			}
		}
	}
	return out
}

// elementProblem describes why id does not resolve, or returns "".
func (v *verifier) elementProblem(id common.DocElementID, allowSpecial bool) string {
	if id.SpecialID != "" {
		if allowSpecial && (id.SpecialID == none || id.SpecialID == noAssertion) {
			return ""
		}
		return fmt.Sprintf("%s is not allowed here", id.SpecialID)
	}
	if id.DocumentRefID != "" {
		if !v.externals[strings.TrimPrefix(id.DocumentRefID, documentRefPrefix)] {
			return fmt.Sprintf("external document %s%s is not declared", documentRefPrefix, strings.TrimPrefix(id.DocumentRefID, documentRefPrefix))
		}
		return ""
	}
	if id.ElementRefID == "" {
		return "missing element reference"
	}
	if !v.elements[string(id.ElementRefID)] {
		return fmt.Sprintf("element %s is not defined in the document", ref(id.ElementRefID))
	}
	return ""
}

func checksumProblem(algorithm, value string) string {
	length, ok := checksumLengths[algorithm]
	if !ok {
		return fmt.Sprintf("unknown checksum algorithm %q", algorithm)
	}
	if value == "" {
		return fmt.Sprintf("missing %s checksum value", algorithm)
	}
	if !hexRegex.MatchString(value) {
		return fmt.Sprintf("%s checksum %s is not hexadecimal", algorithm, value)
	}
	if length > 0 && len(value) != length {
		return fmt.Sprintf("%s checksum %s has length %d, expected %d", algorithm, value, len(value), length)
	}
	return ""
}

func atLeast23(version string) bool {
	var major, minor int
	if _, err := fmt.Sscanf(version, "SPDX-%d.%d", &major, &minor); err != nil {
		return true
	}
	return major > 2 || major == 2 && minor >= 3
}

func isDocument(id common.DocElementID) bool {
	return id.DocumentRefID == "" && id.SpecialID == "" && string(id.ElementRefID) == documentElementID
}

func ref(id common.ElementID) string {
	return spdxRefPrefix + string(id)
}

func docRef(id common.DocElementID) string {
	switch {
	case id.SpecialID != "":
		return id.SpecialID
	case id.DocumentRefID != "":
		return documentRefPrefix + strings.TrimPrefix(id.DocumentRefID, documentRefPrefix) + ":" + ref(id.ElementRefID)
	default:
		return ref(id.ElementRefID)
	}
}
