// Package export builds SPDX 2.2 documents from attributions.
package export

import (
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/starford/licaudit/internal/models"
	"github.com/starford/licaudit/internal/signals"
)

const (
	SPDXVersion = "SPDX-2.2"
	noAssertion = "NOASSERTION"
	documentID  = "SPDXRef-DOCUMENT"
)

var invalidIDChars = regexp.MustCompile(`[^A-Za-z0-9.-]+`)

// Document is an SPDX 2.2 document restricted to the fields this tool fills.
type Document struct {
	SPDXID                     string             `json:"SPDXID" yaml:"SPDXID"`
	SPDXVersion                string             `json:"spdxVersion" yaml:"spdxVersion"`
	CreationInfo               CreationInfo       `json:"creationInfo" yaml:"creationInfo"`
	Name                       string             `json:"name" yaml:"name"`
	DataLicense                string             `json:"dataLicense" yaml:"dataLicense"`
	DocumentNamespace          string             `json:"documentNamespace" yaml:"documentNamespace"`
	DocumentDescribes          []string           `json:"documentDescribes" yaml:"documentDescribes"`
	Packages                   []Package          `json:"packages" yaml:"packages"`
	HasExtractedLicensingInfos []ExtractedLicense `json:"hasExtractedLicensingInfos,omitempty" yaml:"hasExtractedLicensingInfos,omitempty"`
}

// CreationInfo records who created the document and when.
type CreationInfo struct {
	Creators []string `json:"creators" yaml:"creators"`
	Created  string   `json:"created" yaml:"created"`
}

// Package is one SPDX package.
type Package struct {
	SPDXID           string        `json:"SPDXID" yaml:"SPDXID"`
	Name             string        `json:"name" yaml:"name"`
	VersionInfo      string        `json:"versionInfo,omitempty" yaml:"versionInfo,omitempty"`
	DownloadLocation string        `json:"downloadLocation" yaml:"downloadLocation"`
	LicenseConcluded string        `json:"licenseConcluded" yaml:"licenseConcluded"`
	LicenseDeclared  string        `json:"licenseDeclared" yaml:"licenseDeclared"`
	CopyrightText    string        `json:"copyrightText" yaml:"copyrightText"`
	ExternalRefs     []ExternalRef `json:"externalRefs,omitempty" yaml:"externalRefs,omitempty"`
}

// ExternalRef links a package to its package URL.
type ExternalRef struct {
	ReferenceCategory string `json:"referenceCategory" yaml:"referenceCategory"`
	ReferenceType     string `json:"referenceType" yaml:"referenceType"`
	ReferenceLocator  string `json:"referenceLocator" yaml:"referenceLocator"`
}

// ExtractedLicense carries a license text that has no SPDX identifier.
type ExtractedLicense struct {
	LicenseID     string `json:"licenseId" yaml:"licenseId"`
	Name          string `json:"name" yaml:"name"`
	ExtractedText string `json:"extractedText" yaml:"extractedText"`
}

// Options control document metadata.
type Options struct {
	Name      string
	Creator   string
	Namespace string
	Created   time.Time
}

// Eligible reports whether an attribution belongs in a notice export.
func Eligible(info models.PackageInfo) bool {
	return !info.ExcludeFromNotice && !info.FirstParty
}

// NoticeAttributions keeps the eligible attributions of attrs.
func NoticeAttributions(attrs models.Attributions) models.Attributions {
	out := make(models.Attributions, len(attrs))
	for id, info := range attrs {
		if Eligible(info) {
			out[id] = info
		}
	}
	return out
}

// SPDX converts attrs into an SPDX document, one package per attribution
// in id order. Missing values become NOASSERTION.
func SPDX(attrs models.Attributions, opts Options) Document {
	if opts.Name == "" {
		opts.Name = "licaudit export"
	}
	if opts.Creator == "" {
		opts.Creator = "Tool: licaudit"
	}
	if opts.Created.IsZero() {
		opts.Created = time.Now()
	}
	if opts.Namespace == "" {
		opts.Namespace = "https://spdx.org/spdxdocs/licaudit-" + uuid.NewString()
	}

	ids := make([]string, 0, len(attrs))
	for id := range attrs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	refs := uniqueRefs(ids)

	doc := Document{
		SPDXID:      documentID,
		SPDXVersion: SPDXVersion,
		CreationInfo: CreationInfo{
			Creators: []string{opts.Creator},
			Created:  opts.Created.UTC().Format(time.RFC3339),
		},
		Name:              opts.Name,
		DataLicense:       "CC0-1.0",
		DocumentNamespace: opts.Namespace,
		DocumentDescribes: make([]string, 0, len(ids)),
		Packages:          make([]Package, 0, len(ids)),
	}

	for _, id := range ids {
		info := attrs[id]
		pkg := Package{
			SPDXID:           "SPDXRef-" + refs[id],
			Name:             orNoAssertion(info.PackageName),
			VersionInfo:      info.PackageVersion,
			DownloadLocation: orNoAssertion(info.URL),
			LicenseConcluded: noAssertion,
			LicenseDeclared:  orNoAssertion(info.LicenseName),
			CopyrightText:    orNoAssertion(info.Copyright),
		}
		if info.LicenseText != "" {
			ref := "LicenseRef-" + refs[id]
			pkg.LicenseDeclared = ref
			doc.HasExtractedLicensingInfos = append(doc.HasExtractedLicensingInfos, ExtractedLicense{
				LicenseID:     ref,
				Name:          orNoAssertion(info.LicenseName),
				ExtractedText: info.LicenseText,
			})
		}
		if purl := signals.Purl(info); purl != "" {
			pkg.ExternalRefs = []ExternalRef{{
				ReferenceCategory: "PACKAGE-MANAGER",
				ReferenceType:     "purl",
				ReferenceLocator:  purl,
			}}
		}
		doc.DocumentDescribes = append(doc.DocumentDescribes, pkg.SPDXID)
		doc.Packages = append(doc.Packages, pkg)
	}
	return doc
}

// uniqueRefs maps every id to its SPDX-safe form. Ids that sanitize to the
// same string get a numeric suffix in id order.
func uniqueRefs(ids []string) map[string]string {
	refs := make(map[string]string, len(ids))
	taken := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		base := invalidIDChars.ReplaceAllString(id, "-")
		ref := base
		for n := 2; ; n++ {
			if _, ok := taken[ref]; !ok {
				break
			}
			ref = fmt.Sprintf("%s-%d", base, n)
		}
		taken[ref] = struct{}{}
		refs[id] = ref
	}
	return refs
}

func orNoAssertion(s string) string {
	if s == "" {
		return noAssertion
	}
	return s
}
