package signals

import (
	packageurl "github.com/package-url/packageurl-go"

	"github.com/starford/licaudit/internal/models"
)

// Purl returns the package URL of info, or "" when the package type or name
// is missing.
func Purl(info models.PackageInfo) string {
	if info.PackageType == "" || info.PackageName == "" {
		return ""
	}
	p := packageurl.NewPackageURL(info.PackageType, info.PackageNamespace, info.PackageName, info.PackageVersion, nil, "")
	return p.ToString()
}
