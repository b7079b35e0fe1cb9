// Package cphd reads and writes compensated phase history products: a text
// key-value header, an XML metadata block, and big-endian SUPPORT, PVP, and
// SIGNAL payload blocks.
package cphd

import "strings"

// Version describes one supported standard version.
type Version struct {
	// Namespace is the XML namespace of metadata instances.
	Namespace string
	// Version is the x.y.z token carried in the file type line.
	Version string
	// Date is the approval date of the standard version.
	Date string
}

const namespacePrefix = "http://api.nsgreg.nga.mil/schema/cphd/"

// versions holds the supported standard versions in ascending order.
var versions = []Version{
	{
		Namespace: namespacePrefix + "1.0.1",
		Version:   "1.0.1",
		Date:      "2018-05-21T00:00:00Z",
	},
	{
		Namespace: namespacePrefix + "1.1.0",
		Version:   "1.1.0",
		Date:      "2021-11-30T00:00:00Z",
	},
}

// VersionByNamespace resolves a standard version from an XML namespace.
func VersionByNamespace(ns string) (Version, bool) {
	for _, v := range versions {
		if v.Namespace == ns {
			return v, true
		}
	}

	return Version{}, false
}

// LatestVersion returns the most recent supported standard version.
func LatestVersion() Version {
	return versions[len(versions)-1]
}

// isStandardNamespace reports whether ns belongs to the standard's namespace
// family, supported version or not.
func isStandardNamespace(ns string) bool {
	return strings.HasPrefix(ns, namespacePrefix)
}
