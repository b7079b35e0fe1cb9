// Package sicd reads and writes complex SAR imagery containers: an XML
// metadata instance carried in a data extension segment plus one or more
// image segments holding the pixel array, all inside an NITF 2.1 file.
package sicd

import "strings"

// Version describes one supported standard version: its XML namespace and
// the identification strings carried in the DES subheader.
type Version struct {
	// Namespace is the XML namespace URI (urn:SICD:x.y.z).
	Namespace string
	// Version is the x.y.z version token.
	Version string
	// SpecVersion is the DESSHSV value.
	SpecVersion string
	// SpecDate is the DESSHSD value.
	SpecDate string
}

// specTitle is the DESSHSI value shared by every supported version.
const specTitle = "SICD Volume 1 Design & Implementation Description Document"

// versions lists the supported standard versions, newest last.
var versions = []Version{
	{Namespace: "urn:SICD:1.1.0", Version: "1.1.0", SpecVersion: "1.1", SpecDate: "2014-09-30T00:00:00Z"},
	{Namespace: "urn:SICD:1.2.1", Version: "1.2.1", SpecVersion: "1.2.1", SpecDate: "2018-12-13T00:00:00Z"},
	{Namespace: "urn:SICD:1.3.0", Version: "1.3.0", SpecVersion: "1.3", SpecDate: "2021-11-30T00:00:00Z"},
	{Namespace: "urn:SICD:1.4.0", Version: "1.4.0", SpecVersion: "1.4", SpecDate: "2023-10-26T00:00:00Z"},
}

// VersionByNamespace resolves a standard version from its XML namespace URI.
func VersionByNamespace(ns string) (Version, bool) {
	for _, v := range versions {
		if v.Namespace == ns {
			return v, true
		}
	}

	return Version{}, false
}

// LatestVersion returns the newest supported standard version.
func LatestVersion() Version {
	return versions[len(versions)-1]
}

// isStandardNamespace reports whether ns belongs to the standard's family,
// supported version or not.
func isStandardNamespace(ns string) bool {
	return strings.HasPrefix(ns, "urn:SICD:")
}
