//go:build !darwin && !linux

package storage

// Elsewhere the catalog database location is not checked.
func detectFilesystemType(string) (string, error) {
	return "", errDetectUnsupported
}
