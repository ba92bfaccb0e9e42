package service

const (
	objectKeyPrefix    = "uploads"
	objectKeySeparator = "/"
)

// DeriveKey returns the object store key of a file. Every part comes from the
// file record so the key is never stored.
func DeriveKey(fileID, originalName string) string {
	return objectKeyPrefix + objectKeySeparator + fileID + objectKeySeparator + originalName
}
