package service

import (
	"fmt"
	"time"
)

// Upload carries a fully buffered file received at the transport boundary.
// The payload is held in memory for its whole lifetime; the configured
// upload size limit bounds how large it can get.
type Upload struct {
	OriginalName string
	MimeType     string
	Size         int64
	Data         []byte
}

// storedFilename derives a collision-resistant name from the upload time
// and the original filename.
func storedFilename(now time.Time, originalName string) string {
	return fmt.Sprintf("%d_%s", now.UnixMilli(), originalName)
}
