package media

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// Motion photo markers. Samsung phones tag the embedded video with a named
// marker; Google Pixels append an MP4 whose ftyp box starts 4 bytes after
// the signature offset.
var (
	samsungMotionMarker = []byte("MotionPhoto_Data")
	googleFtypBrands    = [][]byte{
		[]byte("ftypmp42"),
		[]byte("ftypisom"),
		[]byte("ftypiso2"),
	}
)

// FindEmbeddedMedia scans a JPEG byte stream for an embedded motion-photo
// video and returns the offset the MP4 stream starts at. Both the Samsung
// and the Google signature are checked independently.
func FindEmbeddedMedia(data []byte) (offset int, found bool) {
	if idx := bytes.Index(data, samsungMotionMarker); idx >= 0 {
		return idx + len(samsungMotionMarker), true
	}
	for _, brand := range googleFtypBrands {
		if idx := bytes.Index(data, brand); idx >= 4 {
			// The MP4 stream begins at the size field 4 bytes before ftyp.
			return idx - 4, true
		}
	}
	return 0, false
}

// HasEmbeddedMedia reports whether the file at path carries a motion-photo
// stream.
func HasEmbeddedMedia(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	_, found := FindEmbeddedMedia(data)
	return found, nil
}

// ExtractEmbeddedMedia copies the embedded video stream (marker offset to
// EOF) into dst. Returns false without error when the file has no embedded
// media.
func ExtractEmbeddedMedia(path, dst string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	offset, found := FindEmbeddedMedia(data)
	if !found {
		return false, nil
	}
	out, err := os.Create(dst)
	if err != nil {
		return false, fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, bytes.NewReader(data[offset:])); err != nil {
		return false, fmt.Errorf("write embedded media: %w", err)
	}
	return true, nil
}
