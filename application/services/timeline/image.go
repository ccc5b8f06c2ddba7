package timeline

import "strings"

// base64 prefixes of common image magic numbers
var imageSignatures = []struct {
	prefix string
	mime   string
}{
	{"iVBOR", "image/png"},
	{"/9j/", "image/jpeg"},
	{"R0lGOD", "image/gif"},
	{"UklGR", "image/webp"},
}

// NormalizeImage returns a data URI for a raw base64 image. Values that are
// already data URIs pass through unchanged.
func NormalizeImage(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "data:") {
		return s
	}
	return "data:" + sniffMIME(s) + ";base64," + s
}

func sniffMIME(b64 string) string {
	for _, sig := range imageSignatures {
		if strings.HasPrefix(b64, sig.prefix) {
			return sig.mime
		}
	}
	return "image/jpeg"
}
