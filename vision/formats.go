// formats.go - Bildformate der Zielbilder
// Enthaelt: ImageFormat, DetectFormat(), ValidateFormat(), IsImageFile()

package vision

import (
	"errors"
	"path/filepath"
	"strings"
)

// ImageFormat ist der Name eines dekodierbaren Formats
type ImageFormat string

const (
	FormatJPEG    ImageFormat = "jpeg"
	FormatPNG     ImageFormat = "png"
	FormatGIF     ImageFormat = "gif"
	FormatWebP    ImageFormat = "webp"
	FormatBMP     ImageFormat = "bmp"
	FormatTIFF    ImageFormat = "tiff"
	FormatUnknown ImageFormat = "unknown"
)

var (
	ErrUnknownFormat     = errors.New("unbekanntes bildformat")
	ErrUnsupportedFormat = errors.New("nicht unterstuetztes bildformat")
)

// formatInfo beschreibt Signatur, Endungen und MIME-Typ eines Formats.
// Ein '?' in magic passt auf jedes Byte.
type formatInfo struct {
	format   ImageFormat
	mime     string
	magic    []string
	suffixes []string
}

// Reihenfolge zaehlt: BMP hat die kuerzeste Signatur und steht zuletzt
var formats = []formatInfo{
	{FormatJPEG, "image/jpeg", []string{"\xff\xd8\xff"}, []string{".jpg", ".jpeg"}},
	{FormatPNG, "image/png", []string{"\x89PNG"}, []string{".png"}},
	{FormatGIF, "image/gif", []string{"GIF87a", "GIF89a"}, []string{".gif"}},
	{FormatWebP, "image/webp", []string{"RIFF????WEBP"}, []string{".webp"}},
	{FormatTIFF, "image/tiff", []string{"II*\x00", "MM\x00*"}, []string{".tif", ".tiff"}},
	{FormatBMP, "image/bmp", []string{"BM"}, []string{".bmp"}},
}

func matchMagic(data []byte, magic string) bool {
	if len(data) < len(magic) {
		return false
	}
	for i := range len(magic) {
		if magic[i] != '?' && magic[i] != data[i] {
			return false
		}
	}
	return true
}

// DetectFormat erkennt das Format an den ersten Bytes
func DetectFormat(data []byte) ImageFormat {
	if len(data) < 4 {
		return FormatUnknown
	}
	for _, f := range formats {
		for _, m := range f.magic {
			if matchMagic(data, m) {
				return f.format
			}
		}
	}
	return FormatUnknown
}

func lookupFormat(format ImageFormat) (formatInfo, bool) {
	for _, f := range formats {
		if f.format == format {
			return f, true
		}
	}
	return formatInfo{}, false
}

// ValidateFormat prueft ob ein Format dekodiert werden kann
func ValidateFormat(format ImageFormat) error {
	if format == FormatUnknown {
		return ErrUnknownFormat
	}
	if _, ok := lookupFormat(format); !ok {
		return ErrUnsupportedFormat
	}
	return nil
}

// IsImageFile prueft die Dateiendung, Gross-/Kleinschreibung egal
func IsImageFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	for _, f := range formats {
		for _, s := range f.suffixes {
			if ext == s {
				return true
			}
		}
	}
	return false
}

func (f ImageFormat) MimeType() string {
	if info, ok := lookupFormat(f); ok {
		return info.mime
	}
	return "application/octet-stream"
}

func (f ImageFormat) String() string { return string(f) }
