package anthropic

import (
	"bytes"
	"encoding/base64"
)

// MediaType is the MIME type declared on a base64 or text source.
type MediaType string

const (
	MediaTypePDF  MediaType = "application/pdf"
	MediaTypeJPEG MediaType = "image/jpeg"
	MediaTypePNG  MediaType = "image/png"
	MediaTypeGIF  MediaType = "image/gif"
	MediaTypeWEBP MediaType = "image/webp"
	MediaTypeText MediaType = "text/plain"
)

// IsImage reports whether the media type can back an image block.
func (m MediaType) IsImage() bool {
	switch m {
	case MediaTypeJPEG, MediaTypePNG, MediaTypeGIF, MediaTypeWEBP:
		return true
	}
	return false
}

var magicNumbers = []struct {
	mediaType MediaType
	offset    int
	signature []byte
}{
	{MediaTypePDF, 0, []byte("%PDF-")},
	{MediaTypePNG, 0, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	{MediaTypeJPEG, 0, []byte{0xFF, 0xD8, 0xFF}},
	{MediaTypeGIF, 0, []byte("GIF8")},
	{MediaTypeWEBP, 8, []byte("WEBP")},
}

// DetectMagicNumber classifies data by its leading byte signature. It never
// guesses: when nothing matches the second return value is false.
func DetectMagicNumber(data []byte) (MediaType, bool) {
	for _, m := range magicNumbers {
		end := m.offset + len(m.signature)
		if len(data) < end {
			continue
		}
		if m.mediaType == MediaTypeWEBP && !bytes.HasPrefix(data, []byte("RIFF")) {
			continue
		}
		if bytes.Equal(data[m.offset:end], m.signature) {
			return m.mediaType, true
		}
	}
	return "", false
}

// NewImage builds an image block from raw bytes, deriving the media type
// from the magic number.
func NewImage(data []byte) (Image, error) {
	mediaType, ok := DetectMagicNumber(data)
	if !ok || !mediaType.IsImage() {
		return Image{}, ErrUnsupportedMediaType
	}
	return Image{Source: Base64Source{
		MediaType: mediaType,
		Data:      base64.StdEncoding.EncodeToString(data),
	}}, nil
}

// NewImageURL builds an image block pointing at a remote URL.
func NewImageURL(url string) (Image, error) {
	img := Image{Source: URLSource{URL: url}}
	return img, img.Validate()
}

// NewDocument builds a document block from PDF bytes.
func NewDocument(data []byte) (Document, error) {
	mediaType, ok := DetectMagicNumber(data)
	if !ok || mediaType != MediaTypePDF {
		return Document{}, ErrUnsupportedMediaType
	}
	return Document{Source: Base64Source{
		MediaType: mediaType,
		Data:      base64.StdEncoding.EncodeToString(data),
	}}, nil
}

// NewTextDocument builds a plain text document block.
func NewTextDocument(text string) Document {
	return Document{Source: TextSource{MediaType: MediaTypeText, Data: text}}
}
