package model

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MediaPayload is an attachment: a MIME type, base64 data and an optional file name.
type MediaPayload struct {
	MimeType string `json:"mimetype"`
	Data     string `json:"data"`
	Filename string `json:"filename,omitempty"`
}

// NewMediaPayload encodes b as a MediaPayload.
func NewMediaPayload(mimeType string, b []byte, filename string) *MediaPayload {
	return &MediaPayload{
		MimeType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(b),
		Filename: filename,
	}
}

// MediaFromFile reads a local file, detecting its MIME type from the content.
func MediaFromFile(path string) (*MediaPayload, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read media file: %w", err)
	}
	mimeType, _, _ := strings.Cut(mimetype.Detect(b).String(), ";")
	return NewMediaPayload(strings.TrimSpace(mimeType), b, filepath.Base(path)), nil
}

// MediaFromDataURI parses a "data:<mime>;base64,<data>" URI.
func MediaFromDataURI(uri, filename string) (*MediaPayload, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, fmt.Errorf("parse data uri: missing data: prefix")
	}
	header, data, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("parse data uri: missing comma")
	}
	mimeType, _, _ := strings.Cut(header, ";")
	if !strings.Contains(mimeType, "/") {
		return nil, fmt.Errorf("parse data uri: bad mime type %q", mimeType)
	}
	return &MediaPayload{
		MimeType: strings.TrimSpace(mimeType),
		Data:     strings.Join(strings.Fields(data), ""),
		Filename: filename,
	}, nil
}

// DataURI returns the payload as a data URI.
func (m MediaPayload) DataURI() string {
	return "data:" + m.MimeType + ";base64," + m.Data
}

// Bytes decodes the base64 data.
func (m MediaPayload) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(m.Data)
}

// Equal compares by content.
func (m MediaPayload) Equal(o MediaPayload) bool {
	return m == o
}

// Location is a geographic point, optionally described.
type Location struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Description string  `json:"description,omitempty"`
}
