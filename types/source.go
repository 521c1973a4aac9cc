package types

import "fmt"

// Source locates the payload of a media block. The set is closed: a remote
// URL (or local filesystem path) or an inline base64 payload. Path-to-URI
// conversion happens at format time, not at construction.
type Source interface {
	source()
}

// URLSource references media by URL. A bare local filesystem path is also
// accepted here; formatters normalize it to a file:// URI or an inline data
// URI depending on provider capability.
type URLSource struct {
	URL string `json:"url"`
}

func (URLSource) source() {}

// Base64Source carries media inline as base64 data with its media type,
// e.g. "image/png".
type Base64Source struct {
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

func (Base64Source) source() {}

type sourceEnvelope struct {
	Type      string `json:"type"`
	URL       string `json:"url,omitempty"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
}

func envelopeFromSource(s Source) *sourceEnvelope {
	switch v := s.(type) {
	case URLSource:
		return &sourceEnvelope{Type: "url", URL: v.URL}
	case Base64Source:
		return &sourceEnvelope{Type: "base64", MediaType: v.MediaType, Data: v.Data}
	default:
		return &sourceEnvelope{Type: "unknown"}
	}
}

func (e *sourceEnvelope) toSource() (Source, error) {
	if e == nil {
		return nil, fmt.Errorf("media block missing source")
	}
	switch e.Type {
	case "url":
		return URLSource{URL: e.URL}, nil
	case "base64":
		return Base64Source{MediaType: e.MediaType, Data: e.Data}, nil
	default:
		return nil, fmt.Errorf("unknown source type %q", e.Type)
	}
}
