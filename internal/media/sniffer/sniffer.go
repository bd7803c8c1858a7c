// Package sniffer identifies uploaded images by content rather than by
// the type the client claims.
package sniffer

import (
	"bytes"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

type MediaType string

const (
	TypeJPEG MediaType = "jpeg"
	TypePNG  MediaType = "png"
	TypeGIF  MediaType = "gif"
	TypeWEBP MediaType = "webp"
	TypeSVG  MediaType = "svg"
)

var (
	ErrUnknownType = errors.New("unknown media type")
	ErrBadDataURI  = errors.New("malformed data uri")
)

type Result struct {
	Type MediaType
	MIME string
}

func (r Result) Ext() string {
	if r.Type == TypeJPEG {
		return "jpg"
	}
	return string(r.Type)
}

// Detect inspects at most the first 512 bytes of data.
func Detect(data []byte) (Result, error) {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}

	switch {
	case len(head) == 0:
		return Result{}, ErrUnknownType
	case isJPEG(head):
		return Result{Type: TypeJPEG, MIME: "image/jpeg"}, nil
	case isPNG(head):
		return Result{Type: TypePNG, MIME: "image/png"}, nil
	case isGIF(head):
		return Result{Type: TypeGIF, MIME: "image/gif"}, nil
	case isWEBP(head):
		return Result{Type: TypeWEBP, MIME: "image/webp"}, nil
	case isSVG(head):
		return Result{Type: TypeSVG, MIME: "image/svg+xml"}, nil
	}
	return Result{}, ErrUnknownType
}

func isJPEG(head []byte) bool {
	return len(head) > 3 && head[0] == 0xff && head[1] == 0xd8 && head[2] == 0xff
}

func isPNG(head []byte) bool {
	return bytes.HasPrefix(head, []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'})
}

func isGIF(head []byte) bool {
	return bytes.HasPrefix(head, []byte("GIF87a")) || bytes.HasPrefix(head, []byte("GIF89a"))
}

func isWEBP(head []byte) bool {
	return len(head) >= 12 && bytes.Equal(head[:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WEBP"))
}

func isSVG(head []byte) bool {
	trimmed := strings.TrimSpace(strings.ToLower(string(head)))
	return strings.HasPrefix(trimmed, "<svg") ||
		(strings.HasPrefix(trimmed, "<?xml") && strings.Contains(trimmed, "<svg"))
}

// MimeTypeFromHTTP returns the media type of a multipart part header
// without parameters.
func MimeTypeFromHTTP(header http.Header) string {
	return baseMIME(header.Get("Content-Type"))
}

// DecodeDataURI accepts "data:<mime>;base64,<payload>" or a bare base64
// payload and returns the decoded bytes and the declared mime, if any.
func DecodeDataURI(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	declared := ""
	if strings.HasPrefix(s, "data:") {
		meta, payload, ok := strings.Cut(s[len("data:"):], ",")
		if !ok || !strings.HasSuffix(meta, ";base64") {
			return nil, "", ErrBadDataURI
		}
		declared = baseMIME(strings.TrimSuffix(meta, ";base64"))
		s = payload
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, "", ErrBadDataURI
	}
	return data, declared, nil
}

func baseMIME(contentType string) string {
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
