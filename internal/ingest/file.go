// Package ingest - file.go wraps and classifies uploaded files.
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"mime"
	"path/filepath"
	"strings"
)

// Kind is the ingestion path a file takes.
type Kind string

const (
	KindText         Kind = "text"
	KindTabular      Kind = "tabular"
	KindUnrecognized Kind = "unrecognized"
)

var (
	textExts = map[string]bool{".txt": true, ".md": true, ".pdf": true, ".docx": true, ".pptx": true, ".rtf": true}
	dataExts = map[string]bool{".csv": true, ".tsv": true, ".xlsx": true, ".xls": true}

	dataMIMEs = map[string]bool{
		"text/csv":                  true,
		"text/tab-separated-values": true,
		"application/vnd.ms-excel":  true,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	}
)

// UploadedFile is an immutable uploaded file.
type UploadedFile struct {
	Name   string
	Data   []byte
	MIME   string
	SHA256 string
	Ext    string
}

// Wrap builds an UploadedFile. An empty name becomes "upload.bin"; an empty
// MIME type is guessed from the extension.
func Wrap(name string, data []byte, mimeType string) UploadedFile {
	if strings.TrimSpace(name) == "" {
		name = "upload.bin"
	}
	ext := strings.ToLower(filepath.Ext(name))

	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if mt == "" || mt == "application/octet-stream" {
		if guessed := mime.TypeByExtension(ext); guessed != "" {
			mt, _, _ = strings.Cut(guessed, ";")
		}
	}
	if mt == "" {
		mt = "application/octet-stream"
	}

	sum := sha256.Sum256(data)
	return UploadedFile{
		Name:   name,
		Data:   data,
		MIME:   mt,
		SHA256: hex.EncodeToString(sum[:]),
		Ext:    ext,
	}
}

// IsText reports whether f matches the text path by extension or MIME type.
func (f UploadedFile) IsText() bool {
	return textExts[f.Ext] || strings.HasPrefix(f.MIME, "text/")
}

// IsTabular reports whether f matches the tabular path by extension or MIME type.
func (f UploadedFile) IsTabular() bool {
	return dataExts[f.Ext] || dataMIMEs[f.MIME]
}

// Kind classifies f. Tabular wins when both paths match.
func (f UploadedFile) Kind() Kind {
	switch {
	case f.IsTabular():
		return KindTabular
	case f.IsText():
		return KindText
	}
	return KindUnrecognized
}
