package ingest

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zipOf(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func extractKind(err error) ExtractionErrorKind {
	var xe *ExtractionError
	if errors.As(err, &xe) {
		return xe.Kind
	}
	return ""
}

func TestExtractText_PlainText(t *testing.T) {
	text, err := ExtractText(Wrap("a.txt", []byte("  hello world \n"), ""))
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
}

func TestExtractText_InvalidUTF8IsReplaced(t *testing.T) {
	text, err := ExtractText(Wrap("a.md", []byte("ok \xff ok"), ""))
	require.NoError(t, err)
	assert.Equal(t, "ok � ok", text)
}

func TestExtractText_Errors(t *testing.T) {
	tests := []struct {
		name string
		file UploadedFile
		want ExtractionErrorKind
	}{
		{"unsupported", Wrap("photo.png", []byte{0x89, 'P'}, "image/png"), ExtractUnsupported},
		{"empty", Wrap("blank.txt", []byte("   \n\t"), ""), ExtractEmpty},
		{"corrupt pdf", Wrap("broken.pdf", []byte("not a pdf"), ""), ExtractCorrupt},
		{"corrupt docx", Wrap("broken.docx", []byte("not a zip"), ""), ExtractCorrupt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := ExtractText(tt.file)
			require.Error(t, err)
			assert.Empty(t, text)
			assert.Equal(t, tt.want, extractKind(err))
		})
	}
}

func TestExtractText_DOCX(t *testing.T) {
	doc := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:r><w:t>Quarterly</w:t></w:r><w:r><w:t xml:space="preserve"> report</w:t></w:r></w:p>
<w:p></w:p>
<w:p><w:r><w:t>Revenue</w:t><w:tab/><w:t>42</w:t></w:r></w:p>
</w:body></w:document>`
	data := zipOf(t, map[string]string{"word/document.xml": doc})

	text, err := ExtractText(Wrap("r.docx", data, ""))
	require.NoError(t, err)
	assert.Equal(t, "Quarterly report\nRevenue\t42", text)
}

func TestExtractText_PPTXOrdersSlides(t *testing.T) {
	slide := func(s string) string {
		return `<p:sld xmlns:p="p" xmlns:a="a"><p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r><a:t>` +
			s + `</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`
	}
	data := zipOf(t, map[string]string{
		"ppt/slides/slide10.xml": slide("ten"),
		"ppt/slides/slide2.xml":  slide("two"),
		"ppt/slides/slide1.xml":  slide("one"),
	})

	text, err := ExtractText(Wrap("deck.pptx", data, ""))
	require.NoError(t, err)
	assert.Equal(t, "[slide 1]\none\n\n[slide 2]\ntwo\n\n[slide 10]\nten", text)
}

func TestExtractText_RTF(t *testing.T) {
	src := `{\rtf1\ansi{\fonttbl{\f0 Arial;}}{\colortbl;\red0\green0\blue0;}` +
		`\f0\fs24 Hello \b bold\b0  world\par Caf\'e9 \{x\}{\*\generator Word;}}`

	text, err := ExtractText(Wrap("note.rtf", []byte(src), ""))
	require.NoError(t, err)
	assert.Equal(t, "Hello bold world\nCafé {x}", text)
}
