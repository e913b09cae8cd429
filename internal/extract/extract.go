// Package extract converts uploaded document bytes into plain text.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/ledongthuc/pdf"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/ragout/ragout/internal/domain"
)

// Text extracts plain text from document bytes, dispatching on the file
// extension. Unsupported extensions fail with ErrUnsupportedFormat.
func Text(filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return pdfText(data)
	case ".txt", ".md":
		return decodeText(data)
	default:
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

// Supported reports whether the file extension is one we can extract.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".txt", ".md":
		return true
	}
	return false
}

// pdfText extracts the text layer of a PDF, falling back to scraping
// printable runes when the file has no parseable text layer.
func pdfText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}

	if r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data))); err == nil {
		if reader, err := r.GetPlainText(); err == nil {
			if out, err := io.ReadAll(reader); err == nil && len(out) > 0 {
				return string(out), nil
			}
		}
	}

	log.Debug("PDF has no text layer, scraping printable runes")
	text := printableText(data)
	if text == "" {
		return "", fmt.Errorf("%w: PDF contains no extractable text", domain.ErrUnsupportedFormat)
	}
	return text, nil
}

// decodeText converts raw bytes to a UTF-8 string, trying a ladder of
// encodings common for user uploads: UTF-16 with BOM, UTF-8, windows-1251,
// ISO 8859-5, then latin-1 as the lossless last resort.
func decodeText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}

	if hasUTF16BOM(data) {
		decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder().Bytes(data)
		if err == nil {
			return string(decoded), nil
		}
	}

	if utf8.Valid(data) {
		return string(data), nil
	}

	for _, cm := range []*charmap.Charmap{charmap.Windows1251, charmap.ISO8859_5} {
		decoded, err := cm.NewDecoder().Bytes(data)
		if err != nil {
			continue
		}
		// Charmap decoders map undefined bytes to U+FFFD instead of
		// failing; treat a replacement char as a miss and move on.
		if bytes.ContainsRune(decoded, utf8.RuneError) {
			continue
		}
		log.Debug("Decoded text with legacy charmap", "charmap", cm.String())
		return string(decoded), nil
	}

	// latin-1 maps every byte, so this cannot fail.
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("%w: could not decode text: %v", domain.ErrUnsupportedFormat, err)
	}
	return string(decoded), nil
}

func hasUTF16BOM(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	return (data[0] == 0xFF && data[1] == 0xFE) || (data[0] == 0xFE && data[1] == 0xFF)
}

// printableText keeps printable runes and drops everything else.
func printableText(in []byte) string {
	var out strings.Builder
	for len(in) > 0 {
		r, size := utf8.DecodeRune(in)
		if r == utf8.RuneError && size == 1 {
			if b := in[0]; printableASCII(b) {
				out.WriteByte(b)
			}
			in = in[1:]
			continue
		}
		in = in[size:]
		if printableRune(r) {
			out.WriteRune(r)
		}
	}
	return out.String()
}

func printableASCII(b byte) bool {
	return b == '\n' || b == '\r' || b == '\t' || (b >= 32 && b < 127)
}

func printableRune(r rune) bool {
	if r == '\n' || r == '\r' || r == '\t' {
		return true
	}
	return r >= 32
}
