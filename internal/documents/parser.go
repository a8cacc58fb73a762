package documents

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/docchat/docchat/internal/chunker"
	"github.com/docchat/docchat/internal/errs"
)

// Kind is a supported document format
type Kind string

const (
	KindPDF  Kind = "pdf"
	KindDOCX Kind = "docx"
	KindEPUB Kind = "epub"
	KindText Kind = "text"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeEPUB = "application/epub+zip"
)

var kindsByMIME = map[string]Kind{
	mimePDF:         KindPDF,
	mimeDOCX:        KindDOCX,
	mimeEPUB:        KindEPUB,
	"text/plain":    KindText,
	"text/markdown": KindText,
}

var kindsByExt = map[string]Kind{
	".pdf":      KindPDF,
	".docx":     KindDOCX,
	".epub":     KindEPUB,
	".txt":      KindText,
	".md":       KindText,
	".markdown": KindText,
}

// DetectKind picks the document kind from the MIME type, then the file extension
func DetectKind(filename, mimeType string) (Kind, error) {
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		if k, ok := kindsByMIME[strings.ToLower(mt)]; ok {
			return k, nil
		}
	}
	if k, ok := kindsByExt[strings.ToLower(filepath.Ext(filename))]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%w: %q (%s)", errs.ErrUnsupportedFileType, filename, mimeType)
}

// MIMEType returns the canonical MIME type for a file name, or "" if unknown
func MIMEType(filename string) string {
	switch kindsByExt[strings.ToLower(filepath.Ext(filename))] {
	case KindPDF:
		return mimePDF
	case KindDOCX:
		return mimeDOCX
	case KindEPUB:
		return mimeEPUB
	case KindText:
		if strings.EqualFold(filepath.Ext(filename), ".txt") {
			return "text/plain"
		}
		return "text/markdown"
	}
	return ""
}

// Extract converts an uploaded file into trimmed plain text
func Extract(data []byte, filename, mimeType string) (string, error) {
	kind, err := DetectKind(filename, mimeType)
	if err != nil {
		return "", err
	}

	var text string
	switch kind {
	case KindPDF:
		text, err = extractPaged(data, "PDF")
	case KindEPUB:
		text, err = extractPaged(data, "EPUB")
	case KindDOCX:
		text, err = extractDOCX(data)
	case KindText:
		text = strings.ToValidUTF8(string(data), "�")
	}
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(text), nil
}

// extractPaged reads every page with go-fitz and joins pages with a page break
func extractPaged(data []byte, format string) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", format, err)
	}
	defer doc.Close()

	var pages []string
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			return "", fmt.Errorf("failed to read %s page %d: %w", format, i+1, err)
		}
		pages = append(pages, strings.TrimSpace(text))
	}

	return strings.Join(pages, chunker.PageBreak), nil
}

func extractDOCX(data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open DOCX: %w", err)
	}

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open word/document.xml: %w", err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("failed to read word/document.xml: %w", err)
		}

		lines, err := paragraphs(content)
		if err != nil {
			return "", fmt.Errorf("failed to parse word/document.xml: %w", err)
		}
		return strings.Join(lines, "\n"), nil
	}

	return "", fmt.Errorf("failed to open DOCX: word/document.xml not found")
}

// paragraphs returns the text of every w:p in document order, including
// paragraphs inside tables and text inside hyperlinks
func paragraphs(content []byte) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))

	var (
		lines  []string
		b      strings.Builder
		depth  int
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return nil, err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "p":
				depth++
			case "t":
				inText = depth > 0
			case "tab":
				if depth > 0 {
					b.WriteByte('\t')
				}
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				if depth == 0 {
					continue
				}
				depth--
				if depth == 0 {
					lines = append(lines, b.String())
					b.Reset()
				}
			}
		case xml.CharData:
			if inText {
				b.Write(el)
			}
		}
	}
}
