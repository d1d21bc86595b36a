package extract

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"mime"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeText = "text/plain"
)

var (
	xmlTag    = regexp.MustCompile(`<[^>]+>`)
	paragraph = regexp.MustCompile(`</w:p>`)
)

// Extractor turns uploaded evidence documents into plain text.
type Extractor struct{}

// Text extracts plain text. The format is picked from contentType, falling
// back to the file extension; anything unrecognized is read as UTF-8 text.
func (Extractor) Text(filename, contentType string, data []byte) (string, error) {
	switch DetectType(filename, contentType) {
	case MimePDF:
		return pdfText(data)
	case MimeDOCX:
		return docxText(data)
	default:
		return string(data), nil
	}
}

// DetectType resolves the effective MIME type of an upload.
func DetectType(filename, contentType string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mt {
		case MimePDF, MimeDOCX:
			return mt
		}
		if strings.HasPrefix(mt, "text/") {
			return MimeText
		}
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return MimePDF
	case ".docx":
		return MimeDOCX
	default:
		return MimeText
	}
}

func pdfText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func docxText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	return documentXMLText(doc.Editable().GetContent()), nil
}

// documentXMLText flattens a WordprocessingML body: paragraph breaks become
// newlines, markup is dropped and character entities are decoded.
func documentXMLText(content string) string {
	content = paragraph.ReplaceAllString(content, "\n")
	content = xmlTag.ReplaceAllString(content, "")
	return strings.TrimSpace(html.UnescapeString(content))
}
