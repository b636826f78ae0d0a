// Package resume extracts plain text from uploaded résumé files.
package resume

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

const (
	MIMEText = "text/plain"
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrEmptyDocument   = errors.New("no text found in document")
)

var (
	docxParagraphRe = regexp.MustCompile(`</w:p>|<w:br/>|<w:cr/>`)
	docxTabRe       = regexp.MustCompile(`<w:tab/>`)
	xmlTagRe        = regexp.MustCompile(`<[^>]*>`)
	blankLinesRe    = regexp.MustCompile(`\n{3,}`)
)

// Document is the extracted text of an uploaded file.
type Document struct {
	MIME string
	Text string
}

// Extract detects the file type from its content and returns its text.
func Extract(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyDocument
	}

	detected := mimetype.Detect(data)

	var (
		kind string
		text string
		err  error
	)

	switch {
	case detected.Is(MIMEPDF):
		kind = MIMEPDF
		text, err = extractPDF(data)
	case detected.Is(MIMEDOCX):
		kind = MIMEDOCX
		text, err = extractDOCX(data)
	case isText(detected):
		kind = MIMEText
		text = string(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, detected.String())
	}
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyDocument
	}

	return &Document{MIME: kind, Text: text}, nil
}

// DetectMIME reports the content type used for multipart uploads.
func DetectMIME(data []byte) string {
	return mimetype.Detect(data).String()
}

func isText(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is(MIMEText) {
			return true
		}
	}
	return false
}

func extractPDF(data []byte) (text string, err error) {
	// The pdf reader panics on some malformed documents.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to read pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}

	var builder strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read pdf page %d: %w", i, err)
		}
		builder.WriteString(content)
		builder.WriteString("\n")
	}

	return builder.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	return stripDocumentXML(doc.Editable().GetContent()), nil
}

// stripDocumentXML turns WordprocessingML into plain text, one line per paragraph.
func stripDocumentXML(content string) string {
	content = docxParagraphRe.ReplaceAllString(content, "\n")
	content = docxTabRe.ReplaceAllString(content, "\t")
	content = xmlTagRe.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	content = blankLinesRe.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
