package service

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/clauselens/backend/model"
	"github.com/ledongthuc/pdf"
)

// ExtractResult is the output of a successful text extraction. PageCount is
// only known for PDFs; zero means "not reported".
type ExtractResult struct {
	Text      string
	PageCount int
}

// Extraction failure kinds
const (
	ExtractEmpty       = "empty"
	ExtractEncrypted   = "encrypted"
	ExtractUnreadable  = "unreadable"
	ExtractUnsupported = "unsupported"
)

// ExtractError is an extraction failure with a caller-safe message.
type ExtractError struct {
	Kind    string
	Message string
}

func (e *ExtractError) Error() string {
	return e.Message
}

func extractErr(kind, message string) error {
	return &ExtractError{Kind: kind, Message: message}
}

// ExtractDocument converts an uploaded document into plain text. Dispatch is
// by the declared file type only; the text comes back verbatim, with no
// normalization or truncation.
func ExtractDocument(data []byte, fileType model.FileType) (*ExtractResult, error) {
	if len(data) == 0 {
		return nil, extractErr(ExtractEmpty, "File appears to be empty")
	}

	switch fileType {
	case model.FileTypePDF:
		return extractPDF(data)
	case model.FileTypeDOCX:
		return extractDOCX(data)
	case model.FileTypeTXT:
		return extractTXT(data)
	default:
		return nil, extractErr(ExtractUnsupported, fmt.Sprintf("Unsupported file type: %s", fileType))
	}
}

func extractPDF(data []byte) (*ExtractResult, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		low := strings.ToLower(err.Error())
		if strings.Contains(low, "encrypt") || strings.Contains(low, "password") {
			return nil, extractErr(ExtractEncrypted, "Password-protected files are not supported")
		}
		return nil, extractErr(ExtractUnreadable, "Unable to read PDF file. Please check if it's valid.")
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return nil, extractErr(ExtractUnreadable, "Unable to read PDF file. Please check if it's valid.")
	}

	text, err := io.ReadAll(plain)
	if err != nil {
		return nil, extractErr(ExtractUnreadable, "Unable to read PDF file. Please check if it's valid.")
	}

	// A PDF with only image content has no text layer; that is an empty
	// document to the caller, not a silent empty string.
	if strings.TrimSpace(string(text)) == "" {
		return nil, extractErr(ExtractEmpty, "PDF appears to be empty or contains only images (scanned documents not supported)")
	}

	return &ExtractResult{Text: string(text), PageCount: r.NumPage()}, nil
}

func extractDOCX(data []byte) (*ExtractResult, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, extractErr(ExtractUnreadable, "Unable to read DOCX file. Please check if it's valid.")
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return nil, extractErr(ExtractUnreadable, "Unable to read DOCX file. Please check if it's valid.")
	}

	rc, err := doc.Open()
	if err != nil {
		return nil, extractErr(ExtractUnreadable, "Unable to read DOCX file. Please check if it's valid.")
	}
	content, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return nil, extractErr(ExtractUnreadable, "Unable to read DOCX file. Please check if it's valid.")
	}

	text := docxText(content)
	if strings.TrimSpace(text) == "" {
		return nil, extractErr(ExtractEmpty, "Document appears to be empty")
	}

	return &ExtractResult{Text: text}, nil
}

// docxText walks word/document.xml collecting <w:t> runs, with a newline per
// paragraph.
func docxText(xmlBytes []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(xmlBytes))
	var out strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == "t" {
				var v string
				_ = dec.DecodeElement(&v, &el)
				out.WriteString(v)
			}
		case xml.EndElement:
			if el.Name.Local == "p" {
				out.WriteString("\n")
			}
		}
	}
	return out.String()
}

func extractTXT(data []byte) (*ExtractResult, error) {
	if !utf8.Valid(data) {
		return nil, extractErr(ExtractEncrypted, "File encoding is not supported. Please use UTF-8 text.")
	}

	text := string(data)
	if strings.TrimSpace(text) == "" {
		return nil, extractErr(ExtractEmpty, "File appears to be empty")
	}

	return &ExtractResult{Text: text}, nil
}

// englishFunctionWords is the fixed set used for the non-English heuristic.
var englishFunctionWords = []string{"the", "and", "or", "shall", "will", "party", "agreement", "contract"}

// DetectNonEnglish reports whether the text is likely not English: fewer than
// three of the common function words appear.
func DetectNonEnglish(text string) bool {
	lower := strings.ToLower(text)
	matches := 0
	for _, word := range englishFunctionWords {
		if strings.Contains(lower, word) {
			matches++
		}
	}
	return matches < 3
}

const (
	charsPerPage      = 3000
	longDocumentPages = 100
)

// IsVeryLongDocument reports whether the document exceeds the advisory length
// threshold. Uses the real page count when extraction reported one, otherwise
// a fixed characters-per-page estimate.
func IsVeryLongDocument(text string, pageCount int) bool {
	pages := pageCount
	if pages == 0 {
		pages = len(text) / charsPerPage
	}
	return pages > longDocumentPages
}
