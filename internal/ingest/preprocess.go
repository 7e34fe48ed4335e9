package ingest

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"rsc.io/pdf"
)

// maxDocumentBytes caps how much of a fetched body is read. Pages past this
// point are boilerplate, not grant detail.
const maxDocumentBytes = 5 << 20

// maxCleanedChars caps the cleaned text handed to the extraction model.
const maxCleanedChars = 25000

// CleanDocument reads a fetched document and returns plain text suitable for
// extraction: scripts, styles and comments stripped, whitespace collapsed,
// length capped. PDF bodies are decoded page by page.
func CleanDocument(doc *FetchedDocument) (string, error) {
	defer doc.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(doc.Body, maxDocumentBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}

	var text string
	if strings.Contains(strings.ToLower(doc.ContentType), "application/pdf") {
		text, err = pdfToText(raw)
		if err != nil {
			return "", fmt.Errorf("failed to extract pdf text: %w", err)
		}
	} else {
		text, err = htmlToText(raw)
		if err != nil {
			return "", fmt.Errorf("failed to parse html: %w", err)
		}
	}

	cleaned := normalizeSpace(text)
	return truncateRunesafe(cleaned, maxCleanedChars), nil
}

func htmlToText(raw []byte) (string, error) {
	gq, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return "", err
	}

	gq.Find("script, style, noscript, iframe, svg").Remove()
	return gq.Find("body").Text(), nil
}

func pdfToText(raw []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content := page.Content()
		var lastY float64
		for _, t := range content.Text {
			if lastY != 0 && t.Y != lastY {
				sb.WriteByte('\n')
			}
			sb.WriteString(t.S)
			lastY = t.Y
		}
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}
