package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"io"
	"strings"

	"github.com/quarry-labs/quarry-cli/internal/core/domain"
	"github.com/quarry-labs/quarry-cli/internal/core/ports/driven"
	"github.com/quarry-labs/quarry-cli/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Word documents from SharePoint document libraries.
// The record content is the .docx archive in standard base64.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedContentTypes returns the content types this normaliser handles.
func (n *Normaliser) SupportedContentTypes() []string {
	return []string{domain.ContentTypeDocx}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Format-specific normaliser, higher than plaintext
}

// Normalise converts a Word document record to a canonical document.
// The body is the concatenated paragraph text from word/document.xml.
// A payload that is not base64 or not a ZIP archive cannot yield any
// text and is reported as malformed.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawRecord) (*domain.CanonicalDocument, error) {
	if err := normalisers.Identify(raw); err != nil {
		return nil, err
	}

	archive, err := base64.StdEncoding.DecodeString(raw.Content)
	if err != nil {
		return nil, &domain.MalformedRecordError{
			Source: raw.Source, SourceID: raw.SourceID,
			Reason: "content is not base64",
		}
	}

	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, &domain.MalformedRecordError{
			Source: raw.Source, SourceID: raw.SourceID,
			Reason: "content is not a docx archive",
		}
	}

	doc := normalisers.BuildDocument(raw, documentText(reader))

	// Word files carry their own title; prefer it over the file name.
	if title := archiveTitle(reader); title != "" {
		doc.Title = title
	}
	return doc, nil
}

// documentXML mirrors the parts of word/document.xml that carry text.
type documentXML struct {
	Body struct {
		Paragraphs []struct {
			Runs []struct {
				Text []struct {
					Content string `xml:",chardata"`
				} `xml:"t"`
			} `xml:"r"`
		} `xml:"p"`
	} `xml:"body"`
}

// documentText extracts the paragraph text from word/document.xml.
// A missing or unparseable part degrades to an empty body.
func documentText(reader *zip.Reader) string {
	data, ok := readArchiveFile(reader, "word/document.xml")
	if !ok {
		return ""
	}

	var doc documentXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return ""
	}

	var paragraphs []string
	for _, para := range doc.Body.Paragraphs {
		var text strings.Builder
		for _, run := range para.Runs {
			for _, t := range run.Text {
				text.WriteString(t.Content)
			}
		}
		if line := strings.TrimSpace(text.String()); line != "" {
			paragraphs = append(paragraphs, line)
		}
	}
	return strings.Join(paragraphs, "\n")
}

// coreXML mirrors the docProps/core.xml properties part.
type coreXML struct {
	Title string `xml:"title"`
}

// archiveTitle returns the document title from docProps/core.xml, empty
// when the part is absent or carries none.
func archiveTitle(reader *zip.Reader) string {
	data, ok := readArchiveFile(reader, "docProps/core.xml")
	if !ok {
		return ""
	}

	var core coreXML
	if err := xml.Unmarshal(data, &core); err != nil {
		return ""
	}
	return strings.TrimSpace(core.Title)
}

// readArchiveFile reads one named part out of the archive.
func readArchiveFile(reader *zip.Reader, name string) ([]byte, bool) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, false
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, false
		}
		return data, true
	}
	return nil, false
}
