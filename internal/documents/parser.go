package documents

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// ParsedDocument contains the text extracted from a source file
type ParsedDocument struct {
	Text  string
	Pages int
}

// Parser extracts text from one file format
type Parser interface {
	Parse(filePath string) (*ParsedDocument, error)
}

// ParserFunc adapts a plain function to Parser
type ParserFunc func(filePath string) (*ParsedDocument, error)

// Parse calls f
func (f ParserFunc) Parse(filePath string) (*ParsedDocument, error) {
	return f(filePath)
}

// FitzParser extracts page text from anything MuPDF opens (PDF, EPUB)
type FitzParser struct {
	format string
}

// NewPDFParser creates a PDF parser
func NewPDFParser() *FitzParser {
	return &FitzParser{format: "PDF"}
}

// NewEPUBParser creates an EPUB parser
func NewEPUBParser() *FitzParser {
	return &FitzParser{format: "EPUB"}
}

// Parse extracts text from each page, skipping blank pages
func (p *FitzParser) Parse(filePath string) (*ParsedDocument, error) {
	doc, err := fitz.New(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", p.format, err)
	}
	defer doc.Close()

	var textParts []string
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			return nil, fmt.Errorf("failed to read page %d: %w", i+1, err)
		}
		if strings.TrimSpace(text) != "" {
			textParts = append(textParts, text)
		}
	}

	return &ParsedDocument{
		Text:  strings.Join(textParts, "\n\n"),
		Pages: doc.NumPage(),
	}, nil
}

// TextParser reads plain text and markdown files as-is
type TextParser struct{}

// NewTextParser creates a plain text parser
func NewTextParser() *TextParser {
	return &TextParser{}
}

// Parse reads the whole file
func (p *TextParser) Parse(filePath string) (*ParsedDocument, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return &ParsedDocument{Text: string(data), Pages: 1}, nil
}

// DOCXParser extracts paragraph text from word/document.xml
type DOCXParser struct{}

// NewDOCXParser creates a DOCX parser
func NewDOCXParser() *DOCXParser {
	return &DOCXParser{}
}

// Parse opens the archive and joins paragraphs with newlines
func (p *DOCXParser) Parse(filePath string) (*ParsedDocument, error) {
	r, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open DOCX as zip: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open document.xml: %w", err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read document.xml: %w", err)
		}
		text, err := parseDocumentXML(content)
		if err != nil {
			return nil, err
		}
		return &ParsedDocument{Text: text, Pages: 1}, nil
	}

	return nil, fmt.Errorf("word/document.xml not found in %s", filePath)
}

type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

func parseDocumentXML(content []byte) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", fmt.Errorf("failed to parse document.xml: %w", err)
	}

	var result strings.Builder
	for i, para := range doc.Body.Paragraphs {
		if i > 0 {
			result.WriteString("\n")
		}
		for _, run := range para.Runs {
			for _, text := range run.Text {
				result.WriteString(text.Content)
			}
		}
	}
	return strings.TrimSpace(result.String()), nil
}
