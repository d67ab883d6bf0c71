package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// WordDocument is the structured view of a DOCX handed to the model.
type WordDocument struct {
	Title      string
	Paragraphs []WordParagraph
	Images     []WordImage
	Tables     int
}

type WordParagraph struct {
	Style string `json:",omitempty"`
	Text  string
}

// WordImage carries the drawing properties Word uses for alternative text.
type WordImage struct {
	Name        string
	Title       string `json:",omitempty"`
	Description string
}

var errNotDOCX = errors.New("content is not a DOCX package")

// ErrPartTooLarge marks a DOCX part that inflates beyond maxPartSize.
var ErrPartTooLarge = errors.New("document part exceeds the size limit")

// maxPartSize bounds the inflated size of one XML part of a DOCX package.
var maxPartSize int64 = 32 << 20

// ExtractDOCX parses word/document.xml (and docProps/core.xml when present).
func ExtractDOCX(data []byte) (*WordDocument, error) {
	zipReader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errNotDOCX, err)
	}

	var documentFile, coreFile *zip.File
	for _, file := range zipReader.File {
		switch file.Name {
		case "word/document.xml":
			documentFile = file
		case "docProps/core.xml":
			coreFile = file
		}
	}

	if documentFile == nil {
		return nil, fmt.Errorf("%w: document.xml not found", errNotDOCX)
	}

	xmlData, err := readZipFile(documentFile)
	if err != nil {
		return nil, err
	}

	doc, err := parseDocumentXML(xmlData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document.xml: %w", err)
	}

	if coreFile != nil {
		if coreData, err := readZipFile(coreFile); err == nil {
			doc.Title = coreTitle(coreData)
		}
	}

	return doc, nil
}

// ExtractDOCXContent returns the structured DOCX as indented JSON.
func ExtractDOCXContent(data []byte) (string, error) {
	doc, err := ExtractDOCX(data)
	if err != nil {
		return "", err
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize DOCX structure: %w", err)
	}
	return string(out), nil
}

// readZipFile inflates f, refusing parts larger than maxPartSize whether the
// header declares it or the stream turns out longer.
func readZipFile(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > uint64(maxPartSize) {
		return nil, fmt.Errorf("%w: %s declares %d bytes", ErrPartTooLarge, f.Name, f.UncompressedSize64)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxPartSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
	}
	if int64(len(data)) > maxPartSize {
		return nil, fmt.Errorf("%w: %s", ErrPartTooLarge, f.Name)
	}
	return data, nil
}

type paragraphBuilder struct {
	style string
	text  strings.Builder
}

func parseDocumentXML(data []byte) (*WordDocument, error) {
	doc := &WordDocument{
		Paragraphs: []WordParagraph{},
		Images:     []WordImage{},
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	// Text boxes nest paragraphs inside runs of an outer paragraph.
	var stack []*paragraphBuilder
	inText := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				stack = append(stack, &paragraphBuilder{})
			case "pStyle":
				if len(stack) > 0 {
					stack[len(stack)-1].style = attr(t, "val")
				}
			case "t":
				inText = true
			case "tab":
				if len(stack) > 0 {
					stack[len(stack)-1].text.WriteString("\t")
				}
			case "docPr":
				doc.Images = append(doc.Images, WordImage{
					Name:        attr(t, "name"),
					Title:       attr(t, "title"),
					Description: attr(t, "descr"),
				})
			case "tbl":
				doc.Tables++
			}

		case xml.CharData:
			if inText && len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if len(stack) == 0 {
					continue
				}
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				text := strings.TrimSpace(p.text.String())
				if text != "" || p.style != "" {
					doc.Paragraphs = append(doc.Paragraphs, WordParagraph{Style: p.style, Text: text})
				}
			}
		}
	}

	return doc, nil
}

func coreTitle(data []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(data))
	inTitle := false
	for {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		switch t := tok.(type) {
		case xml.StartElement:
			inTitle = t.Name.Local == "title"
		case xml.CharData:
			if inTitle {
				return strings.TrimSpace(string(t))
			}
		case xml.EndElement:
			inTitle = false
		}
	}
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
