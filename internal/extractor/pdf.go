package extractor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFDocument is the structured view of a PDF handed to the model.
type PDFDocument struct {
	NumberOfPages    int
	Title            string
	Author           string
	Subject          string
	Keywords         string
	Creator          string
	Producer         string
	CreationDate     string
	ModificationDate string
	Pages            []PDFPage
}

type PDFPage struct {
	PageNumber  int
	Text        string
	Fonts       []string
	Annotations []PDFAnnotation
	Dimensions  PDFDimensions
}

type PDFAnnotation struct {
	Type     string
	Contents string
	Rect     []float64
}

type PDFDimensions struct {
	Width  float64
	Height float64
}

// ExtractPDF parses a PDF into document metadata and per-page content.
// Pages without a text layer are kept with empty Text.
func ExtractPDF(data []byte) (doc *PDFDocument, err error) {
	if len(data) == 0 {
		return nil, errors.New("empty PDF content")
	}

	// The pdf package panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("failed to parse PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	info := reader.Trailer().Key("Info")
	doc = &PDFDocument{
		NumberOfPages:    reader.NumPage(),
		Title:            info.Key("Title").Text(),
		Author:           info.Key("Author").Text(),
		Subject:          info.Key("Subject").Text(),
		Keywords:         info.Key("Keywords").Text(),
		Creator:          info.Key("Creator").Text(),
		Producer:         info.Key("Producer").Text(),
		CreationDate:     info.Key("CreationDate").Text(),
		ModificationDate: info.Key("ModDate").Text(),
		Pages:            make([]PDFPage, 0, reader.NumPage()),
	}

	for i := 1; i <= doc.NumberOfPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		doc.Pages = append(doc.Pages, extractPage(i, page))
	}

	return doc, nil
}

// ExtractPDFContent returns the structured PDF as indented JSON.
func ExtractPDFContent(data []byte) (string, error) {
	doc, err := ExtractPDF(data)
	if err != nil {
		return "", err
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize PDF structure: %w", err)
	}
	return string(out), nil
}

func extractPage(number int, page pdf.Page) PDFPage {
	p := PDFPage{
		PageNumber:  number,
		Fonts:       []string{},
		Annotations: []PDFAnnotation{},
	}

	// Unreadable text is reported as empty rather than failing the document.
	if text, err := page.GetPlainText(nil); err == nil {
		p.Text = strings.TrimSpace(text)
	}

	for _, name := range page.Fonts() {
		font := page.Font(name)
		if base := font.BaseFont(); base != "" {
			p.Fonts = append(p.Fonts, base)
		} else {
			p.Fonts = append(p.Fonts, name)
		}
	}

	annots := page.V.Key("Annots")
	for i := 0; i < annots.Len(); i++ {
		a := annots.Index(i)
		p.Annotations = append(p.Annotations, PDFAnnotation{
			Type:     a.Key("Subtype").Name(),
			Contents: a.Key("Contents").Text(),
			Rect:     floats(a.Key("Rect")),
		})
	}

	if box := floats(inherited(page.V, "MediaBox")); len(box) == 4 {
		p.Dimensions = PDFDimensions{Width: box[2] - box[0], Height: box[3] - box[1]}
	}

	return p
}

// inherited looks key up on the page and then up its Parent chain.
func inherited(v pdf.Value, key string) pdf.Value {
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		if r := v.Key(key); !r.IsNull() {
			return r
		}
		v = v.Key("Parent")
	}
	return pdf.Value{}
}

func floats(v pdf.Value) []float64 {
	if v.Kind() != pdf.Array {
		return nil
	}
	out := make([]float64, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		out = append(out, v.Index(i).Float64())
	}
	return out
}
