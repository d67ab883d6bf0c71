package prompt

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/BerylCAtieno/web-accessibility-api/internal/models"
)

// Placeholder is replaced by the prepared content, exactly once.
const Placeholder = "#CONTENT"

// Version of the embedded template set.
const Version = "v1"

//go:embed templates/v1/*.txt
var embedded embed.FS

var templateFiles = map[models.AnalysisType]string{
	models.AnalysisTypeURL:          "Prompt_URL.txt",
	models.AnalysisTypeHTML:         "Prompt_HTML.txt",
	models.AnalysisTypePDF:          "Prompt_PDF.txt",
	models.AnalysisTypeWordDocument: "Prompt_Word.txt",
}

// Store holds one template per analysis type. It is read-only after NewStore.
type Store struct {
	templates map[models.AnalysisType]string
}

// NewStore loads the templates from dir, or from the embedded set when dir is empty.
func NewStore(dir string) (*Store, error) {
	var fsys fs.FS
	if dir != "" {
		fsys = os.DirFS(dir)
	} else {
		sub, err := fs.Sub(embedded, "templates/"+Version)
		if err != nil {
			return nil, err
		}
		fsys = sub
	}

	s := &Store{templates: make(map[models.AnalysisType]string, len(templateFiles))}
	for t, name := range templateFiles {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("error loading the prompt resource file %s: %w", name, err)
		}
		text := string(data)
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("the prompt resource file %s is empty", name)
		}
		if !strings.Contains(text, Placeholder) {
			return nil, fmt.Errorf("the prompt resource file %s has no %s placeholder", name, Placeholder)
		}
		s.templates[t] = text
	}

	return s, nil
}

// Render substitutes content into the template for t.
func (s *Store) Render(t models.AnalysisType, content string) (string, error) {
	tpl, ok := s.templates[t]
	if !ok {
		return "", fmt.Errorf("no prompt template for analysis type %s", t)
	}
	return strings.Replace(tpl, Placeholder, content, 1), nil
}
