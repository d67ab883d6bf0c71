package extractor

import (
	"errors"
	"fmt"

	"github.com/BerylCAtieno/web-accessibility-api/internal/models"
	"github.com/BerylCAtieno/web-accessibility-api/internal/utils"
)

// ExtractDocument renders uploaded file bytes into the text block that
// replaces the prompt placeholder.
func ExtractDocument(t models.AnalysisType, data []byte) (string, error) {
	if len(data) == 0 {
		return "", utils.NewBadRequestError("File content cannot be empty.")
	}

	var (
		content string
		err     error
	)
	switch t {
	case models.AnalysisTypePDF:
		content, err = ExtractPDFContent(data)
	case models.AnalysisTypeWordDocument:
		content, err = ExtractDOCXContent(data)
	default:
		return "", utils.NewBadRequestError(fmt.Sprintf("Unsupported document type: %s", t))
	}

	if errors.Is(err, ErrPartTooLarge) {
		bad := utils.NewBadRequestError(fmt.Sprintf("The %s document is too large to analyze", t))
		bad.Err = err
		return "", bad
	}
	if err != nil {
		bad := utils.NewBadRequestError(fmt.Sprintf("Could not read %s document", t))
		bad.Err = err
		return "", bad
	}
	return content, nil
}
