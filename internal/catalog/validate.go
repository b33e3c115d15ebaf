package catalog

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/lehigh-university-libraries/preprints/internal/models"
)

var (
	errPDFRequired           = validation.NewError("validation_pdf_required", "Please select a PDF file")
	errTitleAbstractRequired = validation.NewError("validation_title_abstract_required", "Title and abstract are required")
)

// ValidateUpload performs the checks done before any network call. A failure
// is reported as ErrInvalidInput.
func ValidateUpload(req models.UploadRequest) error {
	if err := validation.Validate(req.FileData, validation.Required.ErrorObject(errPDFRequired)); err != nil {
		return newAPIError(ErrInvalidInput, 0, err.Error(), nil)
	}
	if err := validation.Validate(req.FileType,
		validation.Required.ErrorObject(errPDFRequired),
		validation.In(models.PDFMediaType).ErrorObject(errPDFRequired),
	); err != nil {
		return newAPIError(ErrInvalidInput, 0, err.Error(), nil)
	}

	title := strings.TrimSpace(req.Title)
	abstract := strings.TrimSpace(req.Abstract)
	for _, v := range []string{title, abstract} {
		if err := validation.Validate(v, validation.Required.ErrorObject(errTitleAbstractRequired)); err != nil {
			return newAPIError(ErrInvalidInput, 0, err.Error(), nil)
		}
	}
	return nil
}

// LoadAttachment reads a file from disk and sniffs its media type.
func LoadAttachment(path string) (name, mediaType string, data []byte, err error) {
	data, err = os.ReadFile(path)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to read attachment: %w", err)
	}
	mediaType = http.DetectContentType(data)
	if i := strings.Index(mediaType, ";"); i >= 0 {
		mediaType = mediaType[:i]
	}
	return filepath.Base(path), mediaType, data, nil
}
