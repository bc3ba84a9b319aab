package services

import (
	"bytes"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"

	"research-repository-api/models"
)

// maxExtensionRunes bounds how much of a suffix counts as an extension worth
// keeping when a display name is shortened.
const maxExtensionRunes = 16

const (
	// MaxAttachmentBytes is the largest accepted upload (10 MiB).
	MaxAttachmentBytes int64 = 10 * 1024 * 1024

	pdfContentType   = "application/pdf"
	attachmentField  = "file"
	defaultExtension = ".pdf"
)

var errUnreadablePDF = errors.New("file is not a readable PDF document")

// Upload is an attachment received with a submission. Data may be nil when
// the declared size already exceeds the limit.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// validateUpload checks the declared type, size and actual content of a
// submitted attachment and returns its page count.
func validateUpload(upload *Upload, verr *ValidationError) int {
	if upload == nil {
		verr.add(attachmentField, "a PDF file is required")
		return 0
	}

	declared := strings.ToLower(strings.TrimSpace(upload.ContentType))
	if i := strings.Index(declared, ";"); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if declared != pdfContentType {
		verr.add(attachmentField, "only PDF files are allowed")
		return 0
	}

	size := upload.Size
	if int64(len(upload.Data)) > size {
		size = int64(len(upload.Data))
	}
	if size > MaxAttachmentBytes {
		verr.add(attachmentField, "file size exceeds 10MB limit")
		return 0
	}
	if len(upload.Data) == 0 {
		verr.add(attachmentField, "file is empty")
		return 0
	}

	if !mimetype.Detect(upload.Data).Is(pdfContentType) {
		verr.add(attachmentField, "file content is not a PDF document")
		return 0
	}
	pages, err := countPDFPages(upload.Data)
	if err != nil {
		verr.add(attachmentField, err.Error())
		return 0
	}
	return pages
}

// countPDFPages parses the document structure. The parser panics on some
// malformed input, so panics are turned into errUnreadablePDF.
func countPDFPages(data []byte) (pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = 0, errUnreadablePDF
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, errUnreadablePDF
	}
	pages = reader.NumPage()
	if pages <= 0 {
		return 0, errUnreadablePDF
	}
	return pages, nil
}

// storedFileName builds the name an attachment is saved under:
// <field>-<unix nanos><ext>, independent of the paper title.
func storedFileName(original string, at time.Time) string {
	ext := strings.ToLower(filepath.Ext(original))
	if ext == "" || len(ext) > 10 {
		ext = defaultExtension
	}
	return attachmentField + "-" + strconv.FormatInt(at.UnixNano(), 10) + ext
}

// displayFileName reduces a client supplied filename to its base name. The
// result is valid UTF-8 and at most models.PaperFileNameMaxLength characters,
// shortened on a character boundary with the extension kept.
func displayFileName(original, fallback string) string {
	name := strings.ToValidUTF8(original, "")
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimSpace(filepath.Base(name))
	name = strings.ReplaceAll(name, "\x00", "")
	if name == "" || name == "." || name == ".." || name == "/" {
		return fallback
	}
	if utf8.RuneCountInString(name) <= models.PaperFileNameMaxLength {
		return name
	}
	ext := filepath.Ext(name)
	if utf8.RuneCountInString(ext) > maxExtensionRunes {
		ext = ""
	}
	stem := []rune(strings.TrimSuffix(name, ext))
	return string(stem[:models.PaperFileNameMaxLength-utf8.RuneCountInString(ext)]) + ext
}
