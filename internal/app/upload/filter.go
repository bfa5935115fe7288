// Package upload implements the PDF-only file picker. Files are listed,
// never stored.
package upload

import (
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/PabloGalante/studychat/internal/domain"
	"github.com/PabloGalante/studychat/internal/observability"
)

const PDFContentType = "application/pdf"

// SelectedFile is an accepted file ready for display.
type SelectedFile struct {
	Name      string
	Size      int64
	SizeLabel string
	HumanSize string
}

// Selection is the outcome of filtering a batch of picked files.
type Selection struct {
	Files    []SelectedFile
	Rejected []string
}

// IsPDF reports whether contentType names a PDF, ignoring parameters and case.
func IsPDF(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType == PDFContentType
}

// FilterPDFs keeps the PDFs of files, preserving order.
func FilterPDFs(files []domain.UploadFile) Selection {
	var sel Selection
	for _, f := range files {
		if !IsPDF(f.ContentType) {
			sel.Rejected = append(sel.Rejected, f.Name)
			continue
		}
		sel.Files = append(sel.Files, SelectedFile{
			Name:      f.Name,
			Size:      f.Size,
			SizeLabel: SizeLabel(f.Size),
			HumanSize: humanize.IBytes(uint64(max(f.Size, 0))),
		})
	}

	observability.UploadFiles.WithLabelValues("accepted").Add(float64(len(sel.Files)))
	observability.UploadFiles.WithLabelValues("rejected").Add(float64(len(sel.Rejected)))
	return sel
}

// SizeLabel renders size in megabytes with two decimals, e.g. "1.50 MB".
func SizeLabel(size int64) string {
	return fmt.Sprintf("%.2f MB", float64(size)/1024/1024)
}

// UploadLabel is the caption of the upload button, e.g. "Upload 2 Files".
func (s Selection) UploadLabel() string {
	n := len(s.Files)
	if n == 1 {
		return "Upload 1 File"
	}
	return fmt.Sprintf("Upload %d Files", n)
}

// DetectContentType sniffs the first bytes of a file. Used where no
// declared type exists, such as local paths given to the CLI.
func DetectContentType(head []byte) string {
	return http.DetectContentType(head)
}
