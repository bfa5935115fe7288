package httpadapter

import (
	"errors"
	"io"
	"net/http"

	"github.com/PabloGalante/studychat/internal/app/upload"
	"github.com/PabloGalante/studychat/internal/domain"
	"github.com/PabloGalante/studychat/internal/observability"
)

type uploadFileResponse struct {
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	SizeLabel string `json:"size_label"`
	HumanSize string `json:"human_size"`
}

type uploadResponse struct {
	Files    []uploadFileResponse `json:"files"`
	Rejected []string             `json:"rejected"`
	Label    string               `json:"label"`
}

// handleUploads lists the PDFs of a multipart form. File bodies are counted
// and discarded.
func (s *Server) handleUploads(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	mr, err := r.MultipartReader()
	if err != nil {
		badRequest(w, "invalid multipart form")
		return
	}

	var files []domain.UploadFile
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			uploadError(w, r, err)
			return
		}
		if part.FileName() == "" {
			_ = part.Close()
			continue
		}

		size, err := io.Copy(io.Discard, part)
		_ = part.Close()
		if err != nil {
			uploadError(w, r, err)
			return
		}

		files = append(files, domain.UploadFile{
			Name:        part.FileName(),
			ContentType: part.Header.Get("Content-Type"),
			Size:        size,
		})
	}

	sel := upload.FilterPDFs(files)
	observability.LoggerFromContext(r.Context()).Info("files picked",
		"accepted", len(sel.Files),
		"rejected", len(sel.Rejected),
	)

	resp := uploadResponse{
		Files:    make([]uploadFileResponse, 0, len(sel.Files)),
		Rejected: append([]string{}, sel.Rejected...),
		Label:    sel.UploadLabel(),
	}
	for _, f := range sel.Files {
		resp.Files = append(resp.Files, uploadFileResponse{
			Name:      f.Name,
			Size:      f.Size,
			SizeLabel: f.SizeLabel,
			HumanSize: f.HumanSize,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func uploadError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeErrorMessage(w, http.StatusRequestEntityTooLarge, "upload too large")
		return
	}
	observability.LoggerFromContext(r.Context()).Warn("reading multipart body failed", "error", err)
	badRequest(w, "invalid multipart form")
}
