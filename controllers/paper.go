package controllers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"research-repository-api/middleware"
	"research-repository-api/models"
	"research-repository-api/services"

	"github.com/gin-gonic/gin"
)

// multipart framing plus the text fields on top of the attachment itself
const maxFormOverhead = 1 << 20

type updateStatusRequest struct {
	Status string `json:"status"`
}

// PaperController serves the paper upload, listing, review and download
// endpoints.
type PaperController struct {
	papers *services.PaperService
}

func NewPaperController(papers *services.PaperService) *PaperController {
	return &PaperController{papers: papers}
}

// Upload handles POST /papers/upload (student and faculty).
func (pc *PaperController) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, services.MaxAttachmentBytes+maxFormOverhead)

	upload, err := readUpload(c)
	if err != nil {
		respondError(c, err)
		return
	}

	input := services.SubmissionInput{
		Title:      c.PostForm("title"),
		Authors:    c.PostForm("authors"),
		Abstract:   c.PostForm("abstract"),
		Domain:     c.PostForm("domain"),
		Department: c.PostForm("department"),
		Year:       c.PostForm("year"),
	}

	paper, err := pc.papers.Submit(c.Request.Context(), input, upload, middleware.CurrentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Paper submitted successfully and is awaiting admin approval.",
		"data":    paper.View(),
	})
}

// readUpload returns the "file" part, or nil when the request carries none.
func readUpload(c *gin.Context) (*services.Upload, error) {
	header, err := c.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			return nil, &services.ValidationError{
				Op:     "submission",
				Fields: []services.FieldError{{Field: "file", Message: "file size exceeds 10MB limit"}},
			}
		}
		return nil, nil
	}

	upload := &services.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	}
	if header.Size > services.MaxAttachmentBytes {
		return upload, nil
	}

	data, err := readPart(header)
	if err != nil {
		return nil, fmt.Errorf("read uploaded file: %w", err)
	}
	upload.Data = data
	return upload, nil
}

func readPart(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, services.MaxAttachmentBytes+1))
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}

// List handles GET /papers?search=&dashboard=true.
func (pc *PaperController) List(c *gin.Context) {
	dashboard := c.Query("dashboard") == "true"
	search := c.Query("search")

	papers, err := pc.papers.List(c.Request.Context(), middleware.CurrentUser(c), dashboard, search)
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]models.PaperView, 0, len(papers))
	for _, p := range papers {
		views = append(views, p.View())
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(views),
		"data":    views,
	})
}

// UpdateStatus handles PUT /papers/:id/status (admin).
func (pc *PaperController) UpdateStatus(c *gin.Context) {
	id, err := paperID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, services.ErrInvalidStatus)
		return
	}
	status := models.PaperStatus(req.Status)

	paper, err := pc.papers.SetStatus(c.Request.Context(), id, status, middleware.CurrentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Paper status updated to %s", paper.Status),
	})
}

// Download handles GET /papers/:id/download (public).
func (pc *PaperController) Download(c *gin.Context) {
	id, err := paperID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	download, err := pc.papers.Download(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	defer download.Body.Close()

	c.DataFromReader(http.StatusOK, download.Size, "application/pdf", download.Body, map[string]string{
		"Content-Disposition": contentDisposition(download.Filename),
	})
}

func contentDisposition(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return `attachment; filename="paper.pdf"`
}
