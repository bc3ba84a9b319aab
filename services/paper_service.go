package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"research-repository-api/models"
	"research-repository-api/utils"
)

const (
	minPublicationYear = 1900
)

// SubmissionInput holds the text fields of a paper submission as received
// from the multipart form.
type SubmissionInput struct {
	Title      string
	Authors    string
	Abstract   string
	Domain     string
	Department string
	Year       string
}

// Download is an approved paper's attachment ready to be streamed.
type Download struct {
	Paper    models.Paper
	Filename string
	Size     int64
	Body     io.ReadCloser
}

// PaperService implements the submission, listing, review and download
// workflows.
type PaperService struct {
	papers PaperRepository
	files  FileStore
	now    func() time.Time
}

func NewPaperService(papers PaperRepository, files FileStore) *PaperService {
	return &PaperService{
		papers: papers,
		files:  files,
		now:    time.Now,
	}
}

// Submit validates a submission, stores its attachment and records the paper
// as pending for owner. The file is written before the record; if the record
// insert fails the file stays behind.
func (s *PaperService) Submit(ctx context.Context, input SubmissionInput, upload *Upload, owner *models.User) (*models.Paper, error) {
	if err := Authorize(owner, models.RoleStudent, models.RoleFaculty); err != nil {
		return nil, err
	}

	paper, pages, err := s.validateSubmission(input, upload)
	if err != nil {
		return nil, err
	}

	now := s.now()
	paper.File = storedFileName(upload.Filename, now)
	paper.OriginalName = displayFileName(upload.Filename, paper.File)
	paper.FileSize = int64(len(upload.Data))
	paper.PageCount = pages
	paper.Status = models.PaperStatusPending
	paper.UploadedBy = owner.ID
	paper.CreatedAt = now
	paper.UpdatedAt = now

	if err := s.files.Save(ctx, paper.File, bytes.NewReader(upload.Data), paper.FileSize, pdfContentType); err != nil {
		return nil, fmt.Errorf("save attachment: %w", err)
	}

	// The attachment is already on disk; a dropped client must not abort the
	// insert that references it.
	if err := s.papers.CreatePaper(persistentContext(ctx), paper); err != nil {
		utils.LoggerFromContext(ctx).Error("paper record insert failed, attachment left orphaned",
			"file", paper.File,
			"owner_id", owner.ID,
			"error", err,
		)
		return nil, fmt.Errorf("create paper: %w", err)
	}

	ownerCopy := *owner
	paper.Owner = &ownerCopy
	utils.LoggerFromContext(ctx).Info("paper submitted",
		"paper_id", paper.ID,
		"owner_id", owner.ID,
		"file", paper.File,
		"pages", pages,
	)
	return paper, nil
}

func (s *PaperService) validateSubmission(input SubmissionInput, upload *Upload) (*models.Paper, int, error) {
	verr := &ValidationError{Op: "submission"}

	title := requiredText(verr, "title", input.Title, models.PaperTitleMaxLength)
	authors := requiredText(verr, "authors", input.Authors, models.PaperAuthorsMaxLength)
	abstract := requiredText(verr, "abstract", input.Abstract, 0)
	domain := requiredText(verr, "domain", input.Domain, models.PaperDomainMaxLength)
	department := requiredText(verr, "department", input.Department, models.PaperDepartmentMaxLength)

	year := 0
	rawYear := strings.TrimSpace(input.Year)
	if rawYear == "" {
		verr.add("year", "year is required")
	} else if parsed, err := strconv.Atoi(rawYear); err != nil {
		verr.add("year", "year must be a whole number")
	} else if maxYear := s.now().Year() + 1; parsed < minPublicationYear || parsed > maxYear {
		verr.add("year", fmt.Sprintf("year must be between %d and %d", minPublicationYear, maxYear))
	} else {
		year = parsed
	}

	pages := validateUpload(upload, verr)

	if err := verr.orNil(); err != nil {
		return nil, 0, err
	}
	return &models.Paper{
		Title:      title,
		Authors:    authors,
		Abstract:   abstract,
		Domain:     domain,
		Department: department,
		Year:       year,
	}, pages, nil
}

func requiredText(verr *ValidationError, field, value string, maxLen int) string {
	value = utils.SanitizeInput(value)
	if value == "" {
		verr.add(field, field+" is required")
		return ""
	}
	if maxLen > 0 && len([]rune(value)) > maxLen {
		verr.add(field, fmt.Sprintf("%s must be at most %d characters", field, maxLen))
		return ""
	}
	return value
}

// List returns the papers viewer may see for the requested view, newest
// first.
func (s *PaperService) List(ctx context.Context, viewer *models.User, dashboard bool, search string) ([]models.Paper, error) {
	if viewer == nil {
		return nil, ErrUnauthenticated
	}
	filter := VisibilityFilter(viewer, dashboard, search)
	utils.LoggerFromContext(ctx).Debug("listing papers",
		"user_id", viewer.ID,
		"role", viewer.Role,
		"dashboard", dashboard,
		"audience", filter.Audience.String(),
	)

	papers, err := s.papers.ListPapers(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
	}
	return papers, nil
}

// SetStatus records an admin's review decision. Re-applying the current
// decision is a no-op; changing a decision that was already made, or losing
// a race with another reviewer, yields ErrConflict.
func (s *PaperService) SetStatus(ctx context.Context, id uint, status models.PaperStatus, reviewer *models.User) (*models.Paper, error) {
	if err := Authorize(reviewer, models.RoleAdmin); err != nil {
		return nil, err
	}
	if !status.ReviewDecision() {
		return nil, ErrInvalidStatus
	}

	paper, found, err := s.papers.FindPaper(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find paper: %w", err)
	}
	if !found {
		return nil, ErrNotFound
	}
	if paper.Status == status {
		return &paper, nil
	}
	if paper.Status != models.PaperStatusPending {
		return nil, ErrConflict
	}

	now := s.now()
	updated, err := s.papers.TransitionStatus(ctx, id, models.PaperStatusPending, status, now)
	if err != nil {
		return nil, fmt.Errorf("update paper status: %w", err)
	}
	if !updated {
		return nil, ErrConflict
	}

	paper.Status = status
	paper.UpdatedAt = now
	utils.LoggerFromContext(ctx).Info("paper reviewed",
		"paper_id", id,
		"status", status,
		"reviewer_id", reviewer.ID,
	)
	return &paper, nil
}

// Download opens the attachment of an approved paper. Missing and
// unapproved papers are both reported as ErrNotFound.
func (s *PaperService) Download(ctx context.Context, id uint) (*Download, error) {
	paper, found, err := s.papers.FindPaper(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find paper: %w", err)
	}
	if !found || paper.Status != models.PaperStatusApproved {
		return nil, ErrNotFound
	}

	body, size, err := s.files.Open(ctx, paper.File)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			utils.LoggerFromContext(ctx).Warn("attachment missing for approved paper",
				"paper_id", paper.ID,
				"file", paper.File,
			)
			return nil, ErrFileMissing
		}
		return nil, fmt.Errorf("open attachment: %w", err)
	}

	filename := paper.OriginalName
	if filename == "" {
		filename = paper.File
	}
	return &Download{Paper: paper, Filename: filename, Size: size, Body: body}, nil
}
