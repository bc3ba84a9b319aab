package services

import (
	"strings"

	"research-repository-api/models"

	"gorm.io/gorm"
)

// Audience is the base visibility scope of a paper listing.
type Audience int

const (
	// AudiencePublic sees approved papers only.
	AudiencePublic Audience = iota
	// AudienceReviewer is the admin review queue: every pending paper.
	AudienceReviewer
	// AudienceOwner is a contributor's dashboard: all of their own papers.
	AudienceOwner
)

func (a Audience) String() string {
	switch a {
	case AudienceReviewer:
		return "reviewer"
	case AudienceOwner:
		return "owner"
	default:
		return "public"
	}
}

// searchColumns are matched case-insensitively against the search text.
var searchColumns = []string{"title", "authors", "domain", "department", "abstract"}

// PaperFilter selects the papers a caller may list.
type PaperFilter struct {
	Audience Audience
	OwnerID  uint
	Search   string
}

// VisibilityFilter decides which papers viewer may list.
//
//	admin + dashboard        -> status = pending
//	other role + dashboard   -> uploaded_by = viewer
//	anything else            -> status = approved
//
// A non-empty search is ANDed with the base scope, never widening it.
func VisibilityFilter(viewer *models.User, dashboard bool, search string) PaperFilter {
	filter := PaperFilter{Audience: AudiencePublic, Search: strings.TrimSpace(search)}
	if viewer == nil || !dashboard {
		return filter
	}
	if viewer.Role == models.RoleAdmin {
		filter.Audience = AudienceReviewer
		return filter
	}
	filter.Audience = AudienceOwner
	filter.OwnerID = viewer.ID
	return filter
}

// Apply renders the filter as a gorm scope, newest first.
func (f PaperFilter) Apply(db *gorm.DB) *gorm.DB {
	switch f.Audience {
	case AudienceReviewer:
		db = db.Where("status = ?", models.PaperStatusPending)
	case AudienceOwner:
		db = db.Where("uploaded_by = ?", f.OwnerID)
	default:
		db = db.Where("status = ?", models.PaperStatusApproved)
	}

	if f.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(f.Search)) + "%"
		clauses := make([]string, 0, len(searchColumns))
		args := make([]interface{}, 0, len(searchColumns))
		for _, column := range searchColumns {
			clauses = append(clauses, "LOWER("+column+") LIKE ?")
			args = append(args, pattern)
		}
		db = db.Where("("+strings.Join(clauses, " OR ")+")", args...)
	}

	return db.Order("created_at DESC").Order("id DESC")
}

// Matches evaluates the filter against a single paper. It must agree with
// Apply; the in-memory store relies on it.
func (f PaperFilter) Matches(p models.Paper) bool {
	switch f.Audience {
	case AudienceReviewer:
		if p.Status != models.PaperStatusPending {
			return false
		}
	case AudienceOwner:
		if p.UploadedBy != f.OwnerID {
			return false
		}
	default:
		if p.Status != models.PaperStatusApproved {
			return false
		}
	}

	if f.Search == "" {
		return true
	}
	needle := strings.ToLower(f.Search)
	for _, value := range []string{p.Title, p.Authors, p.Domain, p.Department, p.Abstract} {
		if strings.Contains(strings.ToLower(value), needle) {
			return true
		}
	}
	return false
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
