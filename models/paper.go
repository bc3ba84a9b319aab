package models

import "time"

type PaperStatus string

const (
	PaperStatusPending  PaperStatus = "pending"
	PaperStatusApproved PaperStatus = "approved"
	PaperStatusRejected PaperStatus = "rejected"
)

// Column widths of the papers table, in characters. The size tags below must
// match.
const (
	PaperTitleMaxLength      = 255
	PaperAuthorsMaxLength    = 500
	PaperDomainMaxLength     = 120
	PaperDepartmentMaxLength = 120
	PaperFileNameMaxLength   = 255
)

// ReviewDecision reports whether s is a status an admin may assign.
func (s PaperStatus) ReviewDecision() bool {
	return s == PaperStatusApproved || s == PaperStatusRejected
}

// Paper is a submitted research paper. File holds the generated storage name;
// OriginalName is what downloads are offered as.
type Paper struct {
	ID           uint        `gorm:"primaryKey;column:id" json:"id"`
	Title        string      `gorm:"column:title;size:255;not null" json:"title"`
	Authors      string      `gorm:"column:authors;size:500;not null" json:"authors"`
	Abstract     string      `gorm:"column:abstract;type:text;not null" json:"abstract"`
	Domain       string      `gorm:"column:domain;size:120;not null" json:"domain"`
	Department   string      `gorm:"column:department;size:120;not null" json:"department"`
	Year         int         `gorm:"column:year;not null" json:"year"`
	File         string      `gorm:"column:file;size:255;not null" json:"file"`
	OriginalName string      `gorm:"column:original_name;size:255" json:"original_name"`
	FileSize     int64       `gorm:"column:file_size" json:"file_size"`
	PageCount    int         `gorm:"column:page_count" json:"page_count"`
	Status       PaperStatus `gorm:"column:status;size:16;not null;default:pending;index" json:"status"`
	UploadedBy   uint        `gorm:"column:uploaded_by;not null;index" json:"uploaded_by"`
	CreatedAt    time.Time   `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"column:updated_at" json:"updated_at"`

	// Relations
	Owner *User `gorm:"foreignKey:UploadedBy" json:"-"`
}

func (Paper) TableName() string {
	return "papers"
}

// PaperView is the JSON shape returned to clients, with the owner reduced to
// its public fields.
type PaperView struct {
	Paper
	Owner *UserSummary `json:"owner,omitempty"`
}

func (p Paper) View() PaperView {
	view := PaperView{Paper: p}
	if p.Owner != nil {
		summary := p.Owner.Summary()
		view.Owner = &summary
	}
	return view
}
