package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"research-repository-api/models"
	"research-repository-api/services"

	mysqldriver "github.com/go-sql-driver/mysql"
)

func TestGormStoreTransitionStatusIsConditional(t *testing.T) {
	at := time.Date(2026, time.October, 18, 10, 0, 0, 0, time.UTC)
	updatePattern := regexp.MustCompile("UPDATE `papers` SET `status`=\\?,`updated_at`=\\? WHERE \\(?id = \\? AND status = \\?\\)?")

	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"pending paper moves", 1, true},
		{"already reviewed paper is untouched", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, state := newScriptedGormDB(t, []*queryStep{
				{
					kind:    kindExec,
					pattern: updatePattern,
					args:    []driver.Value{"approved", at, int64(5), "pending"},
					result:  scriptedResult{rowsAffected: tt.affected},
				},
			})
			s := NewGormStore(db)

			got, err := s.TransitionStatus(context.Background(), 5, models.PaperStatusPending, models.PaperStatusApproved, at)
			if err != nil {
				t.Fatalf("transition failed: %v", err)
			}
			if got != tt.want {
				t.Fatalf("updated = %v, want %v", got, tt.want)
			}
			if err := state.verifyComplete(); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestGormStoreListPapersAppliesFilterAndPreloadsOwner(t *testing.T) {
	created := time.Date(2026, time.October, 1, 8, 0, 0, 0, time.UTC)
	db, state := newScriptedGormDB(t, []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT \\* FROM `papers` WHERE status = \\? ORDER BY created_at DESC,id DESC"),
			args:    []driver.Value{"approved"},
			columns: []string{"id", "title", "status", "uploaded_by", "created_at"},
			rows: [][]driver.Value{
				{int64(2), "Soil Moisture Models", "approved", int64(3), created},
			},
		},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT \\* FROM `users` WHERE `users`.`id` (=|IN)"),
			anyArgs: true,
			columns: []string{"id", "name", "email", "password", "role"},
			rows: [][]driver.Value{
				{int64(3), "B. Faculty", "b@example.com", "$2a$hash", "faculty"},
			},
		},
	})
	s := NewGormStore(db)

	papers, err := s.ListPapers(context.Background(), services.VisibilityFilter(nil, false, ""))
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(papers) != 1 {
		t.Fatalf("expected 1 paper, got %d", len(papers))
	}
	p := papers[0]
	if p.ID != 2 || p.Status != models.PaperStatusApproved || !p.CreatedAt.Equal(created) {
		t.Fatalf("unexpected paper: %+v", p)
	}
	if p.Owner == nil || p.Owner.Name != "B. Faculty" {
		t.Fatalf("expected owner to be preloaded, got %+v", p.Owner)
	}
	if view := p.View(); view.Owner == nil || view.Owner.Email != "b@example.com" {
		t.Fatalf("unexpected owner view: %+v", view.Owner)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestGormStoreListPapersSearchArgs(t *testing.T) {
	pattern := "%quantum%"
	db, state := newScriptedGormDB(t, []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT \\* FROM `papers` WHERE uploaded_by = \\? AND .*LOWER\\(title\\) LIKE \\?.*ORDER BY created_at DESC,id DESC"),
			args:    []driver.Value{int64(7), pattern, pattern, pattern, pattern, pattern},
			columns: []string{"id"},
		},
	})
	s := NewGormStore(db)

	owner := &models.User{ID: 7, Role: models.RoleStudent}
	papers, err := s.ListPapers(context.Background(), services.VisibilityFilter(owner, true, " Quantum "))
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(papers) != 0 {
		t.Fatalf("expected no papers, got %d", len(papers))
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestGormStoreFindPaperNotFound(t *testing.T) {
	db, state := newScriptedGormDB(t, []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT \\* FROM `papers` WHERE id = \\? ORDER BY `papers`.`id` LIMIT"),
			anyArgs: true,
			columns: []string{"id"},
		},
	})
	s := NewGormStore(db)

	_, found, err := s.FindPaper(context.Background(), 99)
	if err != nil {
		t.Fatalf("expected no error for a missing paper, got %v", err)
	}
	if found {
		t.Fatalf("expected found=false")
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestGormStoreCreatePaperAssignsID(t *testing.T) {
	db, state := newScriptedGormDB(t, []*queryStep{
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("INSERT INTO `papers` \\(`title`,`authors`,`abstract`,`domain`,`department`,`year`,`file`,`original_name`,`file_size`,`page_count`,`status`,`uploaded_by`,`created_at`,`updated_at`\\)"),
			anyArgs: true,
			result:  scriptedResult{lastInsertID: 41, rowsAffected: 1},
		},
	})
	s := NewGormStore(db)

	paper := &models.Paper{
		Title:      "Crop Yield Forecasting",
		Status:     models.PaperStatusPending,
		UploadedBy: 3,
		Owner:      &models.User{ID: 3},
	}
	if err := s.CreatePaper(context.Background(), paper); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if paper.ID != 41 {
		t.Fatalf("id = %d, want 41", paper.ID)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestGormStoreCreateUserMapsDuplicateKey(t *testing.T) {
	db, state := newScriptedGormDB(t, []*queryStep{
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("INSERT INTO `users`"),
			anyArgs: true,
			err:     &mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry 'a@example.com' for key 'users.email'"},
		},
	})
	s := NewGormStore(db)

	err := s.CreateUser(context.Background(), &models.User{Name: "A", Email: "a@example.com", Password: "hash", Role: models.RoleStudent})
	if !errors.Is(err, services.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestGormStoreFindUserByEmail(t *testing.T) {
	db, state := newScriptedGormDB(t, []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT \\* FROM `users` WHERE email = \\?"),
			anyArgs: true,
			columns: []string{"id", "name", "email", "password", "role"},
			rows: [][]driver.Value{
				{int64(4), "Carol", "carol@example.com", "$2a$hash", "admin"},
			},
		},
	})
	s := NewGormStore(db)

	user, found, err := s.FindUserByEmail(context.Background(), "carol@example.com")
	if err != nil || !found {
		t.Fatalf("expected user, got found=%v err=%v", found, err)
	}
	if user.ID != 4 || user.Role != models.RoleAdmin {
		t.Fatalf("unexpected user: %+v", user)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}
