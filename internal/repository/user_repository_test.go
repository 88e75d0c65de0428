package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/classmint/classmint-server/internal/model"
	"github.com/classmint/classmint-server/internal/utils"
)

func TestUserCreateNormalizesAndHashes(t *testing.T) {
	db, cleanup := newTestDB(t)
	defer cleanup()
	repo := NewUserRepo(db)
	ctx := context.Background()

	id, err := repo.Create(ctx, "  MsSmith ", "chalkboard", model.RoleTeacher, 4)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id == 0 {
		t.Fatal("expected generated user ID")
	}

	u, err := repo.GetByUsername(ctx, "MSSMITH")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if u.Username != "mssmith" || u.Role != model.RoleTeacher || !u.IsActive {
		t.Fatalf("unexpected user: %+v", u)
	}
	if !utils.VerifyPassword(u.PasswordHash, "chalkboard") {
		t.Fatal("stored hash does not verify against the password")
	}
	if utils.VerifyPassword(u.PasswordHash, "wrong") {
		t.Fatal("hash verified against the wrong password")
	}
}

func TestUserCreateDuplicateUsername(t *testing.T) {
	db, cleanup := newTestDB(t)
	defer cleanup()
	repo := NewUserRepo(db)
	ctx := context.Background()

	if _, err := repo.Create(ctx, "alice", "pw1", model.RoleStudent, 4); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := repo.Create(ctx, "ALICE", "pw2", model.RoleStudent, 4); err != ErrUsernameExists {
		t.Fatalf("expected ErrUsernameExists, got %v", err)
	}
}

func TestUserGetByIDAndListStudents(t *testing.T) {
	db, cleanup := newTestDB(t)
	defer cleanup()
	repo := NewUserRepo(db)
	ctx := context.Background()

	teacherID := insertTestUser(t, db, "teacher", model.RoleTeacher)
	insertTestUser(t, db, "zoe", model.RoleStudent)
	insertTestUser(t, db, "adam", model.RoleStudent)

	u, err := repo.GetByID(ctx, teacherID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if u.Username != "teacher" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if _, err := repo.GetByID(ctx, 999); err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}

	students, err := repo.ListStudents(ctx)
	if err != nil {
		t.Fatalf("ListStudents: %v", err)
	}
	if len(students) != 2 || students[0].Username != "adam" || students[1].Username != "zoe" {
		t.Fatalf("unexpected students: %+v", students)
	}
}
