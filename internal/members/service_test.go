package members

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jcalloway/tillpoint-backend/pkg/db/models"
	pkgerrors "github.com/jcalloway/tillpoint-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:members_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Member{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return svc, db
}

func TestRegisterAndLookup(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	member, err := svc.Register(ctx, "Dana", "555-0101")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	found, err := svc.Lookup(ctx, " 555-0101 ")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if found.ID != member.ID {
		t.Fatalf("expected member %s, got %s", member.ID, found.ID)
	}

	if _, err := svc.Register(ctx, "Other", "555-0101"); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("duplicate phone should conflict, got %v", err)
	}
}

func TestLookupUnknownPhone(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Lookup(context.Background(), "555-9999")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAdjustPointsFloorsAtZero(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	member, err := svc.Register(ctx, "Dana", "555-0101")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	updated, err := svc.AdjustPoints(ctx, member.ID, 40)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if updated.Points != 40 {
		t.Fatalf("expected 40 points, got %d", updated.Points)
	}

	updated, err = svc.AdjustPoints(ctx, member.ID, -100)
	if err != nil {
		t.Fatalf("adjust down: %v", err)
	}
	if updated.Points != 0 {
		t.Fatalf("balance must floor at zero, got %d", updated.Points)
	}
}

func TestSetFrozen(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	member, err := svc.Register(ctx, "Dana", "555-0101")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.SetFrozen(ctx, member.ID, true); err != nil {
		t.Fatalf("freeze: %v", err)
	}

	var got models.Member
	if err := db.First(&got, "id = ?", member.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !got.Frozen {
		t.Fatal("member should be frozen")
	}
}

func TestReplaceMembersOverwrites(t *testing.T) {
	_, db := newTestService(t)
	repo := NewRepository(db)
	ctx := context.Background()

	if err := repo.Create(ctx, &models.Member{ID: uuid.New(), Name: "old", Phone: "1"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	incoming := []models.Member{{ID: uuid.New(), Name: "new", Phone: "2", Points: 10}}
	if err := repo.ReplaceMembers(ctx, incoming); err != nil {
		t.Fatalf("replace: %v", err)
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Name != "new" || list[0].Points != 10 {
		t.Fatalf("pull must replace local members, got %+v", list)
	}
}
