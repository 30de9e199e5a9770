package stockguard

import (
	"testing"

	"github.com/google/uuid"

	"github.com/jcalloway/tillpoint-backend/pkg/db/models"
	pkgerrors "github.com/jcalloway/tillpoint-backend/pkg/errors"
)

func trackedProduct(stock int) *models.Product {
	return &models.Product{
		ID:             uuid.New(),
		Name:           "latte",
		TrackInventory: true,
		Stock:          stock,
		IsAvailable:    true,
	}
}

func assertDenied(t *testing.T, err error, reason string) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeAdmissionDenied {
		t.Fatalf("expected admission denial, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", typed.Details())
	}
	if details["reason"] != reason {
		t.Fatalf("expected reason %q, got %v", reason, details["reason"])
	}
}

func TestCanIncrease(t *testing.T) {
	t.Run("untracked product is unconstrained", func(t *testing.T) {
		p := trackedProduct(0)
		p.TrackInventory = false
		if err := CanIncrease(p, 99, 99, true); err != nil {
			t.Fatalf("unexpected denial: %v", err)
		}
	})

	t.Run("fully committed stock denies further add", func(t *testing.T) {
		p := trackedProduct(3)
		err := CanIncrease(p, 3, 1, true)
		assertDenied(t, err, ReasonStock)
		typed := pkgerrors.As(err)
		if typed.Details().(map[string]any)["remaining"] != 0 {
			t.Fatalf("expected remaining 0, got %v", typed.Details())
		}
	})

	t.Run("freed quantity can be re-added", func(t *testing.T) {
		p := trackedProduct(3)
		// one unit removed from the cart frees the pool
		if err := CanIncrease(p, 2, 1, true); err != nil {
			t.Fatalf("unexpected denial: %v", err)
		}
	})

	t.Run("unavailable blocks initial add only", func(t *testing.T) {
		p := trackedProduct(10)
		p.IsAvailable = false
		assertDenied(t, CanIncrease(p, 0, 1, true), ReasonUnavailable)
		if err := CanIncrease(p, 1, 1, false); err != nil {
			t.Fatalf("bumping an existing line must stay allowed: %v", err)
		}
	})

	t.Run("nil product", func(t *testing.T) {
		typed := pkgerrors.As(CanIncrease(nil, 0, 1, true))
		if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
			t.Fatalf("expected not found, got %v", typed)
		}
	})
}

func TestCanRedeem(t *testing.T) {
	member := &models.Member{ID: uuid.New(), Points: 100}

	t.Run("within balance", func(t *testing.T) {
		if err := CanRedeem(member, true, 40, 60); err != nil {
			t.Fatalf("unexpected denial: %v", err)
		}
	})

	t.Run("overdraw denied", func(t *testing.T) {
		assertDenied(t, CanRedeem(member, true, 40, 61), ReasonPoints)
	})

	t.Run("frozen member denied", func(t *testing.T) {
		frozen := &models.Member{ID: uuid.New(), Points: 1000, Frozen: true}
		assertDenied(t, CanRedeem(frozen, true, 0, 1), ReasonFrozen)
	})

	t.Run("loyalty disabled denied", func(t *testing.T) {
		assertDenied(t, CanRedeem(member, false, 0, 1), ReasonPoints)
	})

	t.Run("no member denied", func(t *testing.T) {
		assertDenied(t, CanRedeem(nil, true, 0, 1), ReasonPoints)
	})
}
