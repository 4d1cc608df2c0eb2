package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/R3E-Network/canteen_pos/internal/app/domain/admin"
	"github.com/R3E-Network/canteen_pos/internal/app/domain/identity"
	"github.com/R3E-Network/canteen_pos/internal/app/domain/shop"
	"github.com/R3E-Network/canteen_pos/internal/app/domain/student"
	"github.com/R3E-Network/canteen_pos/internal/app/storage/memory"
	apperrors "github.com/R3E-Network/canteen_pos/internal/errors"
)

func mustHash(t *testing.T, plain string) string {
	t.Helper()
	h, err := HashPassword(plain)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return h
}

func TestAuthenticateRoles(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	_, _ = store.CreateStudent(ctx, student.Student{ID: "01514", Name: "Ana", PasswordHash: mustHash(t, "pw1"), Balance: 50000})
	sh, _ := store.CreateShop(ctx, shop.Shop{Name: "Noodles", OwnerName: "Bo", PasswordHash: mustHash(t, "pw2")})
	_, _ = store.CreateAdmin(ctx, admin.Admin{Username: "teacher1", Name: "T", PasswordHash: mustHash(t, "pw3")})

	svc := New(store, store, store, nil)

	p, err := svc.Authenticate(ctx, identity.RoleStudent, "01514", "pw1")
	if err != nil {
		t.Fatalf("student login: %v", err)
	}
	if p.Identity.SubjectID != "01514" || p.Balance != 50000 {
		t.Fatalf("unexpected principal %+v", p)
	}

	p, err = svc.Authenticate(ctx, identity.RoleShop, "Noodles", "pw2")
	if err != nil {
		t.Fatalf("shop login: %v", err)
	}
	if p.Identity.OwnerName != "Bo" || p.Identity.SubjectID == "" || p.Identity.DisplayName != sh.Name {
		t.Fatalf("unexpected shop principal %+v", p)
	}

	if _, err := svc.Authenticate(ctx, identity.RoleAdmin, "teacher1", "pw3"); err != nil {
		t.Fatalf("admin login: %v", err)
	}
}

func TestAuthenticateFailures(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	_, _ = store.CreateStudent(ctx, student.Student{ID: "01514", PasswordHash: mustHash(t, "pw1")})
	svc := New(store, store, store, nil)

	cases := []struct {
		name       string
		role       identity.Role
		id, secret string
	}{
		{"wrong password", identity.RoleStudent, "01514", "nope"},
		{"unknown student", identity.RoleStudent, "99999", "pw1"},
		{"empty identifier", identity.RoleStudent, "", "pw1"},
		{"student id as shop", identity.RoleShop, "01514", "pw1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Authenticate(ctx, tc.role, tc.id, tc.secret)
			if !errors.Is(err, apperrors.ErrInvalidCredentials) {
				t.Fatalf("expected invalid credentials, got %v", err)
			}
		})
	}
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	if _, err := HashPassword(""); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestRefreshReadsCurrentBalance(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	st, _ := store.CreateStudent(ctx, student.Student{ID: "01514", Name: "Ana", PasswordHash: "x", Balance: 50000})
	svc := New(store, store, store, nil)

	st.Balance = 1200
	if _, err := store.UpdateStudent(ctx, st); err != nil {
		t.Fatalf("update: %v", err)
	}
	p, err := svc.Refresh(ctx, identity.Identity{Role: identity.RoleStudent, SubjectID: "01514"})
	if err != nil || p.Balance != 1200 || p.Identity.DisplayName != "Ana" {
		t.Fatalf("refresh: %+v %v", p, err)
	}

	if err := store.DeleteStudent(ctx, "01514"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Refresh(ctx, identity.Identity{Role: identity.RoleStudent, SubjectID: "01514"}); !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for deleted student, got %v", err)
	}

	shopID := identity.Identity{Role: identity.RoleShop, SubjectID: "3"}
	if p, err := svc.Refresh(ctx, shopID); err != nil || p.Identity != shopID {
		t.Fatalf("shop refresh: %+v %v", p, err)
	}
}
