package auth

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/R3E-Network/canteen_pos/internal/app/domain/identity"
	"github.com/R3E-Network/canteen_pos/internal/app/domain/money"
	"github.com/R3E-Network/canteen_pos/internal/app/metrics"
	"github.com/R3E-Network/canteen_pos/internal/app/storage"
	apperrors "github.com/R3E-Network/canteen_pos/internal/errors"
	"github.com/R3E-Network/canteen_pos/pkg/logger"
)

// Principal is the outcome of a successful login. Balance is only set for
// students.
type Principal struct {
	Identity identity.Identity
	Balance  money.Cents
}

// Service verifies credentials for the three account kinds.
type Service struct {
	students storage.StudentStore
	shops    storage.ShopStore
	admins   storage.AdminStore
	log      *logger.Logger
}

// New constructs an auth service.
func New(students storage.StudentStore, shops storage.ShopStore, admins storage.AdminStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	return &Service{students: students, shops: shops, admins: admins, log: log}
}

var (
	dummyOnce sync.Once
	dummyHash []byte
)

// dummy returns a hash compared against when the identifier is unknown so a
// miss costs the same as a wrong password.
func dummy() []byte {
	dummyOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("canteen-dummy-password"), bcrypt.DefaultCost)
	})
	return dummyHash
}

// HashPassword hashes plaintext with bcrypt.
func HashPassword(plaintext string) (string, error) {
	if plaintext == "" {
		return "", apperrors.InvalidInput("password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", apperrors.InvalidInput(err.Error())
	}
	return string(hash), nil
}

// Authenticate checks plaintext against the account named by identifier:
// a student id, a shop name or an admin username depending on role.
func (s *Service) Authenticate(ctx context.Context, role identity.Role, identifier, plaintext string) (Principal, error) {
	identifier = strings.TrimSpace(identifier)
	p, hash, err := s.lookup(ctx, role, identifier)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return Principal{}, err
		}
		_ = bcrypt.CompareHashAndPassword(dummy(), []byte(plaintext))
		metrics.RecordLogin(string(role), false)
		return Principal{}, apperrors.InvalidCredentials()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)); err != nil {
		metrics.RecordLogin(string(role), false)
		s.log.WithField("role", string(role)).Debug("password mismatch")
		return Principal{}, apperrors.InvalidCredentials()
	}
	metrics.RecordLogin(string(role), true)
	return p, nil
}

func (s *Service) lookup(ctx context.Context, role identity.Role, identifier string) (Principal, string, error) {
	if identifier == "" {
		return Principal{}, "", apperrors.NotFound(string(role), identifier)
	}
	switch role {
	case identity.RoleStudent:
		st, err := s.students.GetStudent(ctx, identifier)
		if err != nil {
			return Principal{}, "", err
		}
		return Principal{
			Identity: identity.Identity{Role: role, SubjectID: st.ID, DisplayName: st.Name},
			Balance:  st.Balance,
		}, st.PasswordHash, nil
	case identity.RoleShop:
		sh, err := s.shops.GetShopByName(ctx, identifier)
		if err != nil {
			return Principal{}, "", err
		}
		return Principal{Identity: identity.Identity{
			Role:        role,
			SubjectID:   strconv.FormatInt(sh.ID, 10),
			DisplayName: sh.Name,
			OwnerName:   sh.OwnerName,
		}}, sh.PasswordHash, nil
	case identity.RoleAdmin:
		a, err := s.admins.GetAdminByUsername(ctx, identifier)
		if err != nil {
			return Principal{}, "", err
		}
		return Principal{Identity: identity.Identity{
			Role:        role,
			SubjectID:   strconv.FormatInt(a.ID, 10),
			DisplayName: a.Name,
		}}, a.PasswordHash, nil
	}
	return Principal{}, "", apperrors.InvalidInput("unknown role")
}

// Refresh reloads the stored side of a principal. Students get their current
// balance; a deleted student yields Unauthorized so the session ends.
func (s *Service) Refresh(ctx context.Context, id identity.Identity) (Principal, error) {
	if id.Role != identity.RoleStudent {
		return Principal{Identity: id}, nil
	}
	st, err := s.students.GetStudent(ctx, id.SubjectID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return Principal{}, apperrors.Unauthorized("account no longer exists")
		}
		return Principal{}, err
	}
	id.DisplayName = st.Name
	return Principal{Identity: id, Balance: st.Balance}, nil
}
