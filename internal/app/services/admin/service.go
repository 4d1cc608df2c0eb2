package admin

import (
	"context"
	"strings"

	"github.com/R3E-Network/canteen_pos/internal/app/domain/admin"
	"github.com/R3E-Network/canteen_pos/internal/app/domain/money"
	"github.com/R3E-Network/canteen_pos/internal/app/domain/shop"
	"github.com/R3E-Network/canteen_pos/internal/app/domain/student"
	"github.com/R3E-Network/canteen_pos/internal/app/services/auth"
	"github.com/R3E-Network/canteen_pos/internal/app/storage"
	apperrors "github.com/R3E-Network/canteen_pos/internal/errors"
	"github.com/R3E-Network/canteen_pos/pkg/logger"
)

// Service manages accounts on behalf of administrators and provisioning.
type Service struct {
	students storage.StudentStore
	shops    storage.ShopStore
	admins   storage.AdminStore
	log      *logger.Logger
}

// New constructs an admin service.
func New(students storage.StudentStore, shops storage.ShopStore, admins storage.AdminStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("admin")
	}
	return &Service{students: students, shops: shops, admins: admins, log: log}
}

// StudentInput carries editable student fields. An empty Password keeps the
// stored hash on edit.
type StudentInput struct {
	Name     string      `json:"name"`
	Password string      `json:"password"`
	Balance  money.Cents `json:"balance"`
}

// ListStudents returns every student ordered by id.
func (s *Service) ListStudents(ctx context.Context) ([]student.Student, error) {
	return s.students.ListStudents(ctx)
}

// GetStudent returns one student.
func (s *Service) GetStudent(ctx context.Context, id string) (student.Student, error) {
	return s.students.GetStudent(ctx, id)
}

// ListShops returns every shop ordered by id.
func (s *Service) ListShops(ctx context.Context) ([]shop.Shop, error) {
	return s.shops.ListShops(ctx)
}

// CreateStudent provisions a student account.
func (s *Service) CreateStudent(ctx context.Context, id string, in StudentInput) (student.Student, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return student.Student{}, apperrors.InvalidInput("student id is required")
	}
	if err := validateStudent(in); err != nil {
		return student.Student{}, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return student.Student{}, err
	}
	created, err := s.students.CreateStudent(ctx, student.Student{
		ID:           id,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		Balance:      in.Balance,
	})
	if err != nil {
		return student.Student{}, err
	}
	s.log.WithField("student_id", id).Info("student created")
	return created, nil
}

// EditStudent always updates name and balance; the password hash changes only
// when a new password is supplied.
func (s *Service) EditStudent(ctx context.Context, id string, in StudentInput) (student.Student, error) {
	if err := validateStudent(in); err != nil {
		return student.Student{}, err
	}
	existing, err := s.students.GetStudent(ctx, id)
	if err != nil {
		return student.Student{}, err
	}

	existing.Name = strings.TrimSpace(in.Name)
	existing.Balance = in.Balance
	if in.Password != "" {
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return student.Student{}, err
		}
		existing.PasswordHash = hash
	}

	updated, err := s.students.UpdateStudent(ctx, existing)
	if err != nil {
		return student.Student{}, err
	}
	s.log.WithField("student_id", id).
		WithField("password_changed", in.Password != "").
		Info("student updated")
	return updated, nil
}

// DeleteStudent removes the account. Past orders are kept.
func (s *Service) DeleteStudent(ctx context.Context, id string) error {
	if err := s.students.DeleteStudent(ctx, id); err != nil {
		return err
	}
	s.log.WithField("student_id", id).Info("student deleted")
	return nil
}

// CreateShop provisions a shop account.
func (s *Service) CreateShop(ctx context.Context, name, ownerName, password, imageURL string) (shop.Shop, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return shop.Shop{}, apperrors.InvalidInput("shop name is required")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return shop.Shop{}, err
	}
	return s.shops.CreateShop(ctx, shop.Shop{
		Name:         name,
		OwnerName:    strings.TrimSpace(ownerName),
		PasswordHash: hash,
		ImageURL:     strings.TrimSpace(imageURL),
	})
}

// CreateAdmin provisions an administrator account.
func (s *Service) CreateAdmin(ctx context.Context, username, name, password string) (admin.Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return admin.Admin{}, apperrors.InvalidInput("username is required")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return admin.Admin{}, err
	}
	return s.admins.CreateAdmin(ctx, admin.Admin{Username: username, Name: strings.TrimSpace(name), PasswordHash: hash})
}

func validateStudent(in StudentInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return apperrors.InvalidInput("name is required")
	}
	if in.Balance.IsNegative() {
		return apperrors.InvalidInput("balance must not be negative")
	}
	return nil
}
