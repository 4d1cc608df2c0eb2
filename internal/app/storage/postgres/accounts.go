package postgres

import (
	"context"

	"github.com/R3E-Network/canteen_pos/internal/app/domain/admin"
	"github.com/R3E-Network/canteen_pos/internal/app/domain/student"
)

// --- StudentStore -----------------------------------------------------------

func (s *Store) CreateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO students (student_id, name, password_hash, balance)
		VALUES ($1, $2, $3, $4)
	`, st.ID, st.Name, st.PasswordHash, st.Balance)
	if err != nil {
		return student.Student{}, mapError(err, "student", st.ID)
	}
	return st, nil
}

func (s *Store) UpdateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE students
		SET name = $2, password_hash = $3, balance = $4
		WHERE student_id = $1
	`, st.ID, st.Name, st.PasswordHash, st.Balance)
	if err != nil {
		return student.Student{}, mapError(err, "student", st.ID)
	}
	if err := expectRow(res, "student", st.ID); err != nil {
		return student.Student{}, err
	}
	return st, nil
}

func (s *Store) GetStudent(ctx context.Context, id string) (student.Student, error) {
	var st student.Student
	err := s.db.GetContext(ctx, &st, `
		SELECT student_id, name, password_hash, balance
		FROM students
		WHERE student_id = $1
	`, id)
	if err != nil {
		return student.Student{}, mapError(err, "student", id)
	}
	return st, nil
}

func (s *Store) ListStudents(ctx context.Context) ([]student.Student, error) {
	result := []student.Student{}
	err := s.db.SelectContext(ctx, &result, `
		SELECT student_id, name, password_hash, balance
		FROM students
		ORDER BY student_id
	`)
	if err != nil {
		return nil, mapError(err, "student", nil)
	}
	return result, nil
}

func (s *Store) DeleteStudent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM students WHERE student_id = $1`, id)
	if err != nil {
		return mapError(err, "student", id)
	}
	return expectRow(res, "student", id)
}

// --- AdminStore -------------------------------------------------------------

func (s *Store) CreateAdmin(ctx context.Context, a admin.Admin) (admin.Admin, error) {
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO admins (username, password_hash, name)
		VALUES ($1, $2, $3)
		RETURNING admin_id
	`, a.Username, a.PasswordHash, a.Name).Scan(&a.ID)
	if err != nil {
		return admin.Admin{}, mapError(err, "admin", a.Username)
	}
	return a, nil
}

func (s *Store) GetAdminByUsername(ctx context.Context, username string) (admin.Admin, error) {
	var a admin.Admin
	err := s.db.GetContext(ctx, &a, `
		SELECT admin_id, username, password_hash, name
		FROM admins
		WHERE username = $1
	`, username)
	if err != nil {
		return admin.Admin{}, mapError(err, "admin", username)
	}
	return a, nil
}
