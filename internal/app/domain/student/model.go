package student

import "github.com/R3E-Network/canteen_pos/internal/app/domain/money"

// Student is a cafeteria customer paying from a stored balance.
type Student struct {
	ID           string      `json:"id" db:"student_id"`
	Name         string      `json:"name" db:"name"`
	PasswordHash string      `json:"-" db:"password_hash"`
	Balance      money.Cents `json:"balance" db:"balance"`
}
