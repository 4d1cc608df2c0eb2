package admin

// Admin manages student accounts.
type Admin struct {
	ID           int64  `json:"id" db:"admin_id"`
	Username     string `json:"username" db:"username"`
	PasswordHash string `json:"-" db:"password_hash"`
	Name         string `json:"name" db:"name"`
}
