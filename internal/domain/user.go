package domain

import "time"

type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleChair      Role = "CHAIR"
	RoleCaseworker Role = "CASEWORKER"
	RoleClerk      Role = "CLERK"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleChair, RoleCaseworker, RoleClerk:
		return true
	}
	return false
}

// CanManage reports whether the role may assign cases and decide completion reviews.
func (r Role) CanManage() bool { return r == RoleAdmin || r == RoleChair }

type User struct {
	ID        UserID    `gorm:"type:uuid;primaryKey" db:"id" json:"id"`
	Email     string    `gorm:"type:citext;uniqueIndex:ux_users_email" db:"email" json:"email"`
	Name      string    `gorm:"type:text;not null" db:"name" json:"name"`
	Role      Role      `gorm:"type:text;not null" db:"role" json:"role"`
	IsActive  bool      `gorm:"not null;default:true" db:"is_active" json:"isActive"`
	CreatedAt time.Time `gorm:"not null" db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" db:"updated_at" json:"updatedAt"`
}

func (User) TableName() string { return "users" }
