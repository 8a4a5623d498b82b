package users

import "time"

type User struct {
	ID           string    `gorm:"type:char(36);primaryKey" json:"id"`
	Email        string    `gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email" json:"email"`
	PasswordHash []byte    `gorm:"type:varbinary(72);not null" json:"-"`
	Name         string    `gorm:"type:varchar(100);not null" json:"name"`
	Role         string    `gorm:"type:varchar(16);not null;default:customer" json:"role"`
	CreatedAt    time.Time `gorm:"type:datetime(3);not null" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"type:datetime(3);not null" json:"updatedAt"`
}

func (User) TableName() string { return "users" }
