package user

import "time"

// User is one row of the accounts table. The db tags serve sqlx, the gorm tags
// serve AutoMigrate in tests.
type User struct {
	ID                string    `db:"id" gorm:"column:id;primaryKey;size:36"`
	Email             string    `db:"email" gorm:"column:email;uniqueIndex;not null"`
	Name              string    `db:"name" gorm:"column:name;not null"`
	PasswordHash      string    `db:"password_hash" gorm:"column:password_hash;not null"`
	Role              string    `db:"role" gorm:"column:role;not null;default:user"`
	Organization      string    `db:"organization" gorm:"column:organization"`
	PreferredLanguage string    `db:"preferred_language" gorm:"column:preferred_language;not null;default:en"`
	IsActive          bool      `db:"is_active" gorm:"column:is_active;default:true"`
	CreatedAt         time.Time `db:"created_at" gorm:"column:created_at"`
	UpdatedAt         time.Time `db:"updated_at" gorm:"column:updated_at"`
}

func (User) TableName() string {
	return "users"
}
