package profile

import "time"

// Profile shares its primary key with the identity user it describes.
type Profile struct {
	ID         string    `gorm:"primaryKey;type:uuid"`
	FullName   string    `gorm:"column:full_name;not null"`
	Email      string    `gorm:"column:email"`
	Role       string    `gorm:"column:role;not null;default:user"`
	Department *string   `gorm:"column:department"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Profile) TableName() string {
	return "user_profiles"
}
