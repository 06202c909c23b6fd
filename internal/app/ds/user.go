package ds

// Пользователь системы — автор комментариев к сделкам.
type User struct {
	ID       uint   `gorm:"primaryKey"`
	Login    string `gorm:"type:varchar(50);unique;not null"`
	Password string `gorm:"type:varchar(255);not null"` // bcrypt-хеш
	FullName string `gorm:"type:varchar(100)"`
}
