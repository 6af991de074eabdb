package store

// GORM models used for persistence.
type MemberModel struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	Name           string `gorm:"not null"`
	Email          string `gorm:"uniqueIndex;not null"`
	PasswordDigest string `gorm:"not null"`
}

type BookModel struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"`
	Title    string `gorm:"not null"`
	Author   string `gorm:"not null"`
	ISBN     string `gorm:"uniqueIndex;not null"`
	Quantity int    `gorm:"not null"`
}
