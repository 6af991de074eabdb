package store

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"librarian/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations. TranslateError is
// enabled so unique-index violations surface as gorm.ErrDuplicatedKey.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&MemberModel{}, &BookModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// CreateMember inserts a member and returns it with the assigned id.
func (s *GormStore) CreateMember(m domain.Member) (domain.Member, error) {
	model := memberToModel(m)
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Member{}, translateErr(err)
	}
	return memberFromModel(model), nil
}

// GetMemberByID returns a member by id.
func (s *GormStore) GetMemberByID(id int64) (domain.Member, bool, error) {
	var model MemberModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Member{}, false, nil
		}
		return domain.Member{}, false, err
	}
	return memberFromModel(model), true, nil
}

// GetMemberByEmail looks up a member by email.
func (s *GormStore) GetMemberByEmail(email string) (domain.Member, bool, error) {
	var model MemberModel
	if err := s.db.First(&model, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Member{}, false, nil
		}
		return domain.Member{}, false, err
	}
	return memberFromModel(model), true, nil
}

// ListMembers returns a page of members ordered by id.
func (s *GormStore) ListMembers(offset, limit int) ([]domain.Member, error) {
	var models []MemberModel
	if err := s.db.Order("id ASC").Limit(limit).Offset(offset).Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Member, 0, len(models))
	for _, m := range models {
		res = append(res, memberFromModel(m))
	}
	return res, nil
}

// CountMembers returns the total number of members.
func (s *GormStore) CountMembers() (int64, error) {
	var count int64
	if err := s.db.Model(&MemberModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// UpdateMemberFields applies the non-nil fields to the member row and
// reports whether a row was affected.
func (s *GormStore) UpdateMemberFields(id int64, name, passwordDigest *string) (bool, error) {
	updates := map[string]any{}
	if name != nil {
		updates["name"] = *name
	}
	if passwordDigest != nil {
		updates["password_digest"] = *passwordDigest
	}
	if len(updates) == 0 {
		return false, nil
	}
	tx := s.db.Model(&MemberModel{}).Where("id = ?", id).Updates(updates)
	if tx.Error != nil {
		return false, translateErr(tx.Error)
	}
	return tx.RowsAffected > 0, nil
}

// DeleteMember removes a member row and reports whether one existed.
func (s *GormStore) DeleteMember(id int64) (bool, error) {
	tx := s.db.Delete(&MemberModel{}, "id = ?", id)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// CreateBook inserts a book and returns it with the assigned id.
func (s *GormStore) CreateBook(b domain.Book) (domain.Book, error) {
	model := bookToModel(b)
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Book{}, translateErr(err)
	}
	return bookFromModel(model), nil
}

// GetBook retrieves a book by id.
func (s *GormStore) GetBook(id int64) (domain.Book, bool, error) {
	var model BookModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Book{}, false, nil
		}
		return domain.Book{}, false, err
	}
	return bookFromModel(model), true, nil
}

// ListBooks returns a page of books ordered by id.
func (s *GormStore) ListBooks(offset, limit int) ([]domain.Book, error) {
	var models []BookModel
	if err := s.db.Order("id ASC").Limit(limit).Offset(offset).Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Book, 0, len(models))
	for _, m := range models {
		res = append(res, bookFromModel(m))
	}
	return res, nil
}

// CountBooks returns the total number of books.
func (s *GormStore) CountBooks() (int64, error) {
	var count int64
	if err := s.db.Model(&BookModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SearchBooks matches the query as an unanchored, case-insensitive
// substring of title or author.
func (s *GormStore) SearchBooks(query string) ([]domain.Book, error) {
	pattern := "%" + query + "%"
	var models []BookModel
	if err := s.db.Where("title ILIKE ? OR author ILIKE ?", pattern, pattern).
		Order("id ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Book, 0, len(models))
	for _, m := range models {
		res = append(res, bookFromModel(m))
	}
	return res, nil
}

// UpdateBook replaces all mutable fields of a book row and reports
// whether a row was affected.
func (s *GormStore) UpdateBook(id int64, b domain.Book) (bool, error) {
	tx := s.db.Model(&BookModel{}).Where("id = ?", id).Updates(map[string]any{
		"title":    b.Title,
		"author":   b.Author,
		"isbn":     b.ISBN,
		"quantity": b.Quantity,
	})
	if tx.Error != nil {
		return false, translateErr(tx.Error)
	}
	return tx.RowsAffected > 0, nil
}

// DeleteBook removes a book row and reports whether one existed.
func (s *GormStore) DeleteBook(id int64) (bool, error) {
	tx := s.db.Delete(&BookModel{}, "id = ?", id)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func translateErr(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %w", ErrDuplicate, err)
	}
	return err
}

func memberToModel(m domain.Member) MemberModel {
	return MemberModel{
		ID:             m.ID,
		Name:           m.Name,
		Email:          m.Email,
		PasswordDigest: m.PasswordDigest,
	}
}

func memberFromModel(m MemberModel) domain.Member {
	return domain.Member{
		ID:             m.ID,
		Name:           m.Name,
		Email:          m.Email,
		PasswordDigest: m.PasswordDigest,
	}
}

func bookToModel(b domain.Book) BookModel {
	return BookModel{
		ID:       b.ID,
		Title:    b.Title,
		Author:   b.Author,
		ISBN:     b.ISBN,
		Quantity: b.Quantity,
	}
}

func bookFromModel(m BookModel) domain.Book {
	return domain.Book{
		ID:       m.ID,
		Title:    m.Title,
		Author:   m.Author,
		ISBN:     m.ISBN,
		Quantity: m.Quantity,
	}
}
