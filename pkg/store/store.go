package store

import (
	"errors"

	"librarian/pkg/domain"
)

// ErrDuplicate is returned when an insert or update violates a unique
// index (member email, book isbn). Callers distinguish it from other
// storage failures.
var ErrDuplicate = errors.New("duplicate value for unique field")

// Store defines persistence operations for members and books.
//
// List scans are ordered by id ascending so pagination is stable across
// requests.
type Store interface {
	// members
	CreateMember(m domain.Member) (domain.Member, error)
	GetMemberByID(id int64) (domain.Member, bool, error)
	GetMemberByEmail(email string) (domain.Member, bool, error)
	ListMembers(offset, limit int) ([]domain.Member, error)
	CountMembers() (int64, error)
	UpdateMemberFields(id int64, name, passwordDigest *string) (bool, error)
	DeleteMember(id int64) (bool, error)

	// books
	CreateBook(b domain.Book) (domain.Book, error)
	GetBook(id int64) (domain.Book, bool, error)
	ListBooks(offset, limit int) ([]domain.Book, error)
	CountBooks() (int64, error)
	SearchBooks(query string) ([]domain.Book, error)
	UpdateBook(id int64, b domain.Book) (bool, error)
	DeleteBook(id int64) (bool, error)
}
