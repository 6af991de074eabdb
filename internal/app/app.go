package app

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"librarian/internal/token"
	"librarian/pkg/auth"
	"librarian/pkg/domain"
	"librarian/pkg/store"
)

// DefaultPageSize is the page size used when a request does not supply a
// valid per_page value.
const DefaultPageSize = 10

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Config holds dependencies for the core application.
type Config struct {
	Store    store.Store
	Tokens   *token.Codec
	PageSize int
}

// App wires the catalog and member services to storage and token issuance.
type App struct {
	store    store.Store
	tokens   *token.Codec
	pageSize int
}

// New constructs the application.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Tokens == nil {
		return nil, errors.New("token codec is required")
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &App{
		store:    cfg.Store,
		tokens:   cfg.Tokens,
		pageSize: pageSize,
	}, nil
}

// BookPage is one page of the catalog listing.
type BookPage struct {
	Books      []domain.Book `json:"books"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PerPage    int           `json:"per_page"`
	TotalPages int64         `json:"total_pages"`
}

// MemberPage is one page of the member listing. Password digests are never
// serialized.
type MemberPage struct {
	Members    []domain.Member `json:"members"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	PerPage    int             `json:"per_page"`
	TotalPages int64           `json:"total_pages"`
}

// MemberUpdate carries the optional fields of a member update request.
// EmailPresent records that the payload contained an email key at all;
// email is immutable and its presence is rejected regardless of value.
type MemberUpdate struct {
	Name         *string
	Password     *string
	EmailPresent bool
}

// Register validates and creates a member, then issues a token for the new
// id. The password is digested before the store is touched.
func (a *App) Register(name, email, password string) (domain.Member, string, error) {
	if strings.TrimSpace(name) == "" {
		return domain.Member{}, "", validationErr("Name is required")
	}
	if !emailPattern.MatchString(email) {
		return domain.Member{}, "", validationErr("Valid email is required")
	}
	if len(password) < 8 {
		return domain.Member{}, "", validationErr("Password must be at least 8 characters long")
	}
	member, err := a.store.CreateMember(domain.Member{
		Name:           name,
		Email:          email,
		PasswordDigest: auth.DigestPassword(password),
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.Member{}, "", ErrEmailExists
		}
		return domain.Member{}, "", fmt.Errorf("create member: %w", err)
	}
	tok, err := a.tokens.Issue(member.ID, time.Now())
	if err != nil {
		return domain.Member{}, "", fmt.Errorf("issue token: %w", err)
	}
	return member, tok, nil
}

// Login validates credentials and issues a token. Unknown email and wrong
// password collapse into the same error.
func (a *App) Login(email, password string) (domain.Member, string, error) {
	member, ok, err := a.store.GetMemberByEmail(email)
	if err != nil {
		return domain.Member{}, "", fmt.Errorf("fetch member: %w", err)
	}
	if !ok {
		return domain.Member{}, "", ErrInvalidCredentials
	}
	if !auth.CheckPassword(password, member.PasswordDigest) {
		return domain.Member{}, "", ErrInvalidCredentials
	}
	tok, err := a.tokens.Issue(member.ID, time.Now())
	if err != nil {
		return domain.Member{}, "", fmt.Errorf("issue token: %w", err)
	}
	return member, tok, nil
}

// ListBooks returns the requested catalog page. Non-positive page and
// per_page fall back to 1 and the configured page size.
func (a *App) ListBooks(page, perPage int) (BookPage, error) {
	page, perPage = a.pagination(page, perPage)
	total, err := a.store.CountBooks()
	if err != nil {
		return BookPage{}, fmt.Errorf("count books: %w", err)
	}
	books, err := a.store.ListBooks((page-1)*perPage, perPage)
	if err != nil {
		return BookPage{}, fmt.Errorf("list books: %w", err)
	}
	return BookPage{
		Books:      books,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages(total, perPage),
	}, nil
}

// SearchBooks returns every book whose title or author contains the query.
func (a *App) SearchBooks(query string) ([]domain.Book, error) {
	if query == "" {
		return nil, validationErr("Search query required")
	}
	books, err := a.store.SearchBooks(query)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	return books, nil
}

// GetBook returns one book by id.
func (a *App) GetBook(id int64) (domain.Book, error) {
	book, ok, err := a.store.GetBook(id)
	if err != nil {
		return domain.Book{}, fmt.Errorf("fetch book: %w", err)
	}
	if !ok {
		return domain.Book{}, ErrBookNotFound
	}
	return book, nil
}

// CreateBook validates and inserts a book, returning it with its id.
func (a *App) CreateBook(b domain.Book) (domain.Book, error) {
	if err := validateBook(b); err != nil {
		return domain.Book{}, err
	}
	created, err := a.store.CreateBook(b)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.Book{}, ErrISBNExists
		}
		return domain.Book{}, fmt.Errorf("create book: %w", err)
	}
	return created, nil
}

// UpdateBook replaces all fields of a book. Updates are full replacement,
// validated the same way as creation.
func (a *App) UpdateBook(id int64, b domain.Book) (domain.Book, error) {
	if err := validateBook(b); err != nil {
		return domain.Book{}, err
	}
	ok, err := a.store.UpdateBook(id, b)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.Book{}, ErrISBNExists
		}
		return domain.Book{}, fmt.Errorf("update book: %w", err)
	}
	if !ok {
		return domain.Book{}, ErrBookNotFound
	}
	b.ID = id
	return b, nil
}

// DeleteBook removes a book by id.
func (a *App) DeleteBook(id int64) error {
	ok, err := a.store.DeleteBook(id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if !ok {
		return ErrBookNotFound
	}
	return nil
}

// ListMembers returns the requested member page.
func (a *App) ListMembers(page, perPage int) (MemberPage, error) {
	page, perPage = a.pagination(page, perPage)
	total, err := a.store.CountMembers()
	if err != nil {
		return MemberPage{}, fmt.Errorf("count members: %w", err)
	}
	members, err := a.store.ListMembers((page-1)*perPage, perPage)
	if err != nil {
		return MemberPage{}, fmt.Errorf("list members: %w", err)
	}
	return MemberPage{
		Members:    members,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages(total, perPage),
	}, nil
}

// GetMember returns one member by id.
func (a *App) GetMember(id int64) (domain.Member, error) {
	member, ok, err := a.store.GetMemberByID(id)
	if err != nil {
		return domain.Member{}, fmt.Errorf("fetch member: %w", err)
	}
	if !ok {
		return domain.Member{}, ErrMemberNotFound
	}
	return member, nil
}

// UpdateMember applies a partial update of name and/or password. Email is
// immutable; a payload containing an email key is rejected outright.
func (a *App) UpdateMember(id int64, upd MemberUpdate) (domain.Member, error) {
	if upd.EmailPresent {
		return domain.Member{}, validationErr("Email cannot be updated")
	}
	if upd.Name == nil && upd.Password == nil {
		return domain.Member{}, validationErr("No valid fields to update")
	}
	var digest *string
	if upd.Password != nil {
		d := auth.DigestPassword(*upd.Password)
		digest = &d
	}
	ok, err := a.store.UpdateMemberFields(id, upd.Name, digest)
	if err != nil {
		return domain.Member{}, fmt.Errorf("update member: %w", err)
	}
	if !ok {
		return domain.Member{}, ErrMemberNotFound
	}
	return a.GetMember(id)
}

// DeleteMember removes a member by id.
func (a *App) DeleteMember(id int64) error {
	ok, err := a.store.DeleteMember(id)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	if !ok {
		return ErrMemberNotFound
	}
	return nil
}

func (a *App) pagination(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = a.pageSize
	}
	return page, perPage
}

func totalPages(total int64, perPage int) int64 {
	return (total + int64(perPage) - 1) / int64(perPage)
}

// validateBook checks fields in a fixed order; the first failure wins.
func validateBook(b domain.Book) error {
	if strings.TrimSpace(b.Title) == "" {
		return validationErr("Title is required")
	}
	if strings.TrimSpace(b.Author) == "" {
		return validationErr("Author is required")
	}
	if strings.TrimSpace(b.ISBN) == "" {
		return validationErr("ISBN is required")
	}
	if b.Quantity < 0 {
		return validationErr("Quantity cannot be negative")
	}
	return nil
}
