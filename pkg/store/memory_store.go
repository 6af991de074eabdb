package store

import (
	"sort"
	"strings"
	"sync"

	"librarian/pkg/domain"
)

// MemoryStore keeps members and books in-process. It mirrors the
// uniqueness and ordering behavior of the Postgres store and is used as
// the store double in tests.
type MemoryStore struct {
	mu           sync.RWMutex
	members      map[int64]domain.Member
	memberEmails map[string]int64
	books        map[int64]domain.Book
	bookISBNs    map[string]int64
	nextMemberID int64
	nextBookID   int64
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		members:      make(map[int64]domain.Member),
		memberEmails: make(map[string]int64),
		books:        make(map[int64]domain.Book),
		bookISBNs:    make(map[string]int64),
		nextMemberID: 1,
		nextBookID:   1,
	}
}

// CreateMember assigns the next id and stores the member.
func (m *MemoryStore) CreateMember(member domain.Member) (domain.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.memberEmails[member.Email]; exists {
		return domain.Member{}, ErrDuplicate
	}
	member.ID = m.nextMemberID
	m.nextMemberID++
	m.members[member.ID] = member
	m.memberEmails[member.Email] = member.ID
	return member, nil
}

// GetMemberByID returns a member by id.
func (m *MemoryStore) GetMemberByID(id int64) (domain.Member, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	member, ok := m.members[id]
	return member, ok, nil
}

// GetMemberByEmail looks up a member by email.
func (m *MemoryStore) GetMemberByEmail(email string) (domain.Member, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.memberEmails[email]
	if !ok {
		return domain.Member{}, false, nil
	}
	return m.members[id], true, nil
}

// ListMembers returns a page of members ordered by id.
func (m *MemoryStore) ListMembers(offset, limit int) ([]domain.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]domain.Member, 0, len(m.members))
	for _, member := range m.members {
		all = append(all, member)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return pageOf(all, offset, limit), nil
}

// CountMembers returns the total number of members.
func (m *MemoryStore) CountMembers() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.members)), nil
}

// UpdateMemberFields applies the non-nil fields and reports whether the
// member existed.
func (m *MemoryStore) UpdateMemberFields(id int64, name, passwordDigest *string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	member, ok := m.members[id]
	if !ok {
		return false, nil
	}
	if name != nil {
		member.Name = *name
	}
	if passwordDigest != nil {
		member.PasswordDigest = *passwordDigest
	}
	m.members[id] = member
	return true, nil
}

// DeleteMember removes a member and reports whether one existed.
func (m *MemoryStore) DeleteMember(id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	member, ok := m.members[id]
	if !ok {
		return false, nil
	}
	delete(m.memberEmails, member.Email)
	delete(m.members, id)
	return true, nil
}

// CreateBook assigns the next id and stores the book.
func (m *MemoryStore) CreateBook(book domain.Book) (domain.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.bookISBNs[book.ISBN]; exists {
		return domain.Book{}, ErrDuplicate
	}
	book.ID = m.nextBookID
	m.nextBookID++
	m.books[book.ID] = book
	m.bookISBNs[book.ISBN] = book.ID
	return book, nil
}

// GetBook retrieves a book by id.
func (m *MemoryStore) GetBook(id int64) (domain.Book, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	book, ok := m.books[id]
	return book, ok, nil
}

// ListBooks returns a page of books ordered by id.
func (m *MemoryStore) ListBooks(offset, limit int) ([]domain.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.sortedBooks()
	return pageOf(all, offset, limit), nil
}

// CountBooks returns the total number of books.
func (m *MemoryStore) CountBooks() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.books)), nil
}

// SearchBooks matches the query case-insensitively against title or
// author.
func (m *MemoryStore) SearchBooks(query string) ([]domain.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	needle := strings.ToLower(query)
	res := make([]domain.Book, 0)
	for _, book := range m.sortedBooks() {
		if strings.Contains(strings.ToLower(book.Title), needle) ||
			strings.Contains(strings.ToLower(book.Author), needle) {
			res = append(res, book)
		}
	}
	return res, nil
}

// UpdateBook replaces all mutable fields and reports whether the book
// existed.
func (m *MemoryStore) UpdateBook(id int64, book domain.Book) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.books[id]
	if !ok {
		return false, nil
	}
	if other, taken := m.bookISBNs[book.ISBN]; taken && other != id {
		return false, ErrDuplicate
	}
	delete(m.bookISBNs, existing.ISBN)
	existing.Title = book.Title
	existing.Author = book.Author
	existing.ISBN = book.ISBN
	existing.Quantity = book.Quantity
	m.books[id] = existing
	m.bookISBNs[existing.ISBN] = id
	return true, nil
}

// DeleteBook removes a book and reports whether one existed.
func (m *MemoryStore) DeleteBook(id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	book, ok := m.books[id]
	if !ok {
		return false, nil
	}
	delete(m.bookISBNs, book.ISBN)
	delete(m.books, id)
	return true, nil
}

func (m *MemoryStore) sortedBooks() []domain.Book {
	all := make([]domain.Book, 0, len(m.books))
	for _, book := range m.books {
		all = append(all, book)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

func pageOf[T any](all []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []T{}
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end]
}
