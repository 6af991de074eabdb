package store

import (
	"errors"
	"testing"

	"librarian/pkg/domain"
)

func TestMemoryStoreAssignsSequentialIDs(t *testing.T) {
	s := NewMemoryStore()
	first, err := s.CreateBook(domain.Book{Title: "A", Author: "B", ISBN: "isbn-1", Quantity: 1})
	if err != nil {
		t.Fatalf("create book: %v", err)
	}
	second, err := s.CreateBook(domain.Book{Title: "C", Author: "D", ISBN: "isbn-2", Quantity: 1})
	if err != nil {
		t.Fatalf("create book: %v", err)
	}
	if first.ID != 1 || second.ID != 2 {
		t.Fatalf("unexpected ids: %d, %d", first.ID, second.ID)
	}
}

func TestMemoryStoreRejectsDuplicateEmail(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.CreateMember(domain.Member{Name: "Ann", Email: "ann@example.com", PasswordDigest: "d"}); err != nil {
		t.Fatalf("create member: %v", err)
	}
	if _, err := s.CreateMember(domain.Member{Name: "Ann2", Email: "ann@example.com", PasswordDigest: "d"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	count, err := s.CountMembers()
	if err != nil || count != 1 {
		t.Fatalf("expected first member unaffected, count=%d err=%v", count, err)
	}
}

func TestMemoryStoreRejectsDuplicateISBN(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.CreateBook(domain.Book{Title: "A", Author: "B", ISBN: "dup", Quantity: 1}); err != nil {
		t.Fatalf("create book: %v", err)
	}
	if _, err := s.CreateBook(domain.Book{Title: "C", Author: "D", ISBN: "dup", Quantity: 1}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestMemoryStoreUpdateBookReleasesOldISBN(t *testing.T) {
	s := NewMemoryStore()
	book, _ := s.CreateBook(domain.Book{Title: "A", Author: "B", ISBN: "old", Quantity: 1})
	ok, err := s.UpdateBook(book.ID, domain.Book{Title: "A", Author: "B", ISBN: "new", Quantity: 2})
	if err != nil || !ok {
		t.Fatalf("update book: ok=%v err=%v", ok, err)
	}
	if _, err := s.CreateBook(domain.Book{Title: "C", Author: "D", ISBN: "old", Quantity: 1}); err != nil {
		t.Fatalf("old isbn should be reusable: %v", err)
	}
	if _, err := s.CreateBook(domain.Book{Title: "E", Author: "F", ISBN: "new", Quantity: 1}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("new isbn should be taken, got %v", err)
	}
}

func TestMemoryStoreUpdateBookKeepsISBNOnSelf(t *testing.T) {
	s := NewMemoryStore()
	book, _ := s.CreateBook(domain.Book{Title: "A", Author: "B", ISBN: "same", Quantity: 1})
	ok, err := s.UpdateBook(book.ID, domain.Book{Title: "A2", Author: "B", ISBN: "same", Quantity: 3})
	if err != nil || !ok {
		t.Fatalf("self-isbn update should pass: ok=%v err=%v", ok, err)
	}
	got, found, _ := s.GetBook(book.ID)
	if !found || got.Title != "A2" || got.Quantity != 3 {
		t.Fatalf("unexpected book after update: %+v", got)
	}
}

func TestMemoryStoreListOrderAndPaging(t *testing.T) {
	s := NewMemoryStore()
	for _, isbn := range []string{"1", "2", "3"} {
		if _, err := s.CreateBook(domain.Book{Title: "T" + isbn, Author: "A", ISBN: isbn, Quantity: 1}); err != nil {
			t.Fatalf("create book: %v", err)
		}
	}
	page, err := s.ListBooks(2, 2)
	if err != nil {
		t.Fatalf("list books: %v", err)
	}
	if len(page) != 1 || page[0].ISBN != "3" {
		t.Fatalf("unexpected second page: %+v", page)
	}
	empty, err := s.ListBooks(10, 2)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty page past end, got %+v err=%v", empty, err)
	}
}

func TestMemoryStoreDeleteMemberFreesEmail(t *testing.T) {
	s := NewMemoryStore()
	member, _ := s.CreateMember(domain.Member{Name: "Ann", Email: "ann@example.com", PasswordDigest: "d"})
	ok, err := s.DeleteMember(member.ID)
	if err != nil || !ok {
		t.Fatalf("delete member: ok=%v err=%v", ok, err)
	}
	if ok, _ := s.DeleteMember(member.ID); ok {
		t.Fatalf("second delete should report missing row")
	}
	if _, err := s.CreateMember(domain.Member{Name: "Ann", Email: "ann@example.com", PasswordDigest: "d"}); err != nil {
		t.Fatalf("email should be free after delete: %v", err)
	}
}
