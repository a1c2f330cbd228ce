package library

import (
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ------------------ Catalogue ------------------

// AddBook validates the input, assigns the next book ID and stores the book
// as available.
func (lm *LibraryManager) AddBook(in BookInput) (Book, error) {
	in = normalizeBookInput(in)
	if err := lm.validator.validate(in); err != nil {
		return Book{}, err
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()

	b := Book{
		ID:          lm.store.takeBookID(),
		Title:       in.Title,
		Author:      in.Author,
		ISBN:        in.ISBN,
		IsAvailable: true,
	}
	lm.store.books = append(lm.store.books, b)
	lm.log.Debug("book added", "book_id", b.ID, "title", b.Title)
	return b, lm.persist("add book", lm.store.SaveBooks, lm.store.SaveCounters)
}

// ListBooks returns every book in insertion order.
func (lm *LibraryManager) ListBooks() []Book {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return slices.Clone(lm.store.books)
}

// SearchBooks returns the books whose title or author contains keyword.
// Matching is case-sensitive; both sides are compared in NFC form.
func (lm *LibraryManager) SearchBooks(keyword string) []Book {
	keyword = norm.NFC.String(keyword)

	lm.mu.Lock()
	defer lm.mu.Unlock()

	out := make([]Book, 0)
	for _, b := range lm.store.books {
		if strings.Contains(norm.NFC.String(b.Title), keyword) || strings.Contains(norm.NFC.String(b.Author), keyword) {
			out = append(out, b)
		}
	}
	return out
}

func (lm *LibraryManager) GetBook(id int) (Book, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if b, ok := lm.store.BookByID(id); ok {
		return b, nil
	}
	return Book{}, notFoundf("book %d not found", id)
}

// EditBook replaces the non-empty fields of upd; empty fields keep their
// current value. Availability is never edited here.
func (lm *LibraryManager) EditBook(id int, upd BookUpdate) (Book, error) {
	upd = normalizeBookUpdate(upd)
	if err := lm.validator.validate(upd); err != nil {
		return Book{}, err
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()

	i := lm.store.bookIndex(id)
	if i < 0 {
		return Book{}, notFoundf("book %d not found", id)
	}
	b := &lm.store.books[i]
	if upd.Title != "" {
		b.Title = upd.Title
	}
	if upd.Author != "" {
		b.Author = upd.Author
	}
	if upd.ISBN != "" {
		b.ISBN = upd.ISBN
	}
	lm.log.Debug("book edited", "book_id", id)
	return *b, lm.persist("edit book", lm.store.SaveBooks)
}

// DeleteBook removes a book that is not on loan. Loans keep their book ID;
// views of them show the book as unknown.
func (lm *LibraryManager) DeleteBook(id int) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	i := lm.store.bookIndex(id)
	if i < 0 {
		return notFoundf("book %d not found", id)
	}
	if !lm.store.books[i].IsAvailable || hasOpenLoan(lm.store.loans, id) {
		return policyViolationf("book %d is currently on loan and cannot be deleted", id)
	}
	lm.store.books = slices.Delete(lm.store.books, i, i+1)
	lm.log.Debug("book deleted", "book_id", id)
	return lm.persist("delete book", lm.store.SaveBooks)
}
