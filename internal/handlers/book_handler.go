package handlers

import (
	"errors"
	"net/http"

	"storynest/internal/service"
)

// BookHandler serves the story catalog
type BookHandler struct {
	bookService *service.BookService
}

// NewBookHandler creates a new book handler
func NewBookHandler(bookService *service.BookService) *BookHandler {
	return &BookHandler{bookService: bookService}
}

// List handles GET /api/books
func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	books, err := h.bookService.ListBooks()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load books", "", err)
		return
	}

	resp := make([]BookResponse, 0, len(books))
	for _, b := range books {
		resp = append(resp, toBookResponse(b))
	}
	respondJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/books/{book}
func (h *BookHandler) Get(w http.ResponseWriter, r *http.Request) {
	book, err := h.bookService.GetBook(r.PathValue("book"))
	if err != nil {
		if errors.Is(err, service.ErrBookNotFound) {
			respondWithError(w, http.StatusNotFound, "Book not found", "", nil)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to load book", "", err)
		return
	}
	respondJSON(w, http.StatusOK, toBookResponse(*book))
}

// Content handles GET /api/books/{book}/content, returning the book with
// its full page list
func (h *BookHandler) Content(w http.ResponseWriter, r *http.Request) {
	bw, err := h.bookService.GetBookContent(r.PathValue("book"))
	if err != nil {
		if errors.Is(err, service.ErrBookNotFound) {
			respondWithError(w, http.StatusNotFound, "Book not found", "", nil)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to load book content", "", err)
		return
	}

	resp := BookContentResponse{
		Book:  toBookResponse(bw.Book),
		Pages: make([]PageResponse, 0, len(bw.Pages)),
	}
	for _, p := range bw.Pages {
		resp.Pages = append(resp.Pages, toPageResponse(p))
	}
	respondJSON(w, http.StatusOK, resp)
}
