package book

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"libraryapi/internal/httpx"

	"github.com/google/uuid"
)

type HTTPHandler struct {
	service *Service
	logger  *slog.Logger
}

func NewHTTPHandler(service *Service, logger *slog.Logger) *HTTPHandler {
	return &HTTPHandler{service: service, logger: logger}
}

// Routes registers the book endpoints. Writes go through requireAuth.
func (h *HTTPHandler) Routes(mux *http.ServeMux, requireAuth func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /books", h.List)
	mux.Handle("POST /books", requireAuth(http.HandlerFunc(h.Create)))
	mux.HandleFunc("GET /books/{book_id}", h.Get)
	mux.Handle("PUT /books/{book_id}", requireAuth(http.HandlerFunc(h.Update)))
	mux.Handle("DELETE /books/{book_id}", requireAuth(http.HandlerFunc(h.Delete)))
}

type bookRequest struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	ISBN        string `json:"isbn"`
	Description string `json:"description"`
}

// @Summary Register book
// @Description Create a book owned by the authenticated user
// @Tags books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 201 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /books [post]
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.requestUser(w, r)
	if !ok {
		return
	}

	var req bookRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteDecodeError(w, r, err)
		return
	}

	b, err := h.service.Create(r.Context(), CreateBook{
		Title:       req.Title,
		Author:      req.Author,
		ISBN:        req.ISBN,
		Description: req.Description,
		OwnedBy:     owner,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccessCreated(w, r, b)
}

// @Summary List books
// @Description Get books newest first with limit/offset pagination
// @Tags books
// @Produce json
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Rows to skip" default(0)
// @Success 200 {object} map[string]interface{}
// @Router /books [get]
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var details []httpx.ErrorDetail
	limit, ok := parseNonNegative(query.Get("limit"))
	if !ok {
		details = append(details, httpx.ErrorDetail{Field: "limit", Message: "limit must be a non-negative integer"})
	}
	offset, ok := parseNonNegative(query.Get("offset"))
	if !ok {
		details = append(details, httpx.ErrorDetail{Field: "offset", Message: "offset must be a non-negative integer"})
	}
	if len(details) > 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid query parameters", details)
		return
	}

	page, err := h.service.List(r.Context(), ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httpx.JSONSuccess(w, r, page.Items, map[string]any{
		"total":  page.Total,
		"limit":  page.Limit,
		"offset": page.Offset,
	})
}

// @Summary Get book
// @Tags books
// @Produce json
// @Param book_id path string true "Book ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /books/{book_id} [get]
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookID(w, r)
	if !ok {
		return
	}

	b, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// @Summary Update book
// @Description Replace title, author, isbn and description of an owned book
// @Tags books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param book_id path string true "Book ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /books/{book_id} [put]
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.requestUser(w, r)
	if !ok {
		return
	}
	id, ok := h.bookID(w, r)
	if !ok {
		return
	}

	var req bookRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteDecodeError(w, r, err)
		return
	}

	b, err := h.service.Update(r.Context(), UpdateBook{
		BookID:      id,
		Title:       req.Title,
		Author:      req.Author,
		ISBN:        req.ISBN,
		Description: req.Description,
		RequestedBy: owner,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// @Summary Delete book
// @Tags books
// @Security BearerAuth
// @Param book_id path string true "Book ID"
// @Success 204
// @Failure 404 {object} map[string]interface{}
// @Router /books/{book_id} [delete]
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.requestUser(w, r)
	if !ok {
		return
	}
	id, ok := h.bookID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), DeleteBook{BookID: id, RequestedBy: owner}); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccessNoContent(w)
}

func (h *HTTPHandler) bookID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("book_id"))
	if err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "INVALID_ID", "book_id must be a valid UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *HTTPHandler) requestUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(httpx.UserIDFrom(r))
	if err != nil {
		httpx.JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *ValidationError
	switch {
	case errors.As(err, &validationErr):
		httpx.JSONError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid book", validationErr.Details)
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
	case errors.Is(err, ErrConstraint):
		httpx.JSONError(w, r, http.StatusUnprocessableEntity, "CONSTRAINT_VIOLATION", "Book violates a table constraint", nil)
	default:
		h.logger.Error("book request failed",
			"request_id", httpx.RequestIDFrom(r),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}

func parseNonNegative(s string) (int, bool) {
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
