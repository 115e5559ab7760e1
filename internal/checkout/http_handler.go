package checkout

import (
	"errors"
	"log/slog"
	"net/http"

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

// Routes registers the lending endpoints under /books/{book_id}.
func (h *HTTPHandler) Routes(mux *http.ServeMux, requireAuth func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /books/{book_id}/checkouts", h.History)
	mux.HandleFunc("GET /books/{book_id}/checkouts/current", h.Current)
	mux.Handle("POST /books/{book_id}/checkouts", requireAuth(http.HandlerFunc(h.Checkout)))
	mux.Handle("PUT /books/{book_id}/checkouts/{checkout_id}/returned", requireAuth(http.HandlerFunc(h.Return)))
}

// @Summary Check out book
// @Description Lend a book to the authenticated user
// @Tags checkouts
// @Produce json
// @Security BearerAuth
// @Param book_id path string true "Book ID"
// @Success 201 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /books/{book_id}/checkouts [post]
func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requestUser(w, r)
	if !ok {
		return
	}
	bookID, ok := h.pathID(w, r, "book_id")
	if !ok {
		return
	}

	c, err := h.service.Checkout(r.Context(), CreateCheckout{BookID: bookID, CheckedOutBy: user})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccessCreated(w, r, c)
}

// @Summary Return book
// @Tags checkouts
// @Produce json
// @Security BearerAuth
// @Param book_id path string true "Book ID"
// @Param checkout_id path string true "Checkout ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /books/{book_id}/checkouts/{checkout_id}/returned [put]
func (h *HTTPHandler) Return(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requestUser(w, r)
	if !ok {
		return
	}
	bookID, ok := h.pathID(w, r, "book_id")
	if !ok {
		return
	}
	checkoutID, ok := h.pathID(w, r, "checkout_id")
	if !ok {
		return
	}

	c, err := h.service.Return(r.Context(), ReturnCheckout{
		CheckoutID: checkoutID,
		BookID:     bookID,
		ReturnedBy: user,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, c, nil)
}

// @Summary Current checkout
// @Tags checkouts
// @Produce json
// @Param book_id path string true "Book ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /books/{book_id}/checkouts/current [get]
func (h *HTTPHandler) Current(w http.ResponseWriter, r *http.Request) {
	bookID, ok := h.pathID(w, r, "book_id")
	if !ok {
		return
	}

	c, err := h.service.Current(r.Context(), bookID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, c, nil)
}

// @Summary Checkout history
// @Description Every checkout of a book, newest first
// @Tags checkouts
// @Produce json
// @Param book_id path string true "Book ID"
// @Success 200 {object} map[string]interface{}
// @Router /books/{book_id}/checkouts [get]
func (h *HTTPHandler) History(w http.ResponseWriter, r *http.Request) {
	bookID, ok := h.pathID(w, r, "book_id")
	if !ok {
		return
	}

	items, err := h.service.History(r.Context(), bookID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, items, map[string]any{"total": len(items)})
}

func (h *HTTPHandler) pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "INVALID_ID", name+" must be a valid UUID", nil)
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
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Checkout not found", nil)
	case errors.Is(err, ErrBookNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "BOOK_NOT_FOUND", "Book not found", nil)
	case errors.Is(err, ErrAlreadyCheckedOut):
		httpx.JSONError(w, r, http.StatusConflict, "ALREADY_CHECKED_OUT", "Book is already checked out", nil)
	default:
		h.logger.Error("checkout request failed",
			"request_id", httpx.RequestIDFrom(r),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}
