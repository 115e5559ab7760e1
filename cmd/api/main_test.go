package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"libraryapi/internal/book"
	"libraryapi/internal/checkout"
	"libraryapi/internal/config"
	"libraryapi/internal/httpx"
	"libraryapi/internal/testutil"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type testRepos struct {
	books     *book.MockRepository
	checkouts *checkout.MockRepository
}

func newTestRouter(t *testing.T, db pinger) (http.Handler, testRepos) {
	t.Helper()
	ctrl := gomock.NewController(t)
	repos := testRepos{
		books:     book.NewMockRepository(ctrl),
		checkouts: checkout.NewMockRepository(ctrl),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	books := book.NewHTTPHandler(book.NewService(repos.books), logger)
	checkouts := checkout.NewHTTPHandler(checkout.NewService(repos.checkouts), logger)

	router := newRouter(books, checkouts, db, testutil.TestSecret)
	return httpx.Chain(router, httpx.RequestIDMiddleware, httpx.RecoveryMiddleware(logger)), repos
}

func TestHealthRoutes(t *testing.T) {
	t.Run("healthz", func(t *testing.T) {
		h, _ := newTestRouter(t, fakePinger{})
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", w.Body.String())
	})

	t.Run("readyz ok", func(t *testing.T) {
		h, _ := newTestRouter(t, fakePinger{})
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("readyz db down", func(t *testing.T) {
		h, _ := newTestRouter(t, fakePinger{err: errors.New("connection refused")})
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestBookRoutesRegistered(t *testing.T) {
	h, repos := newTestRouter(t, fakePinger{})
	repos.books.EXPECT().List(gomock.Any(), book.ListOptions{Limit: book.DefaultListLimit}).
		Return(book.PaginatedList{Limit: book.DefaultListLimit, Items: []book.Book{}}, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/books", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/books", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/unknown", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRun_RequiresJWTSecret(t *testing.T) {
	err := run(context.Background(), config.Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.ErrorIs(t, err, config.ErrMissingJWTSecret)
}

func TestCheckoutRoutesRegistered(t *testing.T) {
	h, repos := newTestRouter(t, fakePinger{})
	bookID := uuid.New()
	repos.checkouts.EXPECT().ListByBook(gomock.Any(), bookID).Return([]checkout.Checkout{}, nil)
	repos.checkouts.EXPECT().Current(gomock.Any(), bookID).Return(checkout.Checkout{}, checkout.ErrNotFound)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/books/"+bookID.String()+"/checkouts", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/books/"+bookID.String()+"/checkouts/current", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/books/"+bookID.String()+"/checkouts", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/books/"+bookID.String()+"/checkouts/"+uuid.NewString()+"/returned", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
