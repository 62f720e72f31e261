package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"skrytka-plikow/internal/database"
	"skrytka-plikow/internal/models"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

// apiRouter składa ścieżki tak jak binarka serwera, bez swaggera i metryk.
func apiRouter() *chi.Mux {
	router := chi.NewRouter()

	router.Post("/login", testServer.LoginHandler)
	router.Get("/logout", testServer.LogoutHandler)
	router.Post("/api/v1/auth/register", testServer.RegisterHandler)
	router.Post("/api/v1/auth/token", testServer.TokenHandler)

	router.With(testServer.AuthMiddleware).Get("/download/{storedFilename}", testServer.DownloadFileHandler)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(testServer.AuthMiddleware)
		r.Get("/me", testServer.GetCurrentUserHandler)
		r.Post("/files", testServer.UploadFileHandler)
		r.Get("/files", testServer.ListOwnedFilesHandler)
		r.Get("/files/received", testServer.ListReceivedFilesHandler)
		r.Delete("/files/{fileId}", testServer.DeleteFileHandler)
		r.Get("/events", testServer.GetEventsHandler)
	})

	return router
}

func registerAccount(t *testing.T, router *chi.Mux, email string) RegisterResponse {
	t.Helper()

	body, _ := json.Marshal(RegisterRequest{Email: email})
	req := httptest.NewRequest("POST", "/api/v1/auth/register", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code, "Registration failed: %s", rr.Body.String())

	var res RegisterResponse
	err := json.Unmarshal(rr.Body.Bytes(), &res)
	require.NoError(t, err)
	return res
}

func obtainToken(t *testing.T, router *chi.Mux, username, key string) string {
	t.Helper()

	body, _ := json.Marshal(TokenRequest{Username: username, Password: key})
	req := httptest.NewRequest("POST", "/api/v1/auth/token", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, "Token request failed: %s", rr.Body.String())

	var res TokenResponse
	err := json.Unmarshal(rr.Body.Bytes(), &res)
	require.NoError(t, err)
	return res.AccessToken
}

// Pełny obieg: rejestracja dwóch kont, logowanie, wysyłka do adresata,
// pobranie po obu stronach, odmowy dla osób trzecich i dezaktywacja.
func TestFileExchangeFlow_Integration(t *testing.T) {
	router := apiRouter()

	sender := registerAccount(t, router, "nadawca@example.com")
	receiver := registerAccount(t, router, "odbiorca@example.com")
	bystander := registerAccount(t, router, "postronny@example.com")

	senderToken := obtainToken(t, router, sender.Username, sender.Key)
	receiverToken := obtainToken(t, router, receiver.Username, receiver.Key)
	bystanderToken := obtainToken(t, router, bystander.Username, bystander.Key)

	fileContent := "umowa do podpisu, wersja ostateczna"
	var uploaded models.File

	t.Run("sender uploads a file addressed to receiver", func(t *testing.T) {
		body := new(bytes.Buffer)
		writer := multipart.NewWriter(body)
		part, err := writer.CreateFormFile("file", "umowa.pdf")
		require.NoError(t, err)
		part.Write([]byte(fileContent))
		writer.WriteField("recipient_username", receiver.Username)
		writer.Close()

		req := httptest.NewRequest("POST", "/api/v1/files", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+senderToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusCreated, rr.Code, "Upload failed: %s", rr.Body.String())
		err = json.Unmarshal(rr.Body.Bytes(), &uploaded)
		require.NoError(t, err)
		require.NotEqual(t, "umowa.pdf", uploaded.StoredFilename)
	})

	t.Run("receiver finds the file in the received listing", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/files/received", nil)
		req.Header.Set("Authorization", "Bearer "+receiverToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var files []models.File
		err := json.Unmarshal(rr.Body.Bytes(), &files)
		require.NoError(t, err)
		require.Len(t, files, 1)
		require.Equal(t, uploaded.ID, files[0].ID)
	})

	t.Run("receiver downloads under the original name", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/download/"+uploaded.StoredFilename, nil)
		req.Header.Set("Authorization", "Bearer "+receiverToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		require.Equal(t, fileContent, rr.Body.String())
		require.Contains(t, rr.Header().Get("Content-Disposition"), "attachment; filename=\"umowa.pdf\"")
	})

	t.Run("bystander cannot download", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/download/"+uploaded.StoredFilename, nil)
		req.Header.Set("Authorization", "Bearer "+bystanderToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("wrong key earns the same generic refusal", func(t *testing.T) {
		body, _ := json.Marshal(TokenRequest{Username: receiver.Username, Password: "ZUPELNIE_ZLY"})
		req := httptest.NewRequest("POST", "/api/v1/auth/token", bytes.NewReader(body))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusUnauthorized, rr.Code)
		require.Contains(t, rr.Body.String(), "Incorrect username or password")
	})

	t.Run("receiver catches up through the event journal", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/events?since=0", nil)
		req.Header.Set("Authorization", "Bearer "+receiverToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var events []database.Event
		err := json.Unmarshal(rr.Body.Bytes(), &events)
		require.NoError(t, err)
		require.Len(t, events, 1)
		require.Equal(t, database.EventFileSent, events[0].EventType)

		urlSince := fmt.Sprintf("/api/v1/events?since=%d", events[0].ID)
		reqSince := httptest.NewRequest("GET", urlSince, nil)
		reqSince.Header.Set("Authorization", "Bearer "+receiverToken)
		rrSince := httptest.NewRecorder()
		router.ServeHTTP(rrSince, reqSince)

		require.Equal(t, http.StatusOK, rrSince.Code)
		var noEvents []database.Event
		err = json.Unmarshal(rrSince.Body.Bytes(), &noEvents)
		require.NoError(t, err)
		require.Len(t, noEvents, 0, "There should be no new events since the last known ID")
	})

	t.Run("deactivation cuts off a still valid token", func(t *testing.T) {
		receiverUser, err := testServer.store.GetUserByUsername(context.Background(), receiver.Username)
		require.NoError(t, err)
		ok, err := testServer.store.SetUserActive(context.Background(), receiverUser.ID, false)
		require.NoError(t, err)
		require.True(t, ok)

		req := httptest.NewRequest("GET", "/api/v1/me", nil)
		req.Header.Set("Authorization", "Bearer "+receiverToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusForbidden, rr.Code)
		require.Contains(t, rr.Body.String(), "Inactive user")

		// Nowego tokenu też nie dostanie, mimo poprawnego klucza.
		body, _ := json.Marshal(TokenRequest{Username: receiver.Username, Password: receiver.Key})
		reqToken := httptest.NewRequest("POST", "/api/v1/auth/token", bytes.NewReader(body))
		rrToken := httptest.NewRecorder()
		router.ServeHTTP(rrToken, reqToken)

		require.Equal(t, http.StatusUnauthorized, rrToken.Code)
	})
}
