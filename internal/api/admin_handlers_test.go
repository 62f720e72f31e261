package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"skrytka-plikow/internal/database"
	"skrytka-plikow/internal/models"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func createAdminAccount(t *testing.T) (*models.User, string) {
	t.Helper()

	admin, _ := createTestAccount(t)
	ok, err := testServer.store.SetUserAdmin(context.Background(), admin.ID, true)
	require.NoError(t, err)
	require.True(t, ok)
	return admin, tokenForUser(t, admin)
}

func adminRouter() *chi.Mux {
	router := chi.NewRouter()
	router.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(testServer.AuthMiddleware, testServer.AdminMiddleware)
		r.Get("/users", testServer.ListUsersHandler)
		r.Get("/files", testServer.ListAllFilesHandler)
		r.Patch("/users/{userId}", testServer.UpdateUserHandler)
		r.Delete("/users/{userId}", testServer.DeleteUserHandler)
		r.Delete("/files/{fileId}", testServer.PurgeFileHandler)
	})
	return router
}

func TestAdminEndpoints_RequireAdmin(t *testing.T) {
	router := adminRouter()

	endpoints := []struct {
		method string
		path   string
	}{
		{"GET", "/api/v1/admin/users"},
		{"GET", "/api/v1/admin/files"},
		{"PATCH", "/api/v1/admin/users/1"},
		{"DELETE", "/api/v1/admin/users/1"},
		{"DELETE", "/api/v1/admin/files/1"},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			req := httptest.NewRequest(ep.method, ep.path, nil)
			req.Header.Set("Authorization", "Bearer "+testUserToken)
			rr := httptest.NewRecorder()

			router.ServeHTTP(rr, req)

			require.Equal(t, http.StatusForbidden, rr.Code)
			require.Contains(t, rr.Body.String(), "Admin access required")
		})
	}
}

func TestListUsersHandler(t *testing.T) {
	_, adminToken := createAdminAccount(t)

	req := httptest.NewRequest("GET", "/api/v1/admin/users?limit=500", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rr := httptest.NewRecorder()

	adminRouter().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var users []models.User
	err := json.Unmarshal(rr.Body.Bytes(), &users)
	require.NoError(t, err)

	found := false
	for _, u := range users {
		if u.ID == testUser.ID {
			found = true
			break
		}
	}
	require.True(t, found, "Expected to find the base test user in the listing")

	// Hash klucza nigdy nie wychodzi na zewnątrz.
	require.NotContains(t, rr.Body.String(), "password_hash")
}

func TestListAllFilesHandler(t *testing.T) {
	owner, _ := createTestAccount(t)
	created := uploadTestFile(t, tokenForUser(t, owner), "widoczny_dla_admina.txt", "treść", "")

	_, adminToken := createAdminAccount(t)

	req := httptest.NewRequest("GET", "/api/v1/admin/files?limit=500", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rr := httptest.NewRecorder()

	adminRouter().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var files []models.File
	err := json.Unmarshal(rr.Body.Bytes(), &files)
	require.NoError(t, err)

	found := false
	for _, f := range files {
		if f.ID == created.ID {
			found = true
			break
		}
	}
	require.True(t, found, "Expected to find the uploaded file in the admin listing")
}

func patchUserRequest(t *testing.T, token string, userID interface{}, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest("PATCH", fmt.Sprintf("/api/v1/admin/users/%v", userID), strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	adminRouter().ServeHTTP(rr, req)
	return rr
}

func TestUpdateUserHandler(t *testing.T) {
	_, adminToken := createAdminAccount(t)
	target, _ := createTestAccount(t)

	t.Run("grant admin role", func(t *testing.T) {
		rr := patchUserRequest(t, adminToken, target.ID, `{"is_admin": true}`)
		require.Equal(t, http.StatusOK, rr.Code)

		updated, err := testServer.store.GetUserByID(context.Background(), target.ID)
		require.NoError(t, err)
		require.True(t, updated.IsAdmin)
	})

	t.Run("deactivate account", func(t *testing.T) {
		rr := patchUserRequest(t, adminToken, target.ID, `{"is_active": false}`)
		require.Equal(t, http.StatusOK, rr.Code)

		updated, err := testServer.store.GetUserByID(context.Background(), target.ID)
		require.NoError(t, err)
		require.False(t, updated.IsActive)
	})

	t.Run("both flags at once", func(t *testing.T) {
		rr := patchUserRequest(t, adminToken, target.ID, `{"is_admin": false, "is_active": true}`)
		require.Equal(t, http.StatusOK, rr.Code)

		updated, err := testServer.store.GetUserByID(context.Background(), target.ID)
		require.NoError(t, err)
		require.False(t, updated.IsAdmin)
		require.True(t, updated.IsActive)
	})

	t.Run("no operation specified", func(t *testing.T) {
		rr := patchUserRequest(t, adminToken, target.ID, `{}`)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		require.Contains(t, rr.Body.String(), "No update operation specified")
	})

	t.Run("unknown user", func(t *testing.T) {
		rr := patchUserRequest(t, adminToken, 999999, `{"is_active": false}`)
		require.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("invalid user id", func(t *testing.T) {
		rr := patchUserRequest(t, adminToken, "abc", `{"is_active": false}`)
		require.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestDeleteUserHandler(t *testing.T) {
	_, adminToken := createAdminAccount(t)
	target, _ := createTestAccount(t)
	other, _ := createTestAccount(t)

	ownFile := uploadTestFile(t, tokenForUser(t, target), "wlasny.txt", "treść własna", "")
	receivedFile := uploadTestFile(t, tokenForUser(t, other), "otrzymany.txt", "treść od innych", target.Username)

	req := httptest.NewRequest("DELETE", fmt.Sprintf("/api/v1/admin/users/%d", target.ID), nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rr := httptest.NewRecorder()

	adminRouter().ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)

	deleted, err := testServer.store.GetUserByID(context.Background(), target.ID)
	require.NoError(t, err)
	require.Nil(t, deleted)

	// Własne pliki znikają razem z kontem, rekord i bajty na dysku.
	record, err := testServer.store.GetFileByStoredName(context.Background(), ownFile.StoredFilename)
	require.NoError(t, err)
	require.Nil(t, record)
	require.False(t, testServer.storage.Exists(ownFile.StoredFilename))

	// Cudze pliki zaadresowane do konta zostają, tylko bez adresata.
	kept, err := testServer.store.GetFileByStoredName(context.Background(), receivedFile.StoredFilename)
	require.NoError(t, err)
	require.NotNil(t, kept)
	require.Nil(t, kept.RecipientID)
	require.True(t, testServer.storage.Exists(receivedFile.StoredFilename))
}

func TestDeleteUserHandler_UnknownUser(t *testing.T) {
	_, adminToken := createAdminAccount(t)

	req := httptest.NewRequest("DELETE", "/api/v1/admin/users/999999", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rr := httptest.NewRecorder()

	adminRouter().ServeHTTP(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Contains(t, rr.Body.String(), "User not found")
}

func TestPurgeFileHandler(t *testing.T) {
	_, adminToken := createAdminAccount(t)
	sender, _ := createTestAccount(t)
	recipient, _ := createTestAccount(t)

	created := uploadTestFile(t, tokenForUser(t, sender), "do_wyciecia.txt", "treść", recipient.Username)
	require.True(t, testServer.storage.Exists(created.StoredFilename))

	req := httptest.NewRequest("DELETE", fmt.Sprintf("/api/v1/admin/files/%d", created.ID), nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rr := httptest.NewRecorder()

	adminRouter().ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)

	record, err := testServer.store.GetFileByStoredName(context.Background(), created.StoredFilename)
	require.NoError(t, err)
	require.Nil(t, record)
	require.False(t, testServer.storage.Exists(created.StoredFilename))

	// Adresat dostaje wpis o wycofaniu, tak samo jak przy zwykłym usunięciu.
	events, err := testServer.store.GetEventsSince(context.Background(), recipient.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, database.EventFileRevoked, events[1].EventType)
}

func TestPurgeFileHandler_UnknownFile(t *testing.T) {
	_, adminToken := createAdminAccount(t)

	req := httptest.NewRequest("DELETE", "/api/v1/admin/files/999999", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rr := httptest.NewRecorder()

	adminRouter().ServeHTTP(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Contains(t, rr.Body.String(), "File not found")
}
