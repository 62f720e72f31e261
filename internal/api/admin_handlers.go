package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"skrytka-plikow/internal/database"
	"skrytka-plikow/internal/models"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// @Summary      List all users
// @Description  Admin-only listing of every account in the system.
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        limit    query     int  false  "Page size"
// @Param        offset   query     int  false  "Page offset"
// @Success      200  {array}   models.User
// @Failure      403  {string}  string "Admin access required"
// @Router       /api/v1/admin/users [get]
func (s *Server) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	users, err := s.store.ListUsers(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("Nie udało się wylistować użytkowników", zap.Error(err))
		http.Error(w, "Failed to list users", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(users)
}

// @Summary      List all files
// @Description  Admin-only listing of every file record. Listing does not grant download rights.
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        limit    query     int  false  "Page size"
// @Param        offset   query     int  false  "Page offset"
// @Success      200  {array}   models.File
// @Failure      403  {string}  string "Admin access required"
// @Router       /api/v1/admin/files [get]
func (s *Server) ListAllFilesHandler(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	files, err := s.store.ListAllFiles(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("Nie udało się wylistować plików", zap.Error(err))
		http.Error(w, "Failed to list files", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(files)
}

type UpdateUserRequest struct {
	IsAdmin  *bool `json:"is_admin"`
	IsActive *bool `json:"is_active"`
}

// @Summary      Update user flags
// @Description  Grants or revokes the admin role, activates or deactivates an account.
// @Tags         admin
// @Accept       json
// @Security     BearerAuth
// @Param        userId              path      int                true  "User ID"
// @Param        updateUserRequest   body      UpdateUserRequest  true  "Flags to change"
// @Success      200  {null}    nil "OK"
// @Failure      400  {string}  string "No update operation specified"
// @Failure      403  {string}  string "Admin access required"
// @Failure      404  {string}  string "User not found"
// @Router       /api/v1/admin/users/{userId} [patch]
func (s *Server) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var updated bool

	if req.IsAdmin != nil {
		success, err := s.store.SetUserAdmin(r.Context(), userID, *req.IsAdmin)
		if err != nil {
			s.logger.Error("Nie udało się zmienić roli użytkownika", zap.Error(err))
			http.Error(w, "Failed to update user", http.StatusInternalServerError)
			return
		}
		if !success {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		updated = true
	}

	if req.IsActive != nil {
		success, err := s.store.SetUserActive(r.Context(), userID, *req.IsActive)
		if err != nil {
			s.logger.Error("Nie udało się zmienić aktywności użytkownika", zap.Error(err))
			http.Error(w, "Failed to update user", http.StatusInternalServerError)
			return
		}
		if !success {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		updated = true
	}

	if !updated {
		http.Error(w, "No update operation specified (provide 'is_admin' or 'is_active')", http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// @Summary      Delete a user
// @Description  Removes an account together with all its files, records and bytes on disk alike. Files addressed to the user by others stay, only the recipient link is cleared.
// @Tags         admin
// @Security     BearerAuth
// @Param        userId   path      int  true  "User ID"
// @Success      204  {null}    nil "No Content"
// @Failure      400  {string}  string "Invalid user ID"
// @Failure      403  {string}  string "Admin access required"
// @Failure      404  {string}  string "User not found"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /api/v1/admin/users/{userId} [delete]
func (s *Server) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	var storedNames []string
	txErr := s.store.ExecTx(r.Context(), func(q *database.Queries) error {
		var err error
		// Nazwy dyskowe trzeba zebrać przed usunięciem, kaskada zaraz
		// wywali rekordy plików.
		storedNames, err = q.ListStoredNamesByOwner(r.Context(), userID)
		if err != nil {
			return err
		}

		deleted, err := q.DeleteUser(r.Context(), userID)
		if err != nil {
			return err
		}
		if !deleted {
			return database.ErrUserNotFound
		}

		return nil
	})

	if txErr != nil {
		if errors.Is(txErr, database.ErrUserNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		s.logger.Error("Nie udało się usunąć użytkownika", zap.Error(txErr))
		http.Error(w, "Failed to delete user", http.StatusInternalServerError)
		return
	}

	for _, storedName := range storedNames {
		if err := s.storage.Delete(storedName); err != nil {
			s.logger.Warn("Nie udało się usunąć pliku z dysku", zap.String("stored_filename", storedName), zap.Error(err))
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary      Purge a file
// @Description  Admin removal of any file, regardless of owner. Record and bytes on disk are both removed.
// @Tags         admin
// @Security     BearerAuth
// @Param        fileId   path      int  true  "File ID"
// @Success      204  {null}    nil "No Content"
// @Failure      400  {string}  string "Invalid file ID"
// @Failure      403  {string}  string "Admin access required"
// @Failure      404  {string}  string "File not found"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /api/v1/admin/files/{fileId} [delete]
func (s *Server) PurgeFileHandler(w http.ResponseWriter, r *http.Request) {
	fileID, err := strconv.ParseInt(chi.URLParam(r, "fileId"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid file ID", http.StatusBadRequest)
		return
	}

	var deleted *models.File
	txErr := s.store.ExecTx(r.Context(), func(q *database.Queries) error {
		var err error
		deleted, err = q.DeleteFile(r.Context(), fileID)
		if err != nil {
			return err
		}
		if deleted == nil {
			return database.ErrFileNotFound
		}

		if deleted.RecipientID != nil {
			payload := map[string]interface{}{
				"file_id":  deleted.ID,
				"filename": deleted.Filename,
			}
			return q.LogEvent(r.Context(), *deleted.RecipientID, database.EventFileRevoked, payload)
		}

		return nil
	})

	if txErr != nil {
		if errors.Is(txErr, database.ErrFileNotFound) {
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		s.logger.Error("Nie udało się usunąć pliku", zap.Error(txErr))
		http.Error(w, "Failed to delete file", http.StatusInternalServerError)
		return
	}

	if err := s.storage.Delete(deleted.StoredFilename); err != nil {
		s.logger.Warn("Nie udało się usunąć pliku z dysku", zap.String("stored_filename", deleted.StoredFilename), zap.Error(err))
	}

	w.WriteHeader(http.StatusNoContent)
}
