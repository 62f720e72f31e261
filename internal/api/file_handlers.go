package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"skrytka-plikow/internal/database"
	"skrytka-plikow/internal/models"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// @Summary      Upload a file
// @Description  Stores a file on the server, optionally addressed to another user. The response contains the server-side stored name used for downloads.
// @Tags         files
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file                 formData  file    true   "File content"
// @Param        recipient_username   formData  string  false  "Username of the recipient"
// @Success      201  {object}  models.File
// @Failure      400  {string}  string "Error retrieving the file"
// @Failure      404  {string}  string "Recipient not found"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /api/v1/files [post]
func (s *Server) UploadFileHandler(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<30)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "Error parsing multipart form", http.StatusBadRequest)
		return
	}

	file, handler, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error retrieving the file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	var recipientID *int64
	recipientUsername := r.FormValue("recipient_username")
	if recipientUsername != "" {
		recipient, err := s.store.GetUserByUsername(r.Context(), recipientUsername)
		if err != nil {
			s.logger.Error("Nie udało się sprawdzić odbiorcy", zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if recipient == nil {
			http.Error(w, "Recipient not found", http.StatusNotFound)
			return
		}
		recipientID = &recipient.ID
	}

	// Na dysku plik żyje pod nazwą nadaną przez serwer. Oryginalna nazwa
	// wraca do klienta dopiero przy pobieraniu, w Content-Disposition.
	storedName := uuid.New().String() + filepath.Ext(handler.Filename)

	if err := s.storage.Save(storedName, file); err != nil {
		s.logger.Error("Nie udało się zapisać pliku na dysku", zap.String("stored_filename", storedName), zap.Error(err))
		http.Error(w, "Failed to save file", http.StatusInternalServerError)
		return
	}

	var created *models.File
	txErr := s.store.ExecTx(r.Context(), func(q *database.Queries) error {
		var err error
		created, err = q.CreateFile(r.Context(), database.CreateFileParams{
			Filename:       handler.Filename,
			StoredFilename: storedName,
			OwnerID:        user.ID,
			RecipientID:    recipientID,
		})
		if err != nil {
			return err
		}

		if recipientID != nil {
			payload := map[string]interface{}{
				"file_info":       created,
				"sender_username": user.Username,
			}
			return q.LogEvent(r.Context(), *recipientID, database.EventFileSent, payload)
		}

		return nil
	})

	if txErr != nil {
		// Rekord nie powstał, więc blob na dysku jest osierocony.
		if err := s.storage.Delete(storedName); err != nil {
			s.logger.Warn("Nie udało się usunąć osieroconego pliku", zap.String("stored_filename", storedName), zap.Error(err))
		}

		if errors.Is(txErr, database.ErrRecipientNotFound) {
			http.Error(w, "Recipient not found", http.StatusNotFound)
			return
		}
		s.logger.Error("Nie udało się utworzyć rekordu pliku", zap.Error(txErr))
		http.Error(w, "Failed to create file record", http.StatusInternalServerError)
		return
	}

	if recipientID != nil {
		eventMsg := map[string]interface{}{
			"event_type": database.EventFileSent,
			"payload": map[string]interface{}{
				"file_info":       created,
				"sender_username": user.Username,
			},
		}
		eventBytes, _ := json.Marshal(eventMsg)
		s.wsHub.PublishEvent(*recipientID, eventBytes)
	}

	filesUploadedTotal.Inc()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

// @Summary      Download a file
// @Description  Streams the file under its original filename. Only the owner and the designated recipient may download; everyone else gets 403 regardless of admin status.
// @Tags         files
// @Produce      octet-stream
// @Security     BearerAuth
// @Param        storedFilename   path      string  true  "Server-side stored name"
// @Success      200  {file}    file
// @Failure      403  {string}  string "Not authorized to download this file"
// @Failure      404  {string}  string "File not found"
// @Router       /download/{storedFilename} [get]
func (s *Server) DownloadFileHandler(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	storedFilename := chi.URLParam(r, "storedFilename")
	if storedFilename == "" {
		http.Error(w, "Stored filename is required", http.StatusBadRequest)
		return
	}

	record, err := s.store.GetFileByStoredName(r.Context(), storedFilename)
	if err != nil {
		s.logger.Error("Nie udało się pobrać metadanych pliku", zap.Error(err))
		http.Error(w, "Failed to retrieve file metadata", http.StatusInternalServerError)
		return
	}
	if record == nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	if !record.DownloadableBy(user.ID) {
		http.Error(w, "Not authorized to download this file", http.StatusForbidden)
		return
	}

	fileStream, err := s.storage.Get(record.StoredFilename)
	if err != nil {
		s.logger.Error("Rekord istnieje, ale pliku nie ma na dysku", zap.String("stored_filename", record.StoredFilename), zap.Error(err))
		http.Error(w, "File not found on disk", http.StatusNotFound)
		return
	}
	defer fileStream.Close()

	w.Header().Set("Content-Disposition", "attachment; filename=\""+record.Filename+"\"")
	w.Header().Set("Content-Type", "application/octet-stream")

	io.Copy(w, fileStream)

	filesDownloadedTotal.Inc()
}

// @Summary      List own files
// @Description  Lists files uploaded by the authenticated user, newest first.
// @Tags         files
// @Produce      json
// @Security     BearerAuth
// @Param        limit    query     int  false  "Page size"
// @Param        offset   query     int  false  "Page offset"
// @Success      200  {array}   models.File
// @Failure      401  {string}  string "Could not validate credentials"
// @Router       /api/v1/files [get]
func (s *Server) ListOwnedFilesHandler(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	limit, offset := parsePagination(r)

	files, err := s.store.ListFilesByOwner(r.Context(), user.ID, limit, offset)
	if err != nil {
		s.logger.Error("Nie udało się wylistować plików", zap.Error(err))
		http.Error(w, "Failed to list files", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(files)
}

// @Summary      List received files
// @Description  Lists files addressed to the authenticated user, newest first.
// @Tags         files
// @Produce      json
// @Security     BearerAuth
// @Param        limit    query     int  false  "Page size"
// @Param        offset   query     int  false  "Page offset"
// @Success      200  {array}   models.File
// @Failure      401  {string}  string "Could not validate credentials"
// @Router       /api/v1/files/received [get]
func (s *Server) ListReceivedFilesHandler(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	limit, offset := parsePagination(r)

	files, err := s.store.ListFilesByRecipient(r.Context(), user.ID, limit, offset)
	if err != nil {
		s.logger.Error("Nie udało się wylistować otrzymanych plików", zap.Error(err))
		http.Error(w, "Failed to list files", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(files)
}

// @Summary      Delete own file
// @Description  Removes a file owned by the authenticated user, both the record and the bytes on disk. Files of other users look like they do not exist.
// @Tags         files
// @Security     BearerAuth
// @Param        fileId   path      int  true  "File ID"
// @Success      204  {null}    nil "No Content"
// @Failure      400  {string}  string "Invalid file ID"
// @Failure      404  {string}  string "File not found"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /api/v1/files/{fileId} [delete]
func (s *Server) DeleteFileHandler(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	fileID, err := strconv.ParseInt(chi.URLParam(r, "fileId"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid file ID", http.StatusBadRequest)
		return
	}

	var deleted *models.File
	txErr := s.store.ExecTx(r.Context(), func(q *database.Queries) error {
		var err error
		deleted, err = q.DeleteFileOwned(r.Context(), fileID, user.ID)
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
			// Cudze pliki i nieistniejące wyglądają identycznie.
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

	if deleted.RecipientID != nil {
		eventMsg := map[string]interface{}{
			"event_type": database.EventFileRevoked,
			"payload": map[string]interface{}{
				"file_id":  deleted.ID,
				"filename": deleted.Filename,
			},
		}
		eventBytes, _ := json.Marshal(eventMsg)
		s.wsHub.PublishEvent(*deleted.RecipientID, eventBytes)
	}

	w.WriteHeader(http.StatusNoContent)
}
