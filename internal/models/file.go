package models

import "time"

type File struct {
	ID             int64     `json:"id"`
	Filename       string    `json:"filename"`
	StoredFilename string    `json:"stored_filename"`
	OwnerID        int64     `json:"owner_id"`
	RecipientID    *int64    `json:"recipient_id,omitempty"`
	UploadedAt     time.Time `json:"uploaded_at"`
}

// DownloadableBy decyduje, czy dany użytkownik może pobrać plik.
// Tylko właściciel i wskazany odbiorca mają dostęp, nikt inny.
func (f *File) DownloadableBy(userID int64) bool {
	if f.OwnerID == userID {
		return true
	}
	return f.RecipientID != nil && *f.RecipientID == userID
}
