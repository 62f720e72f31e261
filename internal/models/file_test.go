package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileDownloadableBy(t *testing.T) {
	ownerID := int64(1)
	recipientID := int64(2)
	strangerID := int64(3)
	adminID := int64(99)

	fileWithRecipient := &File{
		ID:          10,
		OwnerID:     ownerID,
		RecipientID: &recipientID,
	}

	require.True(t, fileWithRecipient.DownloadableBy(ownerID), "Owner should be allowed to download")
	require.True(t, fileWithRecipient.DownloadableBy(recipientID), "Recipient should be allowed to download")
	require.False(t, fileWithRecipient.DownloadableBy(strangerID), "Unrelated user must not be allowed to download")
	require.False(t, fileWithRecipient.DownloadableBy(adminID), "Admin privilege does not grant download access")
}

func TestFileDownloadableBy_NoRecipient(t *testing.T) {
	// Plik bez odbiorcy: tylko właściciel ma dostęp
	file := &File{
		ID:      11,
		OwnerID: 1,
	}

	require.True(t, file.DownloadableBy(1))
	require.False(t, file.DownloadableBy(2))
	require.False(t, file.DownloadableBy(0), "Zero user ID must not match a nil recipient")
}
