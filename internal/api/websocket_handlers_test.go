package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"skrytka-plikow/internal/database"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func wsTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()

	router := chi.NewRouter()
	router.Get("/ws", testServer.ServeWsHandler)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return srv, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestServeWsHandler_DeliversEvents(t *testing.T) {
	recipient, _ := createTestAccount(t)
	sender, _ := createTestAccount(t)

	_, wsURL := wsTestServer(t)

	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL+"?token="+tokenForUser(t, recipient), nil)
	require.NoError(t, err)
	defer conn.Close()

	// Rejestracja w hubie dzieje się tuż po handshake'u, ale asynchronicznie.
	time.Sleep(100 * time.Millisecond)

	uploadTestFile(t, tokenForUser(t, sender), "na_zywo.txt", "treść powiadomienia", recipient.Username)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err, "Expected a live notification after the upload")

	var event struct {
		EventType string `json:"event_type"`
		Payload   struct {
			SenderUsername string `json:"sender_username"`
		} `json:"payload"`
	}
	err = json.Unmarshal(message, &event)
	require.NoError(t, err)
	require.Equal(t, database.EventFileSent, event.EventType)
	require.Equal(t, sender.Username, event.Payload.SenderUsername)
}

func TestServeWsHandler_Gate(t *testing.T) {
	_, wsURL := wsTestServer(t)

	t.Run("missing token", func(t *testing.T) {
		conn, resp, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
		require.Error(t, err)
		require.Nil(t, conn)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("garbage token", func(t *testing.T) {
		conn, resp, err := gorillaws.DefaultDialer.Dial(wsURL+"?token=nie-token", nil)
		require.Error(t, err)
		require.Nil(t, conn)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("inactive user", func(t *testing.T) {
		user, _ := createTestAccount(t)
		token := tokenForUser(t, user)
		ok, err := testServer.store.SetUserActive(context.Background(), user.ID, false)
		require.NoError(t, err)
		require.True(t, ok)

		conn, resp, err := gorillaws.DefaultDialer.Dial(wsURL+"?token="+token, nil)
		require.Error(t, err)
		require.Nil(t, conn)
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
		resp.Body.Close()
	})
}
