package database

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogEventAndGetEventsSince(t *testing.T) {
	user := createRandomUser(t)

	payload := map[string]interface{}{
		"filename":        "dokument.pdf",
		"sender_username": "X7K2P9",
	}
	err := testStore.LogEvent(context.Background(), user.ID, EventFileSent, payload)
	require.NoError(t, err)

	events, err := testStore.GetEventsSince(context.Background(), user.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)

	event := events[0]
	require.Equal(t, EventFileSent, event.EventType)
	require.NotZero(t, event.ID)
	require.NotZero(t, event.EventTime)

	var decoded map[string]interface{}
	err = json.Unmarshal(event.Payload, &decoded)
	require.NoError(t, err)
	require.Equal(t, EventFileSent, decoded["event_type"])
}

func TestGetEventsSinceFiltersByID(t *testing.T) {
	user := createRandomUser(t)

	for i := 0; i < 3; i++ {
		err := testStore.LogEvent(context.Background(), user.ID, EventFileSent, map[string]int{"seq": i})
		require.NoError(t, err)
	}

	all, err := testStore.GetEventsSince(context.Background(), user.ID, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)

	// Zdarzenia rosną po id, klient doczytuje od ostatniego widzianego.
	newer, err := testStore.GetEventsSince(context.Background(), user.ID, all[0].ID)
	require.NoError(t, err)
	require.Len(t, newer, 2)
	require.Greater(t, newer[0].ID, all[0].ID)
}

func TestGetEventsSinceEmpty(t *testing.T) {
	user := createRandomUser(t)

	events, err := testStore.GetEventsSince(context.Background(), user.ID, 0)
	require.NoError(t, err)
	require.NotNil(t, events, "Brak zdarzeń to pusta lista, nie nil")
	require.Len(t, events, 0)
}

func TestGetEventsSinceScopedToUser(t *testing.T) {
	first := createRandomUser(t)
	second := createRandomUser(t)

	err := testStore.LogEvent(context.Background(), first.ID, EventFileSent, nil)
	require.NoError(t, err)

	events, err := testStore.GetEventsSince(context.Background(), second.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 0, "Zdarzenia jednego użytkownika nie mogą wyciekać do innego")
}
