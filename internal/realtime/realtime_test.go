package realtime

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	require.NoError(t, err)
	t.Cleanup(log.Sync)
	return log
}

func recvMessage(t *testing.T, ch <-chan SSEMessage, timeout time.Duration) SSEMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for message")
	}
	return SSEMessage{}
}

func TestSSEHub_OrderingWithinChannel(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channel := uuid.New().String()

	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, channel)

	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventJobProgress, Data: map[string]any{"seq": 1}})
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventJobDone, Data: map[string]any{"seq": 2}})

	first := recvMessage(t, client.Outbound, time.Second)
	second := recvMessage(t, client.Outbound, time.Second)
	require.Equal(t, SSEEventJobProgress, first.Event)
	require.Equal(t, SSEEventJobDone, second.Event)
}

func TestSSEHub_DisconnectStopsDelivery(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channel := uuid.New().String()

	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, channel)
	hub.CloseClient(client)

	_, ok := <-client.Outbound
	require.False(t, ok, "outbound channel should be closed after CloseClient")

	// Broadcasting after removal must not panic and must not reach anyone.
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventUserLeft})
}

func TestSSEHub_OnlySubscribersReceive(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channelA := uuid.New().String()
	channelB := uuid.New().String()

	clientA := hub.NewSSEClient(uuid.New())
	hub.AddChannel(clientA, channelA)
	clientB := hub.NewSSEClient(uuid.New())
	hub.AddChannel(clientB, channelB)

	hub.Broadcast(SSEMessage{Channel: channelA, Event: SSEEventUserJoined})

	recvMessage(t, clientA.Outbound, time.Second)
	select {
	case msg := <-clientB.Outbound:
		t.Fatalf("client on a different channel received %v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}
