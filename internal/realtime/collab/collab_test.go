package collab

import (
	"encoding/json"
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

// testSession builds a Session without a live websocket; deliver only
// touches the send buffer, so broadcast semantics are fully observable
// by reading sess.send directly.
func testSession(userName string) *Session {
	return newSession(nil, uuid.New(), userName, nil)
}

func recvEnv(t *testing.T, s *Session) Envelope {
	t.Helper()
	select {
	case env := <-s.send:
		return env
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for envelope")
	}
	return Envelope{}
}

func requireNoEnv(t *testing.T, s *Session) {
	t.Helper()
	select {
	case env := <-s.send:
		t.Fatalf("unexpected envelope %q", env.Type)
	default:
	}
}

func TestProjectChannel_FanOut(t *testing.T) {
	mgr := NewManager(mustTestLogger(t))
	projectID := uuid.New()

	s1 := testSession("alice")
	mgr.ConnectProject(s1, projectID)
	list := recvEnv(t, s1)
	require.Equal(t, MsgUserList, list.Type)

	s2 := testSession("bob")
	mgr.ConnectProject(s2, projectID)

	joined := recvEnv(t, s1)
	require.Equal(t, MsgUserJoined, joined.Type)
	require.Equal(t, s2.UserID, joined.UserID)

	list = recvEnv(t, s2)
	require.Equal(t, MsgUserList, list.Type)
	var snapshot struct {
		Users []struct {
			UserID   uuid.UUID `json:"user_id"`
			UserName string    `json:"user_name"`
		} `json:"users"`
	}
	require.NoError(t, json.Unmarshal(list.Data, &snapshot))
	require.Len(t, snapshot.Users, 1)
	require.Equal(t, s1.UserID, snapshot.Users[0].UserID)
	require.Equal(t, "alice", snapshot.Users[0].UserName)

	// s1 sends cursor_move; s2 receives exactly one, s1 none.
	cursor, _ := json.Marshal(map[string]any{"x": 10, "y": 20})
	mgr.Relay(s1, kindProject, projectID, Envelope{Type: MsgCursorMove, Data: cursor})

	got := recvEnv(t, s2)
	require.Equal(t, MsgCursorMove, got.Type)
	require.Equal(t, s1.UserID, got.UserID)
	var coords struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	require.NoError(t, json.Unmarshal(got.Data, &coords))
	require.Equal(t, float64(10), coords.X)
	require.Equal(t, float64(20), coords.Y)
	requireNoEnv(t, s1)
	requireNoEnv(t, s2)

	mgr.DisconnectProject(s1, projectID)
	left := recvEnv(t, s2)
	require.Equal(t, MsgUserLeft, left.Type)
	require.Equal(t, s1.UserID, left.UserID)
}

func TestItemChannel_AnnotatorJoinLeave(t *testing.T) {
	mgr := NewManager(mustTestLogger(t))
	itemID := uuid.New()

	s1 := testSession("alice")
	mgr.ConnectItem(s1, itemID)
	recvEnv(t, s1) // user_list

	s2 := testSession("bob")
	mgr.ConnectItem(s2, itemID)

	joined := recvEnv(t, s1)
	require.Equal(t, MsgAnnotatorJoined, joined.Type)

	mgr.DisconnectItem(s2, itemID)
	left := recvEnv(t, s1)
	require.Equal(t, MsgAnnotatorLeft, left.Type)
	require.Equal(t, s2.UserID, left.UserID)
}

func TestRelay_DropsNonRelayableTypes(t *testing.T) {
	mgr := NewManager(mustTestLogger(t))
	projectID := uuid.New()

	s1 := testSession("alice")
	s2 := testSession("bob")
	mgr.ConnectProject(s1, projectID)
	recvEnv(t, s1)
	mgr.ConnectProject(s2, projectID)
	recvEnv(t, s1)
	recvEnv(t, s2)

	mgr.Relay(s1, kindProject, projectID, Envelope{Type: "made_up_type"})
	mgr.Relay(s1, kindProject, projectID, Envelope{Type: MsgUserJoined})
	requireNoEnv(t, s2)
}

func TestBroadcast_ReapsDeadSessions(t *testing.T) {
	mgr := NewManager(mustTestLogger(t))
	projectID := uuid.New()

	healthy := testSession("alice")
	dead := testSession("bob")
	mgr.ConnectProject(healthy, projectID)
	recvEnv(t, healthy)
	mgr.ConnectProject(dead, projectID)
	recvEnv(t, healthy)
	recvEnv(t, dead)

	// Saturate the dead session's send buffer so the next deliver fails.
	for dead.deliver(Envelope{Type: MsgChat}) {
	}

	mgr.BroadcastProject(projectID, MsgIndexingProgress, map[string]any{"done": 1})
	got := recvEnv(t, healthy)
	require.Equal(t, MsgIndexingProgress, got.Type)

	members := mgr.members(channelKey{kindProject, projectID})
	require.Len(t, members, 1)
	require.Same(t, healthy, members[0])
}

func TestDisconnect_Idempotent(t *testing.T) {
	mgr := NewManager(mustTestLogger(t))
	projectID := uuid.New()

	s := testSession("alice")
	mgr.DisconnectProject(s, projectID) // never connected: no-op
	mgr.ConnectProject(s, projectID)
	recvEnv(t, s)
	mgr.DisconnectProject(s, projectID)
	mgr.DisconnectProject(s, projectID)
	require.Empty(t, mgr.members(channelKey{kindProject, projectID}))
}
