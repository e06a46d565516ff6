// Package collab is the bidirectional collaboration fabric (spec.md
// §4.G): two channel namespaces — project channels keyed by project_id,
// item channels keyed by dataset_item_id — fanning messages out over
// live WebSocket sessions. Grounded on the teacher's internal/sse.SSEHub
// broadcast-map discipline (per-channel subscriber set, snapshot-then-
// iterate to avoid holding a lock across I/O) and generalized from the
// original services/websocket.py ConnectionManager's project/item split.
package collab

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
)

// MessageType names a relayed or server-emitted collaboration message
// (spec.md §4.G).
type MessageType string

const (
	MsgCursorMove          MessageType = "cursor_move"
	MsgAnnotationUpdate    MessageType = "annotation_update"
	MsgAnnotationPreview   MessageType = "annotation_preview"
	MsgAnnotationCommitted MessageType = "annotation_committed"
	MsgRegionLock          MessageType = "region_lock"
	MsgRegionUnlock        MessageType = "region_unlock"
	MsgChat                MessageType = "chat"
	MsgPing                MessageType = "ping"
	MsgPong                MessageType = "pong"

	MsgUserJoined       MessageType = "user_joined"
	MsgUserLeft         MessageType = "user_left"
	MsgAnnotatorJoined  MessageType = "annotator_joined"
	MsgAnnotatorLeft    MessageType = "annotator_left"
	MsgIndexingProgress MessageType = "indexing_progress"
	MsgMediaUploaded    MessageType = "media_uploaded"
	MsgAutoCategorized  MessageType = "auto_categorized"
	MsgUserList         MessageType = "user_list"
)

// relayable is the set of message types the server accepts from a client
// and relays verbatim to the rest of that client's channel; anything
// else (including unrecognized types) is dropped.
var relayable = map[MessageType]bool{
	MsgCursorMove:          true,
	MsgAnnotationUpdate:    true,
	MsgAnnotationPreview:   true,
	MsgAnnotationCommitted: true,
	MsgRegionLock:          true,
	MsgRegionUnlock:        true,
	MsgChat:                true,
}

// Envelope is the wire shape of every message in either direction.
// Type is the only required field; Data carries the type-specific body.
type Envelope struct {
	Type   MessageType     `json:"type"`
	UserID uuid.UUID       `json:"user_id,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

type channelKind int

const (
	kindProject channelKind = iota
	kindItem
)

type channelKey struct {
	kind channelKind
	id   uuid.UUID
}

// Manager holds the {channel_id -> {session -> bool}} broadcast maps for
// both namespaces (spec.md §9 "Broadcast model").
type Manager struct {
	mu       sync.RWMutex
	channels map[channelKey]map[*Session]bool
	log      *logger.Logger
}

func NewManager(log *logger.Logger) *Manager {
	return &Manager{
		channels: make(map[channelKey]map[*Session]bool),
		log:      log.With("component", "CollabManager"),
	}
}

func (m *Manager) members(key channelKey) []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := m.channels[key]
	out := make([]*Session, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	return out
}

func (m *Manager) add(key channelKey, s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.channels[key]
	if !ok {
		set = make(map[*Session]bool)
		m.channels[key] = set
	}
	set[s] = true
}

func (m *Manager) remove(key channelKey, s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if set, ok := m.channels[key]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(m.channels, key)
		}
	}
}

// broadcast iterates a snapshot of channel membership, so no lock is
// held across the per-session send. A send failure removes only that
// member (spec.md §4.G "any send failure removes that member from the
// channel"); it never aborts delivery to the rest of the channel.
func (m *Manager) broadcast(key channelKey, env Envelope, exclude *Session) {
	for _, s := range m.members(key) {
		if s == exclude {
			continue
		}
		if !s.deliver(env) {
			m.remove(key, s)
		}
	}
}

// ConnectProject registers sess under projectID's channel, announces it
// to existing members via user_joined, and sends sess a user_list
// snapshot of who else is present (spec.md §4.G connect_project).
func (m *Manager) ConnectProject(sess *Session, projectID uuid.UUID) {
	key := channelKey{kindProject, projectID}
	existing := m.members(key)
	m.add(key, sess)

	m.broadcast(key, joinedEnvelope(MsgUserJoined, sess), sess)
	sess.deliver(userListEnvelope(existing))
}

// ConnectItem is ConnectProject's analogue for the item namespace,
// emitting annotator_joined instead of user_joined.
func (m *Manager) ConnectItem(sess *Session, itemID uuid.UUID) {
	key := channelKey{kindItem, itemID}
	existing := m.members(key)
	m.add(key, sess)

	m.broadcast(key, joinedEnvelope(MsgAnnotatorJoined, sess), sess)
	sess.deliver(userListEnvelope(existing))
}

// DisconnectProject is idempotent; disconnecting a session not present
// in projectID's channel is a no-op (spec.md §4.G disconnect_*).
func (m *Manager) DisconnectProject(sess *Session, projectID uuid.UUID) {
	key := channelKey{kindProject, projectID}
	m.remove(key, sess)
	m.broadcast(key, joinedEnvelope(MsgUserLeft, sess), sess)
}

func (m *Manager) DisconnectItem(sess *Session, itemID uuid.UUID) {
	key := channelKey{kindItem, itemID}
	m.remove(key, sess)
	m.broadcast(key, joinedEnvelope(MsgAnnotatorLeft, sess), sess)
}

// BroadcastProject pushes a server-originated notification (indexing
// progress, media_uploaded, auto_categorized) to every member of a
// project channel, with no sender to exclude.
func (m *Manager) BroadcastProject(projectID uuid.UUID, msgType MessageType, data any) {
	m.broadcast(channelKey{kindProject, projectID}, dataEnvelope(msgType, data), nil)
}

// Relay accepts a client-sent Envelope and, if its type is one the
// server relays (spec.md §4.G "Supported message types"), re-broadcasts
// it verbatim to every other member of the channel the sender belongs
// to. ping is handled separately by the Session read pump.
func (m *Manager) Relay(sess *Session, kind channelKind, channelID uuid.UUID, env Envelope) {
	if !relayable[env.Type] {
		return
	}
	env.UserID = sess.UserID
	m.broadcast(channelKey{kind, channelID}, env, sess)
}

func joinedEnvelope(t MessageType, sess *Session) Envelope {
	raw, _ := json.Marshal(map[string]any{
		"user_id":   sess.UserID,
		"user_name": sess.UserName,
	})
	return Envelope{Type: t, UserID: sess.UserID, Data: raw}
}

func dataEnvelope(t MessageType, data any) Envelope {
	raw, _ := json.Marshal(data)
	return Envelope{Type: t, Data: raw}
}

func userListEnvelope(members []*Session) Envelope {
	users := make([]map[string]any, 0, len(members))
	for _, s := range members {
		users = append(users, map[string]any{"user_id": s.UserID, "user_name": s.UserName})
	}
	raw, _ := json.Marshal(map[string]any{"users": users})
	return Envelope{Type: MsgUserList, Data: raw}
}
