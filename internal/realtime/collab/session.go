package collab

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
)

// idleTimeout is the implementation-defined session idle window (spec.md
// §9 "Collaboration session idle timeout ... recommend 60s without
// ping"). A session that sends nothing for this long is dropped.
const idleTimeout = 60 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Session is one live WebSocket connection, authenticated to a single
// (user_id, user_name) pair before it reaches this package (spec.md
// §4.G "each session carries authenticated (user_id, user_name)";
// auth itself is the HTTP layer's concern, out of scope here).
type Session struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	UserName string

	conn   *websocket.Conn
	send   chan Envelope
	closed chan struct{}
	once   sync.Once
	log    *logger.Logger
}

func newSession(conn *websocket.Conn, userID uuid.UUID, userName string, log *logger.Logger) *Session {
	return &Session{
		ID:       uuid.New(),
		UserID:   userID,
		UserName: userName,
		conn:     conn,
		send:     make(chan Envelope, 32),
		closed:   make(chan struct{}),
		log:      log,
	}
}

// deliver enqueues env for the write pump. A full or closed send buffer
// counts as a send failure (spec.md §4.G broadcast: "any send failure
// removes that member from the channel").
func (s *Session) deliver(env Envelope) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case <-s.closed:
		return false
	default:
	}
	select {
	case s.send <- env:
		return true
	default:
		return false
	}
}

func (s *Session) close() {
	s.once.Do(func() {
		close(s.closed)
		_ = s.conn.Close()
	})
}

// CloseUnauthorized completes the upgrade handshake and immediately
// closes with code 4001, the auth-failure close code (spec.md §6 "On
// auth failure close with code 4001"). Failing the upgrade itself would
// surface to browser clients as a generic connection error instead.
func CloseUnauthorized(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(4001, "unauthorized"), deadline)
	_ = conn.Close()
}

// ServeProject upgrades r to a WebSocket, registers the session on
// projectID's channel, and blocks for the life of the connection
// (spec.md §6 "/ws/projects/{project_id}?token=<jwt>").
func ServeProject(mgr *Manager, w http.ResponseWriter, r *http.Request, projectID, userID uuid.UUID, userName string, log *logger.Logger) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	sess := newSession(conn, userID, userName, log)
	mgr.ConnectProject(sess, projectID)
	defer mgr.DisconnectProject(sess, projectID)

	runSession(mgr, sess, kindProject, projectID)
	return nil
}

// ServeItem is ServeProject's analogue for the item namespace (spec.md
// §6 "/ws/annotate/{item_id}?token=<jwt>").
func ServeItem(mgr *Manager, w http.ResponseWriter, r *http.Request, itemID, userID uuid.UUID, userName string, log *logger.Logger) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	sess := newSession(conn, userID, userName, log)
	mgr.ConnectItem(sess, itemID)
	defer mgr.DisconnectItem(sess, itemID)

	runSession(mgr, sess, kindItem, itemID)
	return nil
}

func runSession(mgr *Manager, sess *Session, kind channelKind, channelID uuid.UUID) {
	done := make(chan struct{})
	go writePump(sess, done)
	readPump(mgr, sess, kind, channelID)
	sess.close()
	<-done
}

// readPump reads client frames in order (spec.md §9 "messages from a
// single sender ... delivered in send order") and relays or answers
// them; it returns when the connection errors or closes, which is the
// signal disconnection happened.
func readPump(mgr *Manager, sess *Session, kind channelKind, channelID uuid.UUID) {
	_ = sess.conn.SetReadDeadline(time.Now().Add(idleTimeout))
	for {
		var env Envelope
		if err := sess.conn.ReadJSON(&env); err != nil {
			return
		}
		_ = sess.conn.SetReadDeadline(time.Now().Add(idleTimeout))

		switch env.Type {
		case MsgPing:
			sess.deliver(Envelope{Type: MsgPong})
		default:
			mgr.Relay(sess, kind, channelID, env)
		}
	}
}

func writePump(sess *Session, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-sess.closed:
			return
		case env, ok := <-sess.send:
			if !ok {
				return
			}
			if err := sess.conn.WriteJSON(env); err != nil {
				return
			}
		}
	}
}
