package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
	"nhooyr.io/websocket"

	"github.com/tankarena/arena/internal/room"
)

// maxStateFrame bounds a single inbound state update.
const maxStateFrame = 4 << 10

// wsTransport adapts a websocket connection to room.Transport.
type wsTransport struct {
	conn *websocket.Conn
}

func (t wsTransport) Write(ctx context.Context, msg []byte) error {
	return t.conn.Write(ctx, websocket.MessageText, msg)
}

func (t wsTransport) Close(reason string) error {
	return t.conn.Close(websocket.StatusNormalClosure, reason)
}

func handleRoomSocket(logger *slog.Logger, rooms *room.Registry, queueSize int, writeTimeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "room")
		player := chi.URLParam(r, "player")

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "room", key, "player", player, "error", err)
			return
		}
		defer conn.CloseNow()
		conn.SetReadLimit(maxStateFrame)

		client, err := room.NewClient(player, wsTransport{conn: conn}, queueSize, writeTimeout)
		if err != nil {
			logger.Error("creating room client", "error", err)
			conn.Close(websocket.StatusInternalError, "internal error")
			return
		}
		log := logger.With("room", key, "player", player, "conn", client.ID())

		if _, err := rooms.Join(key, client); err != nil {
			log.Warn("room join failed", "error", err)
			conn.Close(websocket.StatusTryAgainLater, "join failed")
			return
		}

		var leaveOnce sync.Once
		leave := func() {
			leaveOnce.Do(func() {
				if rooms.Leave(key, client) {
					rooms.Broadcast(key, room.LeftMessage(player), nil)
					log.Info("player left room")
				}
			})
		}
		defer leave()

		rooms.Broadcast(key, room.JoinedMessage(player, key), nil)

		g, gctx := errgroup.WithContext(r.Context())
		g.Go(func() error {
			return client.Run(gctx)
		})
		g.Go(func() error {
			defer client.Close("read loop ended")
			defer leave()
			readStates(gctx, conn, rooms, key, client, log)
			return nil
		})

		if err := g.Wait(); err != nil {
			log.Debug("room connection ended", "error", err)
		}
	}
}

// readStates relays inbound state updates until the connection fails.
// Malformed updates are dropped without closing the connection.
func readStates(ctx context.Context, conn *websocket.Conn, rooms *room.Registry, key string, client *room.Client, log *slog.Logger) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			log.Debug("websocket read ended", "status", websocket.CloseStatus(err), "error", err)
			return
		}
		if typ != websocket.MessageText {
			log.Warn("dropping non-text frame")
			continue
		}

		state, err := room.ParseState(data)
		if err != nil {
			log.Warn("dropping invalid state", "error", err)
			continue
		}
		rooms.Relay(key, client, state)
	}
}
