package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/DoyleJ11/lol-draft-rooms/internal/engine"
	"github.com/DoyleJ11/lol-draft-rooms/internal/hub"
	"github.com/DoyleJ11/lol-draft-rooms/internal/session"
	"github.com/DoyleJ11/lol-draft-rooms/internal/types"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Options struct {
	// OriginPatterns is passed to websocket.Accept. Empty means same origin only.
	OriginPatterns []string
	OutboxSize     int
	WriteTimeout   time.Duration
}

func Handler(h *hub.Hub, opts Options, log *zap.Logger) http.HandlerFunc {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 3 * time.Second
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			log.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		// Cancelling ctx is how a slow session gets kicked.
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sid := uuid.NewString()
		slog := log.With(zap.String("session", sid))
		sess := session.New(sid, opts.OutboxSize, cancel, log)

		if !h.Send(hub.Connect{Session: sess}) {
			conn.Close(websocket.StatusTryAgainLater, "shutting down")
			return
		}
		defer disconnect(h, sid)
		slog.Debug("websocket connected", zap.String("remote", r.RemoteAddr))

		go writeLoop(ctx, cancel, conn, sess, opts.WriteTimeout, slog)

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					slog.Debug("websocket closed")
				default:
					if !errors.Is(err, context.Canceled) {
						slog.Debug("websocket read failed", zap.Error(err))
					}
				}
				return
			}

			msg, ok := decode(sid, data)
			if !ok {
				slog.Debug("ignoring malformed frame", zap.ByteString("frame", truncate(data, 256)))
				continue
			}
			if !h.Send(msg) {
				return
			}
		}
	}
}

// disconnect hands cleanup to the hub and waits for it, so a reconnect from
// the same client never observes the old binding.
func disconnect(h *hub.Hub, sid string) {
	done := make(chan struct{})
	if !h.Send(hub.Disconnect{SessionID: sid, Done: done}) {
		return
	}
	select {
	case <-done:
	case <-h.Done():
	}
}

func writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, sess *session.Session, timeout time.Duration, log *zap.Logger) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-sess.Outbox():
			wctx, wcancel := context.WithTimeout(ctx, timeout)
			err := wsjson.Write(wctx, conn, msg)
			wcancel()
			if err != nil {
				log.Debug("websocket write failed", zap.String("type", msg.Type), zap.Error(err))
				return
			}
		}
	}
}

// decode turns one inbound frame into a hub message.
func decode(sid string, data []byte) (hub.HubMsg, bool) {
	var cm types.ClientMessage
	if err := json.Unmarshal(data, &cm); err != nil {
		return nil, false
	}

	switch cm.Type {
	case types.EvtGetRooms:
		return hub.GetRooms{SessionID: sid}, true

	case types.EvtCreateRoom:
		var p types.CreateRoomPayload
		if err := json.Unmarshal(cm.Data, &p); err != nil {
			return nil, false
		}
		return hub.CreateRoom{SessionID: sid, RoomName: p.RoomName, Creator: p.Creator}, true

	case types.EvtJoinRoom:
		var p types.JoinRoomPayload
		if err := json.Unmarshal(cm.Data, &p); err != nil {
			return nil, false
		}
		team, ok := engine.ParseTeam(p.Team)
		if !ok {
			return nil, false
		}
		return hub.JoinRoom{SessionID: sid, RoomName: p.RoomName, Username: p.Username, Team: team}, true

	case types.EvtBanChampion, types.EvtPickChampion:
		var p types.SelectionPayload
		if err := json.Unmarshal(cm.Data, &p); err != nil {
			return nil, false
		}
		team, ok := engine.ParseTeam(p.Team)
		if !ok {
			return nil, false
		}
		typ := engine.CmdPickChampion
		if cm.Type == types.EvtBanChampion {
			typ = engine.CmdBanChampion
		}
		return hub.SelectChampion{SessionID: sid, RoomName: p.RoomName, Team: team, Type: typ, ChampionID: p.ChampionID}, true

	default:
		return nil, false
	}
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
