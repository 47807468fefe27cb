// internal/httpserver/ws.go
//
// Websocket endpoint (/ws).
// Responsibilities:
//   - Accept connections from allowed origins and register them with the
//     session router.
//   - Reader loop: decode envelopes and hand them to the router.
//   - Writer goroutine: drain the per-client queue, ping every 15s.
//
// A client whose queue is full loses events; it can resync with getHand.

package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"nhooyr.io/websocket"

	"github.com/robalobadob/millebornes/internal/session"
)

const (
	pingInterval = 15 * time.Second
	writeTimeout = 10 * time.Second
	sendBuffer   = 64
	maxMessage   = 16 << 10
)

// wsClient adapts one websocket connection to session.Client.
type wsClient struct {
	id   string
	send chan []byte
	done <-chan struct{}
}

func (c *wsClient) ID() string { return c.id }

// Send queues a message; a client that cannot keep up loses messages
// instead of stalling the game that is broadcasting.
func (c *wsClient) Send(m session.Outbound) {
	b, err := json.Marshal(m)
	if err != nil {
		log.Error().Err(err).Str("client", c.id).Str("event", m.Type).Msg("encode event")
		return
	}
	select {
	case c.send <- b:
	case <-c.done:
	default:
		log.Warn().Str("client", c.id).Str("event", m.Type).Msg("send buffer full, dropping event")
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.originHosts})
	if err != nil {
		log.Debug().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxMessage)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &wsClient{id: uuid.NewString(), send: make(chan []byte, sendBuffer), done: ctx.Done()}
	s.router.Connect(c)
	defer s.router.Disconnect(context.Background(), c)
	log.Info().Str("client", c.id).Str("remote", r.RemoteAddr).Msg("websocket connected")

	go s.writeLoop(ctx, cancel, conn, c)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			log.Debug().Err(err).Str("client", c.id).Msg("websocket read ended")
			break
		}
		var in session.Inbound
		if err := json.Unmarshal(data, &in); err != nil || in.Type == "" {
			c.Send(session.Outbound{Type: session.EvGameError, Data: session.ErrorPayload{
				Code:    "bad_request",
				Message: "expected {\"type\": ..., \"data\": ...}",
			}})
			continue
		}
		s.router.Handle(ctx, c, in)
	}
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
}

// writeLoop drains the client's queue and keeps the connection alive.
func (s *Server) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, c *wsClient) {
	defer cancel()
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.send:
			wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(wctx, websocket.MessageText, msg)
			wcancel()
			if err != nil {
				log.Debug().Err(err).Str("client", c.id).Msg("websocket write")
				return
			}
		case <-ping.C:
			pctx, pcancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pctx)
			pcancel()
			if err != nil {
				log.Debug().Err(err).Str("client", c.id).Msg("websocket ping")
				return
			}
		}
	}
}
