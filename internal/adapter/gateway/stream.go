package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"salesintel/internal/domain"
)

const streamBuffer = 64

// streamClient is one connected event stream consumer.
type streamClient struct {
	ws        *websocket.Conn
	sendCh    chan domain.Event
	done      chan struct{}
	closeOnce sync.Once
}

func (c *streamClient) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// subscribeStream forwards every bus event to connected clients. Slow
// clients lose events rather than stall the bus.
func (s *Server) subscribeStream(ctx context.Context) {
	unsub := s.deps.Bus.SubscribeAll(func(_ context.Context, ev domain.Event) {
		s.clients.Range(func(_, v any) bool {
			c := v.(*streamClient)
			select {
			case c.sendCh <- ev:
			default:
				s.logger.Warn("gateway: dropped event for slow stream client", "event", string(ev.Type))
			}
			return true
		})
	})
	s.unsubBus = unsub
	go func() {
		<-ctx.Done()
		unsub()
	}()
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost", "localhost:*", "127.0.0.1", "127.0.0.1:*", "[::1]", "[::1]:*"},
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}

	id := s.nextID.Add(1)
	c := &streamClient{ws: ws, sendCh: make(chan domain.Event, streamBuffer), done: make(chan struct{})}
	s.clients.Store(id, c)
	s.logger.Info("stream client connected", "conn_id", id)

	// Clients only listen; CloseRead handles control frames and reports
	// the peer going away through ctx.
	ctx := ws.CloseRead(r.Context())
	s.writeLoop(ctx, c)

	c.close()
	s.clients.Delete(id)
	ws.Close(websocket.StatusNormalClosure, "")
	s.logger.Info("stream client disconnected", "conn_id", id)
}

func (s *Server) writeLoop(ctx context.Context, c *streamClient) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case ev := <-c.sendCh:
			wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(wctx, c.ws, ev)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// StreamClients reports connected event stream clients.
func (s *Server) StreamClients() int {
	n := 0
	s.clients.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (s *Server) closeStreams() {
	s.clients.Range(func(key, v any) bool {
		c := v.(*streamClient)
		c.close()
		c.ws.Close(websocket.StatusGoingAway, "server shutting down")
		s.clients.Delete(key)
		return true
	})
}
