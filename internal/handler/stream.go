package handler

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"harvestcast/internal/lifecycle"
)

// StreamHub fans lifecycle events out to websocket subscribers. A slow
// subscriber drops events instead of blocking the publisher.
type StreamHub struct {
	Logger *zap.Logger

	mu   sync.Mutex
	subs map[chan lifecycle.Event]struct{}
}

func NewStreamHub(logger *zap.Logger) *StreamHub {
	return &StreamHub{
		Logger: logger,
		subs:   map[chan lifecycle.Event]struct{}{},
	}
}

func (h *StreamHub) Register(r *gin.Engine) {
	r.GET("/api/v1/stream", h.stream)
}

// Publish implements lifecycle.EventSink.
func (h *StreamHub) Publish(event lifecycle.Event) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

func (h *StreamHub) subscribe() chan lifecycle.Event {
	ch := make(chan lifecycle.Event, 64)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *StreamHub) unsubscribe(ch chan lifecycle.Event) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

func (h *StreamHub) stream(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("websocket accept failed", zap.Error(err))
		}
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-ch:
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, event)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
