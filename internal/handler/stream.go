package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ticksim/internal/domain"
	"ticksim/internal/service"
)

// StreamHandler serves the market-data feed over websocket. Each
// connection becomes one scheduler subscriber, so slow clients only ever
// fall behind their own queue.
type StreamHandler struct {
	log       *zap.Logger
	marketSvc *service.MarketService
	upgrader  websocket.Upgrader
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(log *zap.Logger, marketSvc *service.MarketService) *StreamHandler {
	return &StreamHandler{
		log:       log.Named("stream"),
		marketSvc: marketSvc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// Stream handles GET /market/stream. An optional ?instrument= query
// restricts the feed to one instrument. The subscription lasts until the
// client disconnects.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	instrument := r.URL.Query().Get("instrument")
	if instrument != "" {
		if _, err := h.marketSvc.Depth(instrument); err != nil {
			WriteDomainError(w, err)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	sub := &streamSubscriber{log: h.log, conn: conn, filter: instrument}
	if err := h.marketSvc.Subscribe(sub); err != nil {
		h.log.Warn("stream subscribe failed", zap.Error(err))
		conn.Close()
		return
	}

	// Block on reads until the client goes away; the subscriber's worker
	// goroutine does all the writing.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.marketSvc.Unsubscribe(sub)
	conn.Close()
}

// streamSubscriber writes snapshots to one websocket connection. Only the
// subscriber's worker goroutine writes, so no write lock is needed.
type streamSubscriber struct {
	log    *zap.Logger
	conn   *websocket.Conn
	filter string
}

// OnSnapshot implements the scheduler subscriber contract.
func (s *streamSubscriber) OnSnapshot(snap *domain.MarketDepthSnapshot) {
	if s.filter != "" && s.filter != snap.InstrumentID {
		return
	}
	if err := s.conn.WriteJSON(newDepthView(snap)); err != nil {
		s.log.Debug("stream write failed", zap.Error(err))
	}
}
