package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"lightning-gateway/internal/domain/entities"
	domainerrors "lightning-gateway/internal/domain/errors"
	"lightning-gateway/internal/eventbus"
	"lightning-gateway/internal/interfaces/http/middleware"
	"lightning-gateway/internal/interfaces/http/response"
	"lightning-gateway/internal/metrics"
)

const keepaliveInterval = 15 * time.Second
const replayPageSize = 500

// EventReplayer is the subset of the event log the stream handler
// needs to bridge a reconnect's Last-Event-ID to the live feed.
type EventReplayer interface {
	ListSince(ctx context.Context, clientID uuid.UUID, afterSeq int64, limit int) ([]*entities.PaymentEvent, error)
}

// EventSubscriber is the subset of the in-process bus the stream
// handler needs.
type EventSubscriber interface {
	Subscribe(clientID uuid.UUID) (<-chan eventbus.Event, func())
}

// StreamHandler serves the long-lived server-sent-events feed.
type StreamHandler struct {
	events EventReplayer
	bus    EventSubscriber
}

func NewStreamHandler(events EventReplayer, bus EventSubscriber) *StreamHandler {
	return &StreamHandler{events: events, bus: bus}
}

type streamPayload struct {
	PaymentID string          `json:"payment_id"`
	Status    entities.Status `json:"status"`
	Reason    string          `json:"reason,omitempty"`
}

// Stream opens a text/event-stream connection for the authenticated
// client: it first replays persisted events with seq greater than
// Last-Event-ID, then switches to live delivery, emitting a keepalive
// frame every 15s of idleness.
// GET /api/v1/events/stream
func (h *StreamHandler) Stream(c *gin.Context) {
	clientID, ok := middleware.GetClientID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("client not authenticated"))
		return
	}

	afterSeq, err := lastEventID(c)
	if err != nil {
		response.Error(c, domainerrors.BadRequest("invalid Last-Event-ID"))
		return
	}

	ch, unsubscribe := h.bus.Subscribe(clientID)
	metrics.StreamSubscribers.Inc()
	defer metrics.StreamSubscribers.Dec()
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	w := c.Writer
	flusher, canFlush := http.ResponseWriter(w).(http.Flusher)
	ctx := c.Request.Context()

	for {
		events, err := h.events.ListSince(ctx, clientID, afterSeq, replayPageSize)
		if err != nil {
			return
		}
		if len(events) == 0 {
			break
		}
		for _, ev := range events {
			if !writeEvent(w, ev.Seq, ev.Type, streamPayload{PaymentID: ev.PaymentID.String(), Status: ev.Status, Reason: ev.Reason}) {
				return
			}
			afterSeq = ev.Seq
		}
		if canFlush {
			flusher.Flush()
		}
		if len(events) < replayPageSize {
			break
		}
	}
	if canFlush {
		flusher.Flush()
	}

	timer := time.NewTimer(keepaliveInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, open := <-ch:
			if !open {
				return
			}
			if !writeEvent(w, ev.Seq, ev.Type, streamPayload{PaymentID: ev.PaymentID.String(), Status: ev.Status, Reason: ev.Reason}) {
				return
			}
			if canFlush {
				flusher.Flush()
			}
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(keepaliveInterval)
		case <-timer.C:
			if !writeKeepalive(w) {
				return
			}
			if canFlush {
				flusher.Flush()
			}
			timer.Reset(keepaliveInterval)
		}
	}
}

func writeEvent(w io.Writer, seq int64, evType entities.EventType, payload streamPayload) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		return false
	}
	frame := fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, evType, data)
	_, err = w.Write([]byte(frame))
	return err == nil
}

func writeKeepalive(w io.Writer) bool {
	_, err := w.Write([]byte("event: keepalive\ndata: {}\n\n"))
	return err == nil
}

func lastEventID(c *gin.Context) (int64, error) {
	header := c.GetHeader("Last-Event-ID")
	if header == "" {
		return 0, nil
	}
	return strconv.ParseInt(header, 10, 64)
}
