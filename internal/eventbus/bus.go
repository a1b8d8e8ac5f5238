package eventbus

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"lightning-gateway/internal/domain/entities"
)

// subscriberQueueSize bounds each subscriber's outbound channel; a
// subscriber that can't keep up is disconnected rather than allowed
// to block publication for everyone else.
const subscriberQueueSize = 64

// Event is what the bus fans out to subscribers; it mirrors the
// persisted PaymentEvent shape without requiring callers to depend on
// the repositories package.
type Event struct {
	ClientID  uuid.UUID
	Seq       int64
	Type      entities.EventType
	PaymentID uuid.UUID
	Status    entities.Status
	Reason    string
}

type subscriber struct {
	id uuid.UUID
	ch chan Event
}

// Bus is an in-process pub/sub fan-out keyed by client. It only
// distributes already-persisted events to live subscribers; the
// per-client log in Postgres is the durable record, read back for
// replay before a subscription attaches here.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]map[uuid.UUID]*subscriber
	logger *zap.Logger
}

func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		subs:   make(map[uuid.UUID]map[uuid.UUID]*subscriber),
		logger: logger,
	}
}

// Subscribe registers a new bounded channel for clientID and returns
// it along with an unsubscribe func the caller must defer.
func (b *Bus) Subscribe(clientID uuid.UUID) (<-chan Event, func()) {
	sub := &subscriber{id: uuid.Must(uuid.NewV7()), ch: make(chan Event, subscriberQueueSize)}

	b.mu.Lock()
	if b.subs[clientID] == nil {
		b.subs[clientID] = make(map[uuid.UUID]*subscriber)
	}
	b.subs[clientID][sub.id] = sub
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if clients, ok := b.subs[clientID]; ok {
			delete(clients, sub.id)
			if len(clients) == 0 {
				delete(b.subs, clientID)
			}
		}
	}
	return sub.ch, unsubscribe
}

// Publish fans ev out to every live subscriber for ev.ClientID. A
// subscriber whose channel is full is disconnected instead of
// blocking the publisher or the other subscribers.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	clients := b.subs[ev.ClientID]
	targets := make([]*subscriber, 0, len(clients))
	for _, s := range clients {
		targets = append(targets, s)
	}
	b.mu.RUnlock()

	for _, s := range targets {
		select {
		case s.ch <- ev:
		default:
			b.logger.Warn("subscriber queue full, disconnecting",
				zap.String("client_id", ev.ClientID.String()),
				zap.String("subscriber_id", s.id.String()),
			)
			b.disconnect(ev.ClientID, s.id)
		}
	}
}

func (b *Bus) disconnect(clientID, subID uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if clients, ok := b.subs[clientID]; ok {
		if s, ok := clients[subID]; ok {
			close(s.ch)
			delete(clients, subID)
		}
		if len(clients) == 0 {
			delete(b.subs, clientID)
		}
	}
}

// SubscriberCount reports the live subscriber count for clientID, for
// metrics gauges.
func (b *Bus) SubscriberCount(clientID uuid.UUID) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[clientID])
}
