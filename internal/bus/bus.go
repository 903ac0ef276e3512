package bus

import (
	"net/url"
	"sync"

	"go.uber.org/zap"
)

// Topic identifies one of the closed set of broadcast channels between the
// browser-side observers and the rest of the agent.
type Topic string

const (
	// TopicProductDetected carries raw product payloads from the interceptor.
	TopicProductDetected Topic = "product-data-detected"
	// TopicAgentDetected carries liveness announcements for the discovery
	// subsystem.
	TopicAgentDetected Topic = "extension-detected"
)

// Event is a single broadcast. Origin records the page origin the event was
// observed on and is validated before delivery.
type Event struct {
	Topic   Topic
	Origin  string
	Payload any
}

// Bus fans events out to subscribers. Events whose origin does not match the
// origin the bus was built for are rejected outright; a payload claiming to
// come from another origin must never reach a subscriber.
type Bus struct {
	origin string
	logger *zap.Logger

	mu   sync.RWMutex
	subs map[Topic][]chan Event
}

func New(origin string, logger *zap.Logger) *Bus {
	return &Bus{
		origin: origin,
		logger: logger,
		subs:   make(map[Topic][]chan Event),
	}
}

// Subscribe returns a channel receiving every accepted event for the topic.
// Delivery keeps the newest event: when a subscriber lags, the oldest queued
// event is discarded to make room.
func (b *Bus) Subscribe(topic Topic) <-chan Event {
	ch := make(chan Event, 8)
	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], ch)
	b.mu.Unlock()
	return ch
}

// Publish delivers the event to all subscribers of its topic, dropping it if
// the origin does not match.
func (b *Bus) Publish(ev Event) {
	if ev.Origin != b.origin {
		b.logger.Warn("dropping event from unexpected origin",
			zap.String("topic", string(ev.Topic)),
			zap.String("origin", ev.Origin))
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[ev.Topic] {
		for {
			select {
			case ch <- ev:
			default:
				// Full buffer: shed the oldest event and retry.
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}

// OriginOf reduces a URL to its origin (scheme://host).
func OriginOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
