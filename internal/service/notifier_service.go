package service

import (
	"context"
	"strings"

	"ai-research-agent-be/internal/pkg/logger"
	"ai-research-agent-be/internal/websocket"
	"ai-research-agent-be/pkg/events"
	pktNats "ai-research-agent-be/pkg/nats"
)

type INotifierService interface {
	Start() error
}

// notifierService relays bus events (research completions, document
// ingestions) to connected websocket clients. Running it off the NATS
// stream means every instance in a cluster sees every event.
type notifierService struct {
	subscriber *pktNats.Subscriber
	hub        *websocket.Hub
	logger     logger.ILogger
}

func NewNotifierService(subscriber *pktNats.Subscriber, hub *websocket.Hub, log logger.ILogger) INotifierService {
	return &notifierService{
		subscriber: subscriber,
		hub:        hub,
		logger:     log,
	}
}

func (s *notifierService) Start() error {
	return s.subscriber.Subscribe("events.>", "ws-notifier", s.handle)
}

func (s *notifierService) handle(_ context.Context, event events.Event) error {
	eventType := strings.TrimPrefix(event.EventType(), "events.")

	s.logger.Info("Notifier", "Relaying event to websocket clients", map[string]interface{}{
		"event": eventType,
	})

	s.hub.Broadcast(strings.ToLower(eventType), event.Payload())
	return nil
}
