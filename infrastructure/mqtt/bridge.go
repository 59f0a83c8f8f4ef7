package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"textmacro-go/core/command"
	"textmacro-go/core/event"
	"textmacro-go/core/eventbus"
)

// commandTimeout bounds one remote command.
const commandTimeout = 10 * time.Second

// Publisher sends payloads to topics.
type Publisher interface {
	Publish(topic string, payload []byte, retained bool) error
}

// Dispatcher executes commands.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd command.Command) error
}

// Bridge forwards bus events to MQTT and turns command messages into
// dispatched commands.
type Bridge struct {
	pub        Publisher
	topics     Topics
	dispatcher Dispatcher
	logger     *slog.Logger

	bus            eventbus.EventBus
	subscriptionID string
}

// NewBridge creates a bridge. dispatcher may be nil to disable remote commands.
func NewBridge(pub Publisher, topics Topics, dispatcher Dispatcher, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		pub:        pub,
		topics:     topics,
		dispatcher: dispatcher,
		logger:     logger.With("component", "mqtt_bridge"),
	}
}

// Attach subscribes the bridge to bus.
func (b *Bridge) Attach(bus eventbus.EventBus) {
	b.bus = bus
	b.subscriptionID = bus.Subscribe(b.HandleEvent)
}

// Detach removes the bus subscription.
func (b *Bridge) Detach() {
	if b.bus != nil && b.subscriptionID != "" {
		b.bus.Unsubscribe(b.subscriptionID)
		b.subscriptionID = ""
	}
}

// HandleEvent publishes e if it has an MQTT form.
func (b *Bridge) HandleEvent(e event.Event) {
	msg, ok := b.messageFor(e)
	if !ok {
		return
	}
	payload, err := json.Marshal(msg.body)
	if err != nil {
		b.logger.Warn("Failed to encode event", "event", e.EventName(), "error", err)
		return
	}
	if err := b.pub.Publish(msg.topic, payload, msg.retained); err != nil {
		b.logger.Debug("Failed to publish event", "event", e.EventName(), "topic", msg.topic, "error", err)
	}
}

type message struct {
	topic    string
	body     map[string]any
	retained bool
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (b *Bridge) messageFor(e event.Event) (message, bool) {
	switch evt := e.(type) {
	case *event.MonitorStateChanged:
		return message{
			topic:    b.topics.MonitorState(),
			body:     map[string]any{"state": evt.NewState.String(), "previous": evt.OldState.String()},
			retained: true,
		}, true
	case *event.MonitorStarted:
		return message{
			topic: b.topics.MonitorEvent("started"),
			body:  map[string]any{"run_id": evt.RunID, "set": evt.SetName, "regions": evt.RegionCount},
		}, true
	case *event.MonitorStopped:
		return message{
			topic: b.topics.MonitorEvent("stopped"),
			body: map[string]any{"run_id": evt.RunID, "set": evt.SetName, "reason": evt.Reason.String(),
				"cycles": evt.Cycles, "error": errString(evt.Error)},
		}, true
	case *event.RegionTriggered:
		return message{
			topic: b.topics.RegionEvent(evt.RegionName(), "triggered"),
			body: map[string]any{"run_id": evt.RunID, "set": evt.SetName, "text": evt.DetectedText,
				"comparison": evt.ComparisonText, "reason": evt.Reason, "at": evt.At.UTC().Format(time.RFC3339Nano)},
		}, true
	case *event.RegionFailed:
		return message{
			topic: b.topics.RegionEvent(evt.RegionName(), "failed"),
			body:  map[string]any{"run_id": evt.RunID, "stage": evt.Stage, "error": errString(evt.Error)},
		}, true
	case *event.ActionFailed:
		return message{
			topic: b.topics.RegionEvent(evt.RegionName(), "action_failed"),
			body:  map[string]any{"index": evt.Index, "kind": evt.Kind, "error": errString(evt.Error)},
		}, true
	case *event.RegionProbed:
		return message{
			topic: b.topics.RegionEvent(evt.RegionName(), "probed"),
			body: map[string]any{"text": evt.Text, "comparison": evt.ComparisonText,
				"triggered": evt.Triggered, "reason": evt.Reason, "error": errString(evt.Error)},
		}, true
	default:
		// Cycle stats are high-frequency and go to metrics instead.
		return message{}, false
	}
}

// commandMessage is the inbound command payload, for example
// {"command":"start","set":"battle"} or {"command":"probe","region":"ok"}.
type commandMessage struct {
	Command string `json:"command"`
	Set     string `json:"set,omitempty"`
	Region  string `json:"region,omitempty"`
}

// ParseCommand decodes a command message.
func ParseCommand(payload []byte) (command.Command, error) {
	var msg commandMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}

	switch strings.ToLower(strings.TrimSpace(msg.Command)) {
	case "start":
		return &command.StartMonitor{SetName: msg.Set}, nil
	case "stop":
		return &command.StopMonitor{}, nil
	case "emergency_stop", "stop!":
		return &command.EmergencyStop{}, nil
	case "toggle":
		return &command.ToggleMonitor{}, nil
	case "load":
		if msg.Set == "" {
			return nil, fmt.Errorf("%w: load needs a set", ErrInvalidCommand)
		}
		return &command.LoadSet{Name: msg.Set}, nil
	case "probe", "test":
		if msg.Region == "" {
			return nil, fmt.Errorf("%w: probe needs a region", ErrInvalidCommand)
		}
		return command.NewProbeRegion(msg.Region), nil
	default:
		return nil, fmt.Errorf("%w: unknown command %q", ErrInvalidCommand, msg.Command)
	}
}

// HandleCommand is a MessageHandler for the command topic. The outcome is
// published to the command result topic.
func (b *Bridge) HandleCommand(topic string, payload []byte) error {
	if b.dispatcher == nil {
		return fmt.Errorf("%w: remote commands disabled", ErrInvalidCommand)
	}

	cmd, err := ParseCommand(payload)
	name := ""
	if err == nil {
		name = cmd.CommandName()
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		err = b.dispatcher.Dispatch(ctx, cmd)
		cancel()
	}
	b.logger.Info("Remote command", "command", name, "error", err)

	result, _ := json.Marshal(map[string]any{"command": name, "ok": err == nil, "error": errString(err)})
	if pubErr := b.pub.Publish(b.topics.CommandResult(), result, false); pubErr != nil {
		b.logger.Debug("Failed to publish command result", "error", pubErr)
	}
	return err
}
