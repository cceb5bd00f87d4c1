// Package live implements the streaming dialogue session: a duplex
// voice channel to the remote conversation service plus the gapless
// playback queue for its synthesized replies.
package live

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/firstuse/dialogue/pkg/audio/pcm"
)

// State is the session lifecycle position.
type State int32

const (
	Disconnected State = iota
	Connecting
	Open
	Closed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// instruction is sent once at connect time. The remote voice keeps its
// replies short and never slips into teacher mode.
const instruction = "You are a relaxed conversation partner. Reply briefly, " +
	"in fewer than 10 words. Never correct grammar or evaluate what was said. " +
	"React naturally, the way a friend would."

const (
	defaultHandshakeTimeout = 15 * time.Second

	// wire event types, both directions
	typeSetup       = "setup"
	typeAudio       = "audio"
	typeTranscript  = "transcript"
	typeInterrupted = "interrupted"
)

type clientEvent struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`
	// setup
	Instruction string `json:"instruction,omitempty"`
	// audio
	Audio      string `json:"audio,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
}

type serverEvent struct {
	Type  string `json:"type"`
	Audio string `json:"audio,omitempty"`
	Text  string `json:"text,omitempty"`
}

// Options configures a session. OnTranscript and OnInterrupted are
// invoked from the session's read goroutine and must not block.
type Options struct {
	// URL is the websocket endpoint of the voice service.
	URL string

	// Token, when set, is sent as a bearer Authorization header.
	Token string

	// HandshakeTimeout bounds the dial. Defaults to 15s.
	HandshakeTimeout time.Duration

	// Playback receives inbound synthesized audio. Required.
	Playback *Playback

	// OnTranscript receives each inbound transcript line.
	OnTranscript func(text string)

	// OnInterrupted fires after inbound audio has been flushed.
	OnInterrupted func()
}

// Session is one duplex voice channel. Exactly one open session exists
// per logged-in identity; it is not reusable after Close, reconnect by
// dialing a fresh one.
type Session struct {
	conn *websocket.Conn
	opts Options

	state atomic.Int32

	writeMu   sync.Mutex
	closeCh   chan struct{}
	closeOnce sync.Once
}

// Connect dials the voice service, sends the behavioral setup event
// and starts the background reader. The returned session is Open.
func Connect(ctx context.Context, opts Options) (*Session, error) {
	if opts.URL == "" {
		return nil, errors.New("live: endpoint URL required")
	}
	if opts.Playback == nil {
		return nil, errors.New("live: playback queue required")
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = defaultHandshakeTimeout
	}

	s := &Session{opts: opts, closeCh: make(chan struct{})}
	s.state.Store(int32(Connecting))

	headers := http.Header{}
	if opts.Token != "" {
		headers.Set("Authorization", "Bearer "+opts.Token)
	}
	dialer := websocket.Dialer{HandshakeTimeout: opts.HandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, opts.URL, headers)
	if err != nil {
		s.state.Store(int32(Disconnected))
		if resp != nil {
			return nil, fmt.Errorf("live: connect failed (http %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("live: connect failed: %w", err)
	}
	s.conn = conn

	if err := s.sendEvent(clientEvent{
		EventID:     newEventID(),
		Type:        typeSetup,
		Instruction: instruction,
	}); err != nil {
		conn.Close()
		s.state.Store(int32(Disconnected))
		return nil, fmt.Errorf("live: setup failed: %w", err)
	}

	s.state.Store(int32(Open))
	go s.readLoop()
	return s, nil
}

func newEventID() string {
	return "evt_" + uuid.New().String()[:12]
}

// State returns the current lifecycle position.
func (s *Session) State() State {
	return State(s.state.Load())
}

// SendAudio forwards one captured 16 kHz mono frame. Frames sent
// before the channel is open or after close are dropped silently,
// never queued.
func (s *Session) SendAudio(frame []int16) error {
	if s.State() != Open {
		return nil
	}
	return s.sendEvent(clientEvent{
		EventID:    newEventID(),
		Type:       typeAudio,
		Audio:      base64.StdEncoding.EncodeToString(pcm.EncodeInt16LE(frame)),
		SampleRate: pcm.L16Mono16K.SampleRate(),
	})
}

func (s *Session) sendEvent(ev clientEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("live: marshal event: %w", err)
	}
	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		slog.Debug("live: send", "event", truncate(string(data), 256))
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("live: send event: %w", err)
	}
	return nil
}

// Close requests a graceful shutdown. Idempotent; SendAudio calls
// after Close are no-ops.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.state.Store(int32(Closed))
		close(s.closeCh)

		s.writeMu.Lock()
		werr := s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.writeMu.Unlock()
		if werr != nil && !errors.Is(werr, websocket.ErrCloseSent) {
			slog.Debug("live: close handshake skipped", "err", werr)
		}
		err = s.conn.Close()
	})
	return err
}

func (s *Session) readLoop() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.closeCh:
			default:
				slog.Warn("live: transport closed", "err", err)
				s.state.Store(int32(Closed))
			}
			return
		}
		if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
			slog.Debug("live: recv", "event", truncate(string(data), 256))
		}

		var ev serverEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			slog.Warn("live: drop malformed event", "err", err)
			continue
		}
		switch ev.Type {
		case typeAudio:
			s.opts.Playback.ScheduleChunk(ev.Audio)
		case typeTranscript:
			if s.opts.OnTranscript != nil {
				s.opts.OnTranscript(ev.Text)
			}
		case typeInterrupted:
			s.opts.Playback.FlushAll()
			if s.opts.OnInterrupted != nil {
				s.opts.OnInterrupted()
			}
		default:
			slog.Debug("live: ignore event", "type", ev.Type)
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
