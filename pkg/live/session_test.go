package live

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// voiceStub is a minimal in-process voice service. It records inbound
// client events and lets tests push server events.
type voiceStub struct {
	upgrader websocket.Upgrader
	inbound  chan clientEvent
	conns    chan *websocket.Conn
}

func newVoiceStub() *voiceStub {
	return &voiceStub{
		inbound: make(chan clientEvent, 64),
		conns:   make(chan *websocket.Conn, 1),
	}
}

func (v *voiceStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := v.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	v.conns <- conn
	for {
		var ev clientEvent
		if err := conn.ReadJSON(&ev); err != nil {
			return
		}
		v.inbound <- ev
	}
}

func (v *voiceStub) push(t *testing.T, conn *websocket.Conn, ev serverEvent) {
	t.Helper()
	data, _ := json.Marshal(ev)
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("push event: %v", err)
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func recvEvent(t *testing.T, ch chan clientEvent) clientEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for client event")
		return clientEvent{}
	}
}

func dialStub(t *testing.T, stub *voiceStub, opts Options) (*Session, *websocket.Conn) {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	opts.URL = wsURL(srv)
	if opts.Playback == nil {
		opts.Playback = NewPlayback(&fakeClock{}, &fakeSink{})
	}
	s, err := Connect(context.Background(), opts)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, <-stub.conns
}

func TestSession_SetupSentOnConnect(t *testing.T) {
	stub := newVoiceStub()
	s, _ := dialStub(t, stub, Options{})

	if s.State() != Open {
		t.Errorf("State = %v; want open", s.State())
	}
	ev := recvEvent(t, stub.inbound)
	if ev.Type != typeSetup {
		t.Fatalf("first event type = %q; want setup", ev.Type)
	}
	if !strings.Contains(ev.Instruction, "Never correct grammar") {
		t.Errorf("setup instruction missing behavioral rule: %q", ev.Instruction)
	}
}

func TestSession_SendAudio(t *testing.T) {
	stub := newVoiceStub()
	s, _ := dialStub(t, stub, Options{})
	recvEvent(t, stub.inbound) // setup

	if err := s.SendAudio(make([]int16, 2048)); err != nil {
		t.Fatalf("SendAudio: %v", err)
	}
	ev := recvEvent(t, stub.inbound)
	if ev.Type != typeAudio {
		t.Fatalf("event type = %q; want audio", ev.Type)
	}
	if ev.SampleRate != 16000 {
		t.Errorf("sample rate = %d; want 16000", ev.SampleRate)
	}
	if ev.Audio == "" {
		t.Error("audio payload empty")
	}
}

func TestSession_InboundDispatch(t *testing.T) {
	var transcripts []string
	interrupted := make(chan struct{}, 1)
	sink := &fakeSink{}
	playback := NewPlayback(&fakeClock{}, sink)
	got := make(chan string, 8)

	stub := newVoiceStub()
	_, conn := dialStub(t, stub, Options{
		Playback:      playback,
		OnTranscript:  func(text string) { got <- text },
		OnInterrupted: func() { interrupted <- struct{}{} },
	})

	stub.push(t, conn, serverEvent{Type: typeAudio, Audio: chunk(2400)})
	stub.push(t, conn, serverEvent{Type: typeTranscript, Text: "nice day"})

	select {
	case text := <-got:
		transcripts = append(transcripts, text)
	case <-time.After(2 * time.Second):
		t.Fatal("transcript not delivered")
	}
	if transcripts[0] != "nice day" {
		t.Errorf("transcript = %q", transcripts[0])
	}

	stub.push(t, conn, serverEvent{Type: typeInterrupted})
	select {
	case <-interrupted:
	case <-time.After(2 * time.Second):
		t.Fatal("interruption not delivered")
	}
	if playback.ActiveCount() != 0 || playback.Cursor() != 0 {
		t.Error("interruption did not flush playback")
	}
	if len(sink.played) == 0 || !sink.played[0].handle.stopped {
		t.Error("scheduled audio not stopped on interruption")
	}
}

func TestSession_CloseIdempotentAndSendNoops(t *testing.T) {
	stub := newVoiceStub()
	s, _ := dialStub(t, stub, Options{})
	recvEvent(t, stub.inbound)

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if s.State() != Closed {
		t.Errorf("State = %v; want closed", s.State())
	}
	if err := s.SendAudio(make([]int16, 2048)); err != nil {
		t.Errorf("SendAudio after close = %v; want nil no-op", err)
	}
}
