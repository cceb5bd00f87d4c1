package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/genai"

	"github.com/firstuse/dialogue/pkg/audio/capture"
	"github.com/firstuse/dialogue/pkg/audio/pcm"
	"github.com/firstuse/dialogue/pkg/cli"
	"github.com/firstuse/dialogue/pkg/drill"
	"github.com/firstuse/dialogue/pkg/live"
	"github.com/firstuse/dialogue/pkg/matrix"
	"github.com/firstuse/dialogue/pkg/session"
)

var (
	runUser        string
	runProfession  string
	runAudioIn     string
	runAudioOut    string
	runAutoAdvance bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Interactive practice session",
	Long: `Start a practice session. When voice_url is configured the session
streams your audio to the live partner and plays its replies; captured
input is read as raw 16-bit 16 kHz mono PCM from --audio-in.

Keys (enter after each):
  <enter>  next sentence
  r        start/stop recording (drives the rep/set timer)
  p        pause the timer without losing the rep
  x        mark the current sentence as spoken
  q        quit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		store, closeStore, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		if store.Profile() == nil && runUser == "" {
			return fmt.Errorf("no identity yet; pass --user <name>")
		}

		// Output clock and sink for the partner's voice. Replies are
		// appended to --audio-out as raw 24 kHz PCM.
		clock := newWallClock()
		var sink live.Sink = discardSink{}
		if runAudioOut != "" {
			f, err := os.Create(runAudioOut)
			if err != nil {
				return fmt.Errorf("open audio out: %w", err)
			}
			defer f.Close()
			sink = &fileSink{w: f}
		}
		playback := live.NewPlayback(clock, sink)

		opts := session.Options{
			Store:       store,
			Playback:    playback,
			OutputClock: clock,
		}
		if runAutoAdvance {
			opts.Advance = session.AdvanceAuto
		}
		if cfg.VoiceURL != "" {
			opts.Dial = func(ctx context.Context, lo live.Options) (session.Voice, error) {
				lo.URL = cfg.VoiceURL
				lo.Token = cfg.VoiceToken
				return live.Connect(ctx, lo)
			}
		}
		var busy func() bool
		if cfg.GeminiAPIKey != "" {
			client, err := genai.NewClient(cmd.Context(), &genai.ClientConfig{
				APIKey:  cfg.GeminiAPIKey,
				Backend: genai.BackendGeminiAPI,
			})
			if err != nil {
				return fmt.Errorf("gemini client: %w", err)
			}
			orch := matrix.NewOrchestrator(
				&matrix.GeminiGenerator{Client: client, Model: cfg.GenerationModel}, store)
			opts.Generate = func(ctx context.Context, profession string) {
				if _, err := orch.Generate(ctx, profession); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "generation: %v\n", err)
				}
			}
			busy = orch.Busy
		}

		scope := session.NewScope(opts)
		if err := scope.Login(cmd.Context(), runUser, runProfession); err != nil {
			return err
		}
		// Quitting keeps durable progress; only an explicit reset
		// clears it.
		defer scope.Close()

		return practiceLoop(cmd, scope, busy)
	},
}

// practiceLoop drives the terminal session until q or EOF.
func practiceLoop(cmd *cobra.Command, scope *session.Scope, busy func() bool) error {
	out := cmd.OutOrStdout()
	styles := cli.NewStyles(cli.DefaultTheme)

	mic := newMic(scope)

	timer := drill.New()
	var timerMu sync.Mutex
	stopTicker := make(chan struct{})
	defer close(stopTicker)
	go func() {
		ticker := time.NewTicker(drill.TickPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-stopTicker:
				return
			case <-ticker.C:
				timerMu.Lock()
				if timer.Tick(drill.TickPeriod.Seconds()) {
					fmt.Fprintf(out, "  ✓ rep done · set %d rep %d\n", timer.Set(), timer.Rep())
				}
				timerMu.Unlock()
			}
		}
	}()

	render := func() {
		a, ok := scope.CurrentAtom()
		if !ok {
			fmt.Fprintln(out, "practice sequence is empty")
			return
		}
		timerMu.Lock()
		var spans [][2]int
		for _, sp := range a.KeywordSpans() {
			spans = append(spans, [2]int{sp.Start, sp.End})
		}
		view := cli.PracticeView{
			Sentence:    a.Native,
			Spans:       spans,
			Gloss:       a.Intent,
			Fuzzy:       a.Fuzzy,
			Set:         timer.Set(),
			Rep:         timer.Rep(),
			Remaining:   timer.Remaining(),
			SpeakStatus: scope.SpeakStatus(),
			Caught:      scope.TakeCaught(),
			Level:       mic.Level(),
			Responses:   scope.Responses(),
			Busy:        busy != nil && busy(),
		}
		timerMu.Unlock()
		fmt.Fprintln(out, styles.RenderPractice(view, 64))
	}

	render()
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "q":
			mic.Stop()
			return nil
		case "r":
			a, ok := scope.CurrentAtom()
			if !ok {
				continue
			}
			timerMu.Lock()
			if mic.Running() {
				mic.Stop()
				timer.Pause()
			} else if err := mic.Start(); err == nil {
				timer.Begin(a.WordCount())
			}
			timerMu.Unlock()
		case "p":
			timerMu.Lock()
			timer.Pause()
			timerMu.Unlock()
			mic.Stop()
		case "x":
			if first, err := scope.ExposeCurrent(cmd.Context()); err == nil && first {
				fmt.Fprintln(out, styles.Label.Render("  first time out loud ✓"))
			}
		case "":
			mic.Stop()
			timerMu.Lock()
			timer.Exit()
			timerMu.Unlock()
			scope.NextAtom()
		}
		render()
	}
	mic.Stop()
	return scanner.Err()
}

// mic wraps the capture adapter over the --audio-in stream. Without
// --audio-in recording toggles the timer only, so the on/off state is
// tracked here rather than on the capture adapter.
type mic struct {
	cap *capture.Capture
	on  bool
}

func newMic(scope *session.Scope) *mic {
	if runAudioIn == "" {
		return &mic{}
	}
	open := func(pcm.Format) (capture.Source, error) {
		var r io.ReadCloser
		if runAudioIn == "-" {
			r = io.NopCloser(os.Stdin)
		} else {
			f, err := os.Open(runAudioIn)
			if err != nil {
				return nil, err
			}
			r = f
		}
		return &readerSource{r: r}, nil
	}
	return &mic{cap: capture.New(open, capture.Options{
		OnFrame: scope.SendFrame,
	})}
}

func (m *mic) Start() error {
	if m.cap != nil {
		if err := m.cap.Start(); err != nil {
			return err
		}
	}
	m.on = true
	return nil
}

func (m *mic) Stop() {
	if m.cap != nil {
		m.cap.Stop()
	}
	m.on = false
}

func (m *mic) Running() bool {
	return m.on
}

func (m *mic) Level() float64 {
	if m.cap == nil {
		return 0
	}
	return m.cap.Level()
}

// readerSource adapts a raw s16le byte stream into a capture source,
// pacing reads at the capture rate.
type readerSource struct {
	r    io.ReadCloser
	last time.Time
}

func (s *readerSource) Read(buf []int16) (int, error) {
	raw := make([]byte, len(buf)*2)
	n, err := io.ReadFull(s.r, raw)
	if n == 0 {
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return 0, err
	}
	samples := pcm.DecodeInt16LE(raw[:n])
	copy(buf, samples)

	// Pace file input to real time so the remote end hears speech, not
	// a burst.
	d := pcm.L16Mono16K.Duration(int64(n))
	if !s.last.IsZero() {
		if wait := d - time.Since(s.last); wait > 0 {
			time.Sleep(wait)
		}
	}
	s.last = time.Now()
	return len(samples), nil
}

func (s *readerSource) Close() error {
	return s.r.Close()
}

// wallClock is the output timeline for CLI playback.
type wallClock struct {
	start time.Time
}

func newWallClock() *wallClock {
	return &wallClock{start: time.Now()}
}

func (c *wallClock) Now() float64 {
	return time.Since(c.start).Seconds()
}

// Stop satisfies the session's output clock teardown. Nothing to
// release for a wall clock.
func (c *wallClock) Stop() error { return nil }

// discardSink drops partner audio when no --audio-out is given.
type discardSink struct{}

func (discardSink) PlayAt(samples []int16, startAt float64, done func()) (live.Handle, error) {
	done()
	return noopHandle{}, nil
}

// fileSink appends scheduled audio to a file in arrival order.
type fileSink struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *fileSink) PlayAt(samples []int16, startAt float64, done func()) (live.Handle, error) {
	s.mu.Lock()
	_, err := s.w.Write(pcm.EncodeInt16LE(samples))
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	done()
	return noopHandle{}, nil
}

type noopHandle struct{}

func (noopHandle) Stop() {}

func init() {
	runCmd.Flags().StringVar(&runUser, "user", "", "identity name for first login")
	runCmd.Flags().StringVar(&runProfession, "profession", "", "profession used to personalize content")
	runCmd.Flags().StringVar(&runAudioIn, "audio-in", "", "raw s16le 16 kHz mono input ('-' for stdin)")
	runCmd.Flags().StringVar(&runAudioOut, "audio-out", "", "append partner audio as raw s16le 24 kHz mono")
	runCmd.Flags().BoolVar(&runAutoAdvance, "auto-advance", false, "advance when the speak counter saturates")
	rootCmd.AddCommand(runCmd)
}
