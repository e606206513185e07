// Package pipeline runs one voice turn at a time: capture, transcription,
// chat completion and optional spoken reply.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"voxchat/audio"
	"voxchat/models"
)

type Capturer interface {
	Start() error
	Stop() (models.AudioBuffer, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, buf models.AudioBuffer, language string) (string, error)
}

type Completer interface {
	Complete(ctx context.Context, message string, history []models.Entry) (string, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) (models.AudioBuffer, error)
}

// LogSink persists appended entries.
type LogSink interface {
	AppendEntry(ctx context.Context, e models.Entry) error
}

// Deps are the collaborators of a Controller. Synthesizer, Player and Sink
// may be nil.
type Deps struct {
	Recorder    Capturer
	Transcriber Transcriber
	Chat        Completer
	Synthesizer Synthesizer
	Player      audio.Player
	Sink        LogSink
	Store       *Store
	Metrics     *Metrics
}

type Options struct {
	Language    string
	Voice       string
	ChatHistory bool // thread the whole log into every completion
}

type Controller struct {
	logger *slog.Logger
	deps   Deps
	opts   Options
	store  *Store

	mu   sync.Mutex
	turn uint64
	// last audio that went to transcription, kept for replay
	lastInput models.AudioBuffer
}

func NewController(logger *slog.Logger, deps Deps, opts Options) *Controller {
	if deps.Store == nil {
		deps.Store = NewStore(false)
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics(nil)
	}
	return &Controller{
		logger: logger,
		deps:   deps,
		opts:   opts,
		store:  deps.Store,
	}
}

func (c *Controller) Store() *Store {
	return c.store
}

// setState must be called with c.mu held.
func (c *Controller) setState(st models.State) {
	c.store.setState(st)
	c.deps.Metrics.setState(st)
}

// interrupt stops playback if there is one. c.mu must be held.
func (c *Controller) interrupt() {
	if c.store.State() == models.StatePlayingBack && c.deps.Player != nil {
		c.deps.Player.Stop()
	}
}

// Start begins a recording. Current playback is interrupted.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.store.State()
	if st == models.StateRecording {
		return models.ErrAlreadyRecording
	}
	if !st.AcceptsInput() {
		return fmt.Errorf("%w: %s", models.ErrBusy, st)
	}
	c.interrupt()
	if err := c.deps.Recorder.Start(); err != nil {
		c.logger.Error("failed to start recording", "error", err)
		if st == models.StatePlayingBack {
			c.setState(models.StateIdle)
		}
		return err
	}
	c.turn++
	c.store.clearError()
	c.setState(models.StateRecording)
	return nil
}

// Stop ends the recording and runs the rest of the turn before returning.
// Failures of the turn itself end up in the snapshot, not in the result.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.store.State() != models.StateRecording {
		c.mu.Unlock()
		return models.ErrNotRecording
	}
	buf, err := c.deps.Recorder.Stop()
	if err != nil {
		c.logger.Warn("capture ended with error", "error", err, "bytes", buf.Len())
	}
	if buf.Empty() {
		if err != nil {
			c.failLocked(err)
			c.mu.Unlock()
			return err
		}
		c.logger.Info("nothing captured")
		c.setState(models.StateIdle)
		c.mu.Unlock()
		return nil
	}
	turn := c.turn
	c.lastInput = buf
	c.setState(models.StateTranscribing)
	c.mu.Unlock()
	c.runTurn(ctx, turn, buf)
	return nil
}

// SubmitRecordedAudio runs a turn for audio captured elsewhere.
func (c *Controller) SubmitRecordedAudio(ctx context.Context, buf models.AudioBuffer) error {
	c.mu.Lock()
	st := c.store.State()
	if !st.AcceptsInput() {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", models.ErrBusy, st)
	}
	c.interrupt()
	c.turn++
	turn := c.turn
	c.store.clearError()
	if buf.Empty() {
		c.logger.Info("empty submission ignored")
		c.setState(models.StateIdle)
		c.mu.Unlock()
		return nil
	}
	c.lastInput = buf
	c.setState(models.StateTranscribing)
	c.mu.Unlock()
	c.runTurn(ctx, turn, buf)
	return nil
}

// SubmitFile reads a pre-recorded file and runs a turn with its bytes.
func (c *Controller) SubmitFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read audio file: %w", err)
	}
	mt := audio.DetectMIME(filepath.Base(path), data)
	c.logger.Debug("submitting file", "path", path, "mime", mt, "bytes", len(data))
	return c.SubmitRecordedAudio(ctx, models.NewAudioBuffer(data, mt))
}

// PlayLast plays back the audio of the last turn, recorded or submitted.
func (c *Controller) PlayLast() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.store.State()
	if !st.AcceptsInput() {
		return fmt.Errorf("%w: %s", models.ErrBusy, st)
	}
	if c.lastInput.Empty() {
		return models.ErrNothingToReplay
	}
	if c.deps.Player == nil {
		return fmt.Errorf("%w: no audio output", models.ErrPlaybackFailed)
	}
	c.interrupt()
	c.turn++
	turn := c.turn
	done, err := c.deps.Player.Play(c.lastInput)
	if err != nil {
		if st == models.StatePlayingBack {
			c.setState(models.StateIdle)
		}
		return fmt.Errorf("%w: %w", models.ErrPlaybackFailed, err)
	}
	c.logger.Debug("replaying last input", "mime", c.lastInput.MIME(), "bytes", c.lastInput.Len())
	c.setState(models.StatePlayingBack)
	go c.awaitPlayback(turn, done)
	return nil
}

// awaitPlayback returns to Idle once playback of turn ends on its own.
func (c *Controller) awaitPlayback(turn uint64, done <-chan struct{}) {
	<-done
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.turn == turn && c.store.State() == models.StatePlayingBack {
		c.setState(models.StateIdle)
	}
}

// StopPlayback interrupts the spoken reply.
func (c *Controller) StopPlayback() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store.State() != models.StatePlayingBack {
		return
	}
	c.deps.Player.Stop()
	c.setState(models.StateIdle)
}

func (c *Controller) SetVoiceOutput(on bool) {
	c.store.setVoiceOutput(on)
	if !on {
		c.StopPlayback()
	}
}

// Reset clears the log. Only allowed while idle.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st := c.store.State(); st != models.StateIdle {
		return fmt.Errorf("%w: %s", models.ErrBusy, st)
	}
	c.store.reset()
	return nil
}

// Load replaces the log with a stored conversation. Only allowed while idle.
func (c *Controller) Load(entries []models.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st := c.store.State(); st != models.StateIdle {
		return fmt.Errorf("%w: %s", models.ErrBusy, st)
	}
	c.store.Load(entries)
	c.store.clearError()
	return nil
}

// Close releases the device and stops playback.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.store.State() {
	case models.StateRecording:
		if _, err := c.deps.Recorder.Stop(); err != nil {
			c.logger.Warn("failed to stop recorder", "error", err)
		}
		c.setState(models.StateIdle)
	case models.StatePlayingBack:
		c.deps.Player.Stop()
		c.setState(models.StateIdle)
	}
}

func (c *Controller) transition(turn uint64, st models.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.turn == turn {
		c.setState(st)
	}
}

// failLocked publishes Failed with the error and falls back to Idle.
func (c *Controller) failLocked(err error) {
	c.store.fail(err)
	c.deps.Metrics.setState(models.StateFailed)
	c.setState(models.StateIdle)
}

func (c *Controller) fail(turn uint64, stage string, err error) {
	c.logger.Error("turn failed", "stage", stage, "error", err)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.turn == turn {
		c.failLocked(err)
	}
}

// warn records a non-fatal failure; the turn ends at Idle.
func (c *Controller) warn(turn uint64, stage string, err error) {
	c.logger.Warn("spoken reply skipped", "stage", stage, "error", err)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.turn != turn {
		return
	}
	c.store.setError(err)
	c.setState(models.StateIdle)
}

func (c *Controller) appendEntry(ctx context.Context, e models.Entry) {
	c.store.appendEntry(e)
	if c.deps.Sink == nil {
		return
	}
	if err := c.deps.Sink.AppendEntry(context.WithoutCancel(ctx), e); err != nil {
		c.logger.Error("failed to persist entry", "role", e.Role, "error", err)
	}
}

func (c *Controller) runTurn(ctx context.Context, turn uint64, buf models.AudioBuffer) {
	c.deps.Metrics.turns.Inc()
	start := time.Now()
	text, err := c.deps.Transcriber.Transcribe(ctx, buf, c.opts.Language)
	c.deps.Metrics.observe(stageTranscribe, start, err)
	if err != nil {
		c.fail(turn, stageTranscribe, err)
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		c.logger.Info("transcription is empty, nothing to answer")
		c.transition(turn, models.StateIdle)
		return
	}
	var history []models.Entry
	if c.opts.ChatHistory {
		history = c.store.Entries()
	}
	c.appendEntry(ctx, models.Entry{Role: models.RoleUser, Content: text})
	c.transition(turn, models.StateGenerating)

	start = time.Now()
	reply, err := c.deps.Chat.Complete(ctx, text, history)
	c.deps.Metrics.observe(stageComplete, start, err)
	if err != nil {
		c.fail(turn, stageComplete, err)
		return
	}
	c.appendEntry(ctx, models.Entry{Role: models.RoleAssistant, Content: reply})
	if !c.store.VoiceOutput() || c.deps.Synthesizer == nil || c.deps.Player == nil {
		c.transition(turn, models.StateIdle)
		return
	}

	c.transition(turn, models.StateSynthesizing)
	start = time.Now()
	speech, err := c.deps.Synthesizer.Synthesize(ctx, reply, c.opts.Voice)
	c.deps.Metrics.observe(stageSynthesize, start, err)
	if err != nil {
		c.warn(turn, stageSynthesize, err)
		return
	}
	c.mu.Lock()
	if c.turn != turn {
		c.mu.Unlock()
		return
	}
	// voice output may have been switched off while synthesizing
	if !c.store.VoiceOutput() {
		c.logger.Info("voice output turned off, reply not played")
		c.setState(models.StateIdle)
		c.mu.Unlock()
		return
	}
	start = time.Now()
	done, err := c.deps.Player.Play(speech)
	c.deps.Metrics.observe(stagePlayback, start, err)
	if err == nil {
		c.setState(models.StatePlayingBack)
	}
	c.mu.Unlock()
	if err != nil {
		if !errors.Is(err, models.ErrPlaybackFailed) {
			err = fmt.Errorf("%w: %w", models.ErrPlaybackFailed, err)
		}
		c.warn(turn, stagePlayback, err)
		return
	}
	go c.awaitPlayback(turn, done)
}
