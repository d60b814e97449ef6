package drawing

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"

	"github.com/benmeehan/pixie-bridge/internal/constants"
	"github.com/benmeehan/pixie-bridge/internal/models"
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Mirror forwards committed canvas changes to the physical device.
type Mirror interface {
	EnterDrawMode(deviceID int64) error
	ExitDrawMode(deviceID int64) error
	DrawPixel(deviceID int64, push models.DrawPixelPush) error
	DrawStroke(deviceID int64, push models.DrawStrokePush) error
	ClearCanvas(deviceID int64, userID string) error
}

// CanvasLoader supplies the canvas a new session starts from.
type CanvasLoader interface {
	LatestCanvas(ctx context.Context, deviceID int64) ([][]string, error)
}

const seedTimeout = 2 * time.Second

// Config tunes session lifetime and rate limiting.
type Config struct {
	IdleTimeout    time.Duration
	SweepInterval  time.Duration
	RateLimitSweep time.Duration
	Limits         map[string]Limit
}

func (c Config) withDefaults() Config {
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = constants.DefaultSessionIdleTimeout
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = constants.DefaultSessionSweep
	}
	if c.RateLimitSweep <= 0 {
		c.RateLimitSweep = constants.DefaultRateLimitSweep
	}
	if c.Limits == nil {
		c.Limits = DefaultLimits()
	}
	return c
}

// Engine owns every drawing session and the rate limiter.
// Draw commands validate, then mutate the canvas under the session lock,
// and only then broadcast and mirror.
type Engine struct {
	cfg      Config
	sessions cmap.ConcurrentMap[int64, *Session]
	limiter  *RateLimiter
	mirror   Mirror
	loader   CanvasLoader
	logger   zerolog.Logger
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func shardDevice(id int64) uint32 {
	// FNV-1a over the little-endian bytes.
	h := uint32(2166136261)
	for i := 0; i < 8; i++ {
		h ^= uint32(byte(id >> (8 * i)))
		h *= 16777619
	}
	return h
}

// NewEngine creates an Engine. Zero Config fields fall back to defaults.
func NewEngine(cfg Config, mirror Mirror, logger zerolog.Logger) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		cfg:      cfg,
		sessions: cmap.NewWithCustomShardingFunction[int64, *Session](shardDevice),
		limiter:  NewRateLimiter(cfg.Limits),
		mirror:   mirror,
		logger:   logger,
		now:      time.Now,
	}
}

// SetLoader makes new sessions start from the canvas l returns instead of a blank one.
func (e *Engine) SetLoader(l CanvasLoader) {
	e.loader = l
}

// Start launches the idle-session and rate-limit sweeps.
func (e *Engine) Start() error {
	if e.ctx != nil {
		e.logger.Warn().Msg("DrawingEngine is already running")
		return errors.New("drawing engine is already running")
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())

	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		e.every(e.cfg.SweepInterval, func() {
			if n := e.SweepIdle(); n > 0 {
				e.logger.Info().Int("sessions", n).Msg("Closed idle drawing sessions")
			}
		})
	}()
	go func() {
		defer e.wg.Done()
		e.every(e.cfg.RateLimitSweep, func() {
			if n := e.limiter.Sweep(); n > 0 {
				e.logger.Debug().Int("windows", n).Msg("Dropped expired rate limit windows")
			}
		})
	}()

	e.logger.Info().
		Dur("idle_timeout", e.cfg.IdleTimeout).
		Dur("sweep_interval", e.cfg.SweepInterval).
		Msg("DrawingEngine started successfully")
	return nil
}

// Stop halts the sweeps. Live sessions are left as they are.
func (e *Engine) Stop() error {
	if e.ctx == nil {
		e.logger.Warn().Msg("DrawingEngine is not running")
		return errors.New("drawing engine is not running")
	}
	e.cancel()
	e.wg.Wait()
	e.ctx = nil
	e.cancel = nil

	e.logger.Info().Msg("DrawingEngine stopped successfully")
	return nil
}

func (e *Engine) every(interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			fn()
		case <-e.ctx.Done():
			return
		}
	}
}

// ActiveSessions returns the number of devices being drawn on.
func (e *Engine) ActiveSessions() int {
	return e.sessions.Count()
}

// Canvas returns a copy of a device's canvas.
func (e *Engine) Canvas(deviceID int64) ([][]string, bool) {
	s, ok := e.sessions.Get(deviceID)
	if !ok {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false
	}
	return s.snapshot(), true
}

// Join adds p to the device's session, creating one if needed. A new session
// starts from the latest saved canvas when a loader is set, else blank.
// The joiner receives the current canvas; everyone else is told about the join.
func (e *Engine) Join(deviceID int64, p Participant) error {
	for {
		var seed [][]string
		if !e.sessions.Has(deviceID) {
			seed = e.seed(deviceID)
		}

		created := false
		s := e.sessions.Upsert(deviceID, nil, func(exist bool, cur, _ *Session) *Session {
			if exist && cur != nil {
				return cur
			}
			created = true
			s := newSession(deviceID, e.now())
			if seed != nil {
				s.canvas = seed
			}
			return s
		})

		s.mu.Lock()
		if s.closed {
			// Lost a race with the last departure; the entry is gone now.
			s.mu.Unlock()
			continue
		}
		others := s.others(p.ConnID())
		s.participants[p.ConnID()] = p
		s.lastActivity = e.now()
		state := s.snapshot()
		s.mu.Unlock()

		if created {
			e.logger.Info().Int64("device_id", deviceID).Msg("Drawing session opened")
			if err := e.mirror.EnterDrawMode(deviceID); err != nil {
				e.logger.Warn().Err(err).Int64("device_id", deviceID).Msg("Failed to push enter_draw_mode")
			}
		}

		e.send(p, EventDrawingState, DrawingState{Pixels: state})
		e.broadcast(others, EventUserJoined, PresenceEvent{UserID: p.UserID(), Username: p.Username()})
		return nil
	}
}

func (e *Engine) seed(deviceID int64) [][]string {
	if e.loader == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), seedTimeout)
	defer cancel()
	canvas, err := e.loader.LatestCanvas(ctx, deviceID)
	if err != nil {
		e.logger.Warn().Err(err).Int64("device_id", deviceID).Msg("Failed to load saved canvas, starting blank")
		return nil
	}
	if canvas != nil && !validCanvas(canvas) {
		e.logger.Warn().Int64("device_id", deviceID).Msg("Ignoring malformed saved canvas")
		return nil
	}
	return canvas
}

func validCanvas(pixels [][]string) bool {
	if len(pixels) != constants.CanvasSize {
		return false
	}
	for _, row := range pixels {
		if len(row) != constants.CanvasSize {
			return false
		}
		for _, c := range row {
			if !colorPattern.MatchString(c) {
				return false
			}
		}
	}
	return true
}

// DrawPixel paints a brush footprint at (x, y).
func (e *Engine) DrawPixel(p Participant, cmd PixelCommand) error {
	if cmd.Size == 0 {
		cmd.Size = constants.MinBrushSize
	}
	if cmd.X == nil || cmd.Y == nil || !inBounds(*cmd.X, *cmd.Y) {
		return fmt.Errorf("%w: invalid coordinates", models.ErrValidation)
	}
	if err := validateStyle(cmd.Color, cmd.Tool); err != nil {
		return err
	}
	if cmd.Size < constants.MinBrushSize || cmd.Size > constants.MaxBrushSize {
		return fmt.Errorf("%w: brush size must be between %d and %d", models.ErrValidation, constants.MinBrushSize, constants.MaxBrushSize)
	}

	s, err := e.session(cmd.DeviceID)
	if err != nil {
		return err
	}
	if !e.limiter.Allow(p.UserID(), constants.RateDrawPixel) {
		return models.ErrRateLimitExceeded
	}

	tool := toolOrDefault(cmd.Tool)
	color := resolveColor(tool, cmd.Color)
	x, y := *cmd.X, *cmd.Y

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.ErrSessionNotFound
	}
	s.paint(x, y, cmd.Size, color)
	s.lastActivity = e.now()
	others := s.others(p.ConnID())
	s.mu.Unlock()

	e.broadcast(others, EventDrawPixel, PixelEvent{X: x, Y: y, Color: color, Tool: tool, Size: cmd.Size, UserID: p.UserID()})
	if err := e.mirror.DrawPixel(cmd.DeviceID, models.DrawPixelPush{
		Action: constants.ActionDrawPixel,
		X:      x,
		Y:      y,
		Color:  color,
		Tool:   tool,
		Size:   cmd.Size,
		UserID: p.UserID(),
	}); err != nil {
		e.logger.Warn().Err(err).Int64("device_id", cmd.DeviceID).Msg("Failed to mirror draw_pixel")
	}
	return nil
}

// DrawStroke paints single cells along points. Out-of-bounds points are skipped.
func (e *Engine) DrawStroke(p Participant, cmd StrokeCommand) error {
	if err := validateStyle(cmd.Color, cmd.Tool); err != nil {
		return err
	}

	s, err := e.session(cmd.DeviceID)
	if err != nil {
		return err
	}
	if !e.limiter.Allow(p.UserID(), constants.RateDrawStroke) {
		return models.ErrRateLimitExceeded
	}

	tool := toolOrDefault(cmd.Tool)
	color := resolveColor(tool, cmd.Color)
	points := make([]models.Point, 0, len(cmd.Points))
	for _, pt := range cmd.Points {
		if inBounds(pt.X, pt.Y) {
			points = append(points, pt)
		}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.ErrSessionNotFound
	}
	for _, pt := range points {
		s.canvas[pt.Y][pt.X] = color
	}
	s.lastActivity = e.now()
	others := s.others(p.ConnID())
	s.mu.Unlock()

	if len(points) == 0 {
		return nil
	}

	e.broadcast(others, EventDrawStroke, StrokeEvent{Points: points, Color: color, Tool: tool, UserID: p.UserID()})
	if err := e.mirror.DrawStroke(cmd.DeviceID, models.DrawStrokePush{
		Action: constants.ActionDrawStroke,
		Points: points,
		Color:  color,
		Tool:   tool,
		UserID: p.UserID(),
	}); err != nil {
		e.logger.Warn().Err(err).Int64("device_id", cmd.DeviceID).Msg("Failed to mirror draw_stroke")
	}
	return nil
}

// ClearCanvas resets the canvas and tells every participant, the requester included.
func (e *Engine) ClearCanvas(p Participant, cmd ClearCommand) error {
	s, err := e.session(cmd.DeviceID)
	if err != nil {
		return err
	}
	if !e.limiter.Allow(p.UserID(), constants.RateClearCanvas) {
		return models.ErrRateLimitExceeded
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.ErrSessionNotFound
	}
	s.canvas = blankCanvas()
	s.lastActivity = e.now()
	everyone := s.all()
	s.mu.Unlock()

	e.broadcast(everyone, EventCanvasCleared, ClearedEvent{UserID: p.UserID()})
	if err := e.mirror.ClearCanvas(cmd.DeviceID, p.UserID()); err != nil {
		e.logger.Warn().Err(err).Int64("device_id", cmd.DeviceID).Msg("Failed to mirror clear_canvas")
	}
	return nil
}

// Leave removes p from every session it belongs to. Sessions left empty are closed.
func (e *Engine) Leave(p Participant) {
	for item := range e.sessions.IterBuffered() {
		s := item.Val

		s.mu.Lock()
		if _, ok := s.participants[p.ConnID()]; !ok {
			s.mu.Unlock()
			continue
		}
		delete(s.participants, p.ConnID())
		others := s.all()
		closed := len(s.participants) == 0 && e.close(s)
		s.mu.Unlock()

		e.broadcast(others, EventUserLeft, PresenceEvent{UserID: p.UserID(), Username: p.Username()})
		if closed {
			e.exitDrawMode(s.deviceID, "last participant left")
		}
	}
}

// SweepIdle closes every session idle for longer than the configured timeout
// and returns how many were closed.
func (e *Engine) SweepIdle() int {
	now := e.now()
	swept := 0
	for item := range e.sessions.IterBuffered() {
		s := item.Val

		s.mu.Lock()
		closed := now.Sub(s.lastActivity) > e.cfg.IdleTimeout && e.close(s)
		s.mu.Unlock()

		if closed {
			swept++
			e.exitDrawMode(s.deviceID, "idle timeout")
		}
	}
	return swept
}

// close marks s closed and removes it from the table. It reports false if s
// was already closed. Callers hold s.mu.
func (e *Engine) close(s *Session) bool {
	if s.closed {
		return false
	}
	s.closed = true
	e.sessions.RemoveCb(s.deviceID, func(_ int64, cur *Session, exists bool) bool {
		return exists && cur == s
	})
	return true
}

func (e *Engine) exitDrawMode(deviceID int64, reason string) {
	e.logger.Info().Int64("device_id", deviceID).Str("reason", reason).Msg("Drawing session closed")
	if err := e.mirror.ExitDrawMode(deviceID); err != nil {
		e.logger.Warn().Err(err).Int64("device_id", deviceID).Msg("Failed to push exit_draw_mode")
	}
}

func (e *Engine) session(deviceID int64) (*Session, error) {
	s, ok := e.sessions.Get(deviceID)
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	return s, nil
}

func (e *Engine) send(p Participant, event string, data interface{}) {
	if err := p.Send(event, data); err != nil {
		e.logger.Debug().Err(err).Str("conn_id", p.ConnID()).Str("event", event).Msg("Failed to send event")
	}
}

func (e *Engine) broadcast(to []Participant, event string, data interface{}) {
	for _, p := range to {
		e.send(p, event, data)
	}
}

func inBounds(x, y int) bool {
	return x >= 0 && x < constants.CanvasSize && y >= 0 && y < constants.CanvasSize
}

func validateStyle(color, tool string) error {
	if !colorPattern.MatchString(color) {
		return fmt.Errorf("%w: invalid color format", models.ErrValidation)
	}
	switch tool {
	case "", constants.ToolDraw, constants.ToolErase:
		return nil
	}
	return fmt.Errorf("%w: unknown tool %q", models.ErrValidation, tool)
}

func toolOrDefault(tool string) string {
	if tool == "" {
		return constants.ToolDraw
	}
	return tool
}

func resolveColor(tool, color string) string {
	if tool == constants.ToolErase {
		return constants.BlankColor
	}
	return color
}
