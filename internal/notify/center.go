package notify

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/nhle/disruption-desk/internal/model"
)

// ScrollDelay is how long the UI waits after a ticket reload before
// moving the cursor onto a ticket opened from a notification.
const ScrollDelay = 100 * time.Millisecond

// Permission is the one-time desktop notification grant.
type Permission int

const (
	PermissionDefault Permission = iota
	PermissionGranted
	PermissionDenied
)

// Record is what callers hand to Notify. The center fills in the rest.
type Record struct {
	Title    string
	Message  string
	Priority model.Priority
	Icon     string
	TicketID string
}

// Desktop delivers OS-level notifications.
type Desktop interface {
	// Available reports whether notifications can be shown at all.
	Available() bool
	Send(n model.Notification) error
}

// Sounder plays the audio cue for a priority.
type Sounder interface {
	Play(p model.Priority) error
}

// Option configures a Center.
type Option func(*Center)

// WithDesktop enables OS-level notifications through d once permission
// has been granted.
func WithDesktop(d Desktop) Option {
	return func(c *Center) { c.desktop = d }
}

// WithSound sets the audio cue player.
func WithSound(s Sounder) Option {
	return func(c *Center) { c.sound = s }
}

// WithSoundEnabled sets whether the audio cue plays.
func WithSoundEnabled(enabled bool) Option {
	return func(c *Center) { c.soundEnabled = enabled }
}

// WithDispatcher overrides how side channels are run. The default runs
// each in its own goroutine.
func WithDispatcher(dispatch func(func())) Option {
	return func(c *Center) { c.dispatch = dispatch }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Center) { c.now = now }
}

// Center owns the in-memory notification list and the unread badge, and
// fans each new notification out to the desktop and sound channels.
type Center struct {
	mu           sync.Mutex
	items        []model.Notification
	unread       int
	panelOpen    bool
	permission   Permission
	soundEnabled bool

	desktop  Desktop
	sound    Sounder
	dispatch func(func())
	now      func() time.Time
	logger   *slog.Logger
}

// NewCenter creates an empty notification center.
func NewCenter(logger *slog.Logger, opts ...Option) *Center {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := &Center{
		soundEnabled: true,
		dispatch:     func(f func()) { go f() },
		now:          time.Now,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Notify records a new notification at the head of the list, bumps the
// unread count and fires the desktop and sound channels. Channel failures
// never prevent the notification from being recorded.
func (c *Center) Notify(rec Record) model.Notification {
	if rec.Priority == "" {
		rec.Priority = model.PriorityMedium
	}

	c.mu.Lock()
	now := c.now()
	n := model.Notification{
		ID:        strconv.FormatInt(now.UnixMilli(), 10),
		Timestamp: now,
		Title:     rec.Title,
		Message:   rec.Message,
		Priority:  rec.Priority,
		Icon:      rec.Icon,
		TicketID:  rec.TicketID,
	}
	c.items = append([]model.Notification{n}, c.items...)
	c.unread++

	desktop := c.desktop
	if c.permission != PermissionGranted {
		desktop = nil
	}
	sound := c.sound
	if !c.soundEnabled {
		sound = nil
	}
	c.mu.Unlock()

	if desktop != nil {
		c.dispatch(func() {
			c.guard("desktop", func() error { return desktop.Send(n) })
		})
	}
	if sound != nil {
		c.dispatch(func() {
			c.guard("sound", func() error { return sound.Play(n.Priority) })
		})
	}

	return n
}

// NotifyStatus raises the preconfigured notification for a workflow
// phase. It reports false and does nothing for unknown phases.
func (c *Center) NotifyStatus(phase string) (model.Notification, bool) {
	rec, ok := statusRecords[phase]
	if !ok {
		return model.Notification{}, false
	}
	return c.Notify(rec), true
}

// MarkAllAsRead marks every notification read and clears the badge.
func (c *Center) MarkAllAsRead() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		c.items[i].Read = true
	}
	c.unread = 0
}

// TogglePanel flips the panel between open and closed and returns the
// new state. Opening the panel marks everything read.
func (c *Center) TogglePanel() bool {
	c.mu.Lock()
	c.panelOpen = !c.panelOpen
	open := c.panelOpen
	c.mu.Unlock()

	if open {
		c.MarkAllAsRead()
	}
	return open
}

// ClosePanel closes the panel without touching read state.
func (c *Center) ClosePanel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.panelOpen = false
}

// PanelOpen reports whether the panel is open.
func (c *Center) PanelOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.panelOpen
}

// Items returns a copy of the notifications, newest first.
func (c *Center) Items() []model.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.Notification, len(c.items))
	copy(out, c.items)
	return out
}

// UnreadCount returns the badge value.
func (c *Center) UnreadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unread
}

// RequestPermission asks the desktop channel, once, whether it can show
// notifications. The probe runs through the dispatcher so startup never
// waits on it.
func (c *Center) RequestPermission() {
	c.mu.Lock()
	desktop := c.desktop
	if desktop == nil || c.permission != PermissionDefault {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.dispatch(func() {
		granted := false
		c.guard("permission", func() error {
			granted = desktop.Available()
			return nil
		})

		c.mu.Lock()
		defer c.mu.Unlock()
		if granted {
			c.permission = PermissionGranted
		} else {
			c.permission = PermissionDenied
		}
		c.logger.Debug("desktop notification permission", "granted", granted)
	})
}

// Permission returns the current desktop notification grant.
func (c *Center) Permission() Permission {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.permission
}

// SetSoundEnabled turns the audio cue on or off.
func (c *Center) SetSoundEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.soundEnabled = enabled
}

// SoundEnabled reports whether the audio cue plays.
func (c *Center) SoundEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.soundEnabled
}

// guard runs fn, logging and swallowing any error or panic.
func (c *Center) guard(channel string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Debug("notification channel panicked",
				"channel", channel, "panic", fmt.Sprint(r))
		}
	}()
	if err := fn(); err != nil {
		c.logger.Debug("notification channel failed",
			"channel", channel, "error", err)
	}
}
