// Package audit records an append-only trail of journal mutations.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"
)

// EventType represents the type of audit event.
type EventType string

const (
	// Inbox events
	EventImport       EventType = "IMPORT"
	EventEdit         EventType = "EDIT"
	EventAccept       EventType = "ACCEPT"
	EventAcceptFailed EventType = "ACCEPT_FAILED"
	EventDelete       EventType = "DELETE"

	// Canonical trade events
	EventTradeCreated EventType = "TRADE_CREATED"
	EventTradeUpdated EventType = "TRADE_UPDATED"
	EventTradeDeleted EventType = "TRADE_DELETED"

	// Plan and campaign events
	EventStatusChanged EventType = "STATUS_CHANGED"
)

// Event represents a single audit log entry.
type Event struct {
	Timestamp time.Time              `json:"timestamp"`
	Type      EventType              `json:"event_type"`
	OwnerID   string                 `json:"owner_id"`
	EntityID  string                 `json:"entity_id,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Success   bool                   `json:"success"`
	ErrorMsg  string                 `json:"error,omitempty"`
	SessionID string                 `json:"session_id,omitempty"`
}

// Recorder accepts audit events.
type Recorder interface {
	Record(ctx context.Context, event Event) error
}

// Config holds audit trail configuration.
type Config struct {
	Dir        string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// DefaultConfig returns the default audit configuration.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Dir:        filepath.Join(home, ".config", "trade-journal", "audit"),
		MaxSize:    20,
		MaxBackups: 10,
		MaxAge:     365,
		Compress:   true,
	}
}

// Logger writes audit events as JSON lines to a rotating file.
type Logger struct {
	writer    *lumberjack.Logger
	mu        sync.Mutex
	sessionID string
}

// NewLogger creates a new audit logger.
func NewLogger(cfg Config) (*Logger, error) {
	if err := os.MkdirAll(cfg.Dir, 0700); err != nil {
		return nil, fmt.Errorf("creating audit directory: %w", err)
	}

	writer := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, "audit.log"),
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	return &Logger{
		writer:    writer,
		sessionID: uuid.NewString(),
	}, nil
}

// Record appends an event to the trail.
func (l *Logger) Record(ctx context.Context, event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	event.SessionID = l.sessionID

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("serializing audit event: %w", err)
	}

	if _, err := l.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing audit event: %w", err)
	}
	return nil
}

// Close closes the audit logger.
func (l *Logger) Close() error {
	return l.writer.Close()
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, Event) error { return nil }

// Nop returns a Recorder that discards every event.
func Nop() Recorder {
	return nopRecorder{}
}
