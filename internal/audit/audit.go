// Package audit keeps an append-only trail of administrative actions.
package audit

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/AlexKimmel/LimitGate/internal/ratelimit"
)

type record struct {
	ID     string            `json:"id"`
	TsMS   int64             `json:"ts_ms"`
	Actor  string            `json:"actor"`
	Action string            `json:"action"`
	Key    string            `json:"key"`
	Meta   map[string]string `json:"meta,omitempty"`
}

// Log writes one JSON line per event and mirrors it to the structured log.
type Log struct {
	mu   sync.Mutex
	file *os.File
	log  zerolog.Logger
	now  func() time.Time
}

var _ ratelimit.AuditSink = (*Log)(nil)

func New(path string, logger zerolog.Logger) (*Log, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return &Log{file: f, log: logger, now: time.Now}, nil
}

func (a *Log) Close() error {
	if a == nil || a.file == nil {
		return nil
	}
	return a.file.Close()
}

func (a *Log) Record(_ context.Context, event ratelimit.AuditEvent) {
	rec := record{
		ID:     uuid.NewString(),
		TsMS:   a.now().UnixMilli(),
		Actor:  event.Actor,
		Action: event.Action,
		Key:    event.Key,
		Meta:   event.Meta,
	}
	line, err := json.Marshal(rec)
	if err != nil {
		a.log.Error().Err(err).Str("action", event.Action).Msg("audit marshal failed")
		return
	}

	a.mu.Lock()
	_, werr := a.file.Write(append(line, '\n'))
	a.mu.Unlock()
	if werr != nil {
		a.log.Error().Err(werr).Str("action", event.Action).Msg("audit write failed")
		return
	}

	a.log.Info().
		Str("audit_id", rec.ID).
		Str("actor", rec.Actor).
		Str("action", rec.Action).
		Str("key", rec.Key).
		Msg("audit")
}
