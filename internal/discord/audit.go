package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
)

const (
	auditQueueSize  = 128
	auditMessageMax = 1900
)

// AuditWriter mirrors log entries into the guild's audit channel. Writes never
// block: entries are queued and dropped when the queue is full or no channel is bound.
type AuditWriter struct {
	queue chan string

	mu        sync.RWMutex
	rest      restClient
	channelID string
}

// NewAuditWriter returns an unbound writer; call Bind once the channel is known.
func NewAuditWriter() *AuditWriter {
	return &AuditWriter{queue: make(chan string, auditQueueSize)}
}

// Bind sets the channel entries are posted to.
func (w *AuditWriter) Bind(rest restClient, channelID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rest = rest
	w.channelID = channelID
}

func (w *AuditWriter) target() (restClient, string) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.rest, w.channelID
}

// Write implements io.Writer for zerolog JSON entries.
func (w *AuditWriter) Write(p []byte) (int, error) {
	if _, channelID := w.target(); channelID == "" {
		return len(p), nil
	}
	select {
	case w.queue <- formatAuditEntry(p):
	default:
	}
	return len(p), nil
}

// Run posts queued entries until ctx is done. Delivery failures are dropped
// silently since reporting them would feed the same writer.
func (w *AuditWriter) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case entry := <-w.queue:
			rest, channelID := w.target()
			if rest == nil || channelID == "" {
				continue
			}
			_, _ = rest.ChannelMessageSend(channelID, entry, discordgo.WithContext(ctx))
		}
	}
}

func formatAuditEntry(p []byte) string {
	var entry struct {
		Level   string `json:"level"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(p, &entry); err != nil || entry.Message == "" {
		return truncate(strings.TrimSpace(string(p)), auditMessageMax)
	}
	line := fmt.Sprintf("[%s] %s", strings.ToUpper(entry.Level), entry.Message)
	if entry.Error != "" {
		line += ": " + entry.Error
	}
	return truncate(line, auditMessageMax)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
