package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/ports"
	"github.com/google/uuid"
)

// History keeps chats and their messages in a RecordStore. Each chat's
// messages live in their own collection so listing them is ordered.
type History struct {
	records ports.RecordStore
	mu      sync.Mutex
}

// NewHistory creates a history on records.
func NewHistory(records ports.RecordStore) *History {
	return &History{records: records}
}

func historyCollection(chatID string) string {
	return domain.CollectionHistory + ":" + chatID
}

// CreateChat starts a new chat.
func (h *History) CreateChat(ctx context.Context, title, graphID string) (*domain.Chat, error) {
	chat := &domain.Chat{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(title),
		GraphID:   graphID,
		CreatedAt: time.Now().UTC(),
	}
	if chat.Title == "" {
		chat.Title = "New chat"
	}
	data, err := json.Marshal(chat)
	if err != nil {
		return nil, err
	}
	if err := h.records.Put(ctx, domain.CollectionChats, chat.ID, data); err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}
	return chat, nil
}

// Chat returns a chat by id.
func (h *History) Chat(ctx context.Context, id string) (*domain.Chat, error) {
	rec, err := h.records.Get(ctx, domain.CollectionChats, id)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, domain.NewError(domain.KindNotFound, fmt.Sprintf("chat %q", id), err)
		}
		return nil, err
	}
	var chat domain.Chat
	if err := json.Unmarshal(rec.Data, &chat); err != nil {
		return nil, fmt.Errorf("failed to decode chat %s: %w", id, err)
	}
	chat.ID = rec.ID
	return &chat, nil
}

// Chats lists every chat ordered by creation.
func (h *History) Chats(ctx context.Context) ([]domain.Chat, error) {
	recs, err := h.records.List(ctx, domain.CollectionChats)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Chat, 0, len(recs))
	for _, rec := range recs {
		var chat domain.Chat
		if err := json.Unmarshal(rec.Data, &chat); err != nil {
			continue
		}
		chat.ID = rec.ID
		out = append(out, chat)
	}
	return out, nil
}

// DeleteChat removes a chat and its messages.
func (h *History) DeleteChat(ctx context.Context, id string) error {
	entries, err := h.entries(ctx, id)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := h.records.Delete(ctx, historyCollection(id), e.recordID); err != nil {
			return err
		}
	}
	return h.records.Delete(ctx, domain.CollectionChats, id)
}

// Messages returns the messages of a chat in append order.
func (h *History) Messages(ctx context.Context, chatID string) ([]domain.Message, error) {
	if _, err := h.Chat(ctx, chatID); err != nil {
		return nil, err
	}
	entries, err := h.entries(ctx, chatID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Message, len(entries))
	for i, e := range entries {
		out[i] = e.Message
	}
	return out, nil
}

// Append adds messages to the end of a chat.
func (h *History) Append(ctx context.Context, chatID string, msgs ...domain.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries, err := h.entries(ctx, chatID)
	if err != nil {
		return err
	}
	seq := len(entries)
	for _, msg := range msgs {
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}
		data, err := json.Marshal(domain.HistoryEntry{ChatID: chatID, Seq: seq, Message: msg})
		if err != nil {
			return err
		}
		if _, err := h.records.Create(ctx, historyCollection(chatID), data); err != nil {
			return fmt.Errorf("failed to append history: %w", err)
		}
		seq++
	}
	return nil
}

type storedEntry struct {
	domain.HistoryEntry
	recordID string
}

func (h *History) entries(ctx context.Context, chatID string) ([]storedEntry, error) {
	recs, err := h.records.List(ctx, historyCollection(chatID))
	if err != nil {
		return nil, err
	}
	out := make([]storedEntry, 0, len(recs))
	for _, rec := range recs {
		var e domain.HistoryEntry
		if err := json.Unmarshal(rec.Data, &e); err != nil {
			return nil, fmt.Errorf("failed to decode history entry %s: %w", rec.ID, err)
		}
		out = append(out, storedEntry{HistoryEntry: e, recordID: rec.ID})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}
