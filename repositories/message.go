package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ops-chat/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const keyPrefix = "msg:"

type MessageRepository struct {
	db     *badger.DB
	log    *slog.Logger
	mu     sync.Mutex
	lastAt time.Time
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log}
}

// DiskMessage is the stored form of a chat message. Bot replies are never
// written, so the kind column is implicit.
type DiskMessage struct {
	ID      string `json:"id"`
	Sender  string `json:"sender"`
	Content string `json:"content"`
	At      int64  `json:"at"`
}

// Append persists a chat message and returns it with its assigned timestamp.
// The key is formatted as "msg:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
//
// Timestamps are assigned here, under the repository lock, so they are
// monotonically non-decreasing even when appends race.
func (m *MessageRepository) Append(message domain.Message) (domain.Message, error) {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}

	m.mu.Lock()
	at := time.Now().UTC()
	if at.Before(m.lastAt) {
		at = m.lastAt
	}
	m.lastAt = at
	m.mu.Unlock()
	message.CreatedAt = at

	key := fmt.Sprintf("%s%019d:%s", keyPrefix, message.CreatedAt.UnixNano(), message.ID)
	bytes, err := json.Marshal(fromMessage(message))
	if err != nil {
		return domain.Message{}, err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// Recent retrieves the last `limit` chat messages, oldest first.
// Thanks to the padded timestamp in the key, a reverse prefix scan yields
// newest-first order; the collected slice is flipped before returning.
func (m *MessageRepository) Recent(limit int) ([]domain.Message, error) {
	var rawMessages [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(keyPrefix)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past the highest possible timestamp, then walk backwards.
		seekKey := append([]byte(keyPrefix), []byte("9999999999999999999:")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(rawMessages) == limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", limit))
				break
			}
			err := it.Item().Value(func(value []byte) error {
				rawMessages = append(rawMessages, append([]byte(nil), value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	messages := make([]domain.Message, 0, len(rawMessages))
	for i := len(rawMessages) - 1; i >= 0; i-- {
		var disk DiskMessage
		if err = json.Unmarshal(rawMessages[i], &disk); err != nil {
			return nil, err
		}
		message, err := toMessage(disk)
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, nil
}

func fromMessage(message domain.Message) DiskMessage {
	return DiskMessage{
		ID:      message.ID.String(),
		Sender:  message.Sender,
		Content: message.Content,
		At:      message.CreatedAt.UnixNano(),
	}
}

func toMessage(disk DiskMessage) (domain.Message, error) {
	parsedID, err := uuid.Parse(disk.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:        parsedID,
		Sender:    disk.Sender,
		Content:   disk.Content,
		Kind:      domain.KindChat,
		CreatedAt: time.Unix(0, disk.At).UTC(),
	}, nil
}
