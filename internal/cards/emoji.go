package cards

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
)

var ErrEmptyEmojiDB = errors.New("emoji database is empty")

// EmojiDB maps archetype names to the emoji sequences that hint at them.
type EmojiDB struct {
	entries map[string][]string
	names   []string
}

func LoadEmojiDB(path string) (*EmojiDB, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read emoji database: %w", err)
	}
	var entries map[string][]string
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse emoji database: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrEmptyEmojiDB
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	return &EmojiDB{entries: entries, names: names}, nil
}

func (d *EmojiDB) RandomName() (string, error) {
	if len(d.names) == 0 {
		return "", ErrEmptyEmojiDB
	}
	return d.names[rand.Intn(len(d.names))], nil
}

// Resolve returns the archetype as a guessing target, or (nil, nil) when the
// name is unknown. The emoji list is copied so callers can shuffle it freely.
func (d *EmojiDB) Resolve(name string) (*Card, error) {
	emoji, ok := d.entries[name]
	if !ok || len(emoji) == 0 {
		return nil, nil
	}
	out := make([]string, len(emoji))
	copy(out, emoji)
	return &Card{Name: name, Emoji: out}, nil
}

func (d *EmojiDB) Len() int {
	return len(d.names)
}
