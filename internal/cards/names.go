package cards

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
)

// NameIndexURL serves the full card name index as a JSON object keyed by name.
var NameIndexURL = "https://db.ygorganization.com/data/idx/card/name/en"

var ErrEmptyIndex = errors.New("card name index is empty")

// NameIndex is the pool of card names the game draws targets from.
type NameIndex struct {
	names []string
}

// LoadNameIndex reads the name index from path, downloading it first when
// the file does not exist yet.
func LoadNameIndex(ctx context.Context, path string, httpClient *http.Client) (*NameIndex, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := downloadNameIndex(ctx, path, httpClient); err != nil {
			return nil, err
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read name index: %w", err)
	}
	var index map[string]json.RawMessage
	if err := json.Unmarshal(raw, &index); err != nil {
		return nil, fmt.Errorf("parse name index: %w", err)
	}

	names := make([]string, 0, len(index))
	for name := range index {
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, ErrEmptyIndex
	}
	return &NameIndex{names: names}, nil
}

func downloadNameIndex(ctx context.Context, path string, httpClient *http.Client) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, NameIndexURL, nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download name index: %w", err)
	}
	defer resp.Body.Close()

	var index map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&index); err != nil {
		return fmt.Errorf("decode name index: %w", err)
	}
	raw, err := json.Marshal(index)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

// RandomName returns a uniformly random card name.
func (n *NameIndex) RandomName() (string, error) {
	if len(n.names) == 0 {
		return "", ErrEmptyIndex
	}
	return n.names[rand.Intn(len(n.names))], nil
}

func (n *NameIndex) Len() int {
	return len(n.names)
}
