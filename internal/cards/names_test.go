package cards

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadNameIndexFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "card_names.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Trickstar Candina": [81275020], "Blue-Eyes White Dragon": [89631139]}`), 0o644))

	index, err := LoadNameIndex(context.Background(), path, http.DefaultClient)
	require.NoError(t, err)
	require.Equal(t, 2, index.Len())

	name, err := index.RandomName()
	require.NoError(t, err)
	require.Contains(t, []string{"Trickstar Candina", "Blue-Eyes White Dragon"}, name)
}

func TestLoadNameIndexRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "card_names.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	_, err := LoadNameIndex(context.Background(), path, http.DefaultClient)
	require.ErrorIs(t, err, ErrEmptyIndex)
}

func TestLoadNameIndexDownloadsWhenMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Trickstar Candina": [81275020]}`)
	}))
	t.Cleanup(srv.Close)

	old := NameIndexURL
	NameIndexURL = srv.URL
	t.Cleanup(func() { NameIndexURL = old })

	path := filepath.Join(t.TempDir(), "card_names.json")
	index, err := LoadNameIndex(context.Background(), path, srv.Client())
	require.NoError(t, err)
	require.Equal(t, 1, index.Len())

	// The index is persisted for the next startup.
	_, err = os.Stat(path)
	require.NoError(t, err)
}
