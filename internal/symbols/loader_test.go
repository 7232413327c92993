package symbols

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valuescreen/internal/provider"
)

func dataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "prices"), 0o755))
	for _, sym := range []string{"005930", "AAPL", "BRK.B"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "prices", sym+".csv"), nil, 0o644))
	}
	return dir
}

func TestLoad(t *testing.T) {
	symbolFile := filepath.Join(t.TempDir(), "watch.txt")
	require.NoError(t, os.WriteFile(symbolFile, []byte("# watchlist\nmsft, aapl\nKO # dividend\n\naapl\n"), 0o644))

	tests := []struct {
		name string
		src  Source
		want []string
	}{
		{"list wins", Source{List: "aapl, msft ko,AAPL", File: symbolFile, Universe: "dow30"}, []string{"AAPL", "MSFT", "KO"}},
		{"file", Source{File: symbolFile, Universe: "dow30"}, []string{"MSFT", "AAPL", "KO"}},
		{"named universe", Source{Universe: "TEST"}, TestSymbols},
		{"provider listing", Source{}, []string{"005930", "AAPL", "BRK.B"}},
		{"all uses provider", Source{Universe: "all"}, []string{"005930", "AAPL", "BRK.B"}},
		{"invalid symbols dropped", Source{List: "AAPL,$$$,WAYTOOLONGSYMBOL"}, []string{"AAPL"}},
	}

	l := NewLoader(provider.NewFileProvider(dataDir(t)))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.Load(context.Background(), tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	l := NewLoader(provider.NewFileProvider(t.TempDir()))
	ctx := context.Background()

	_, err := l.Load(ctx, Source{Universe: "ftse"})
	assert.ErrorContains(t, err, "unknown universe")

	_, err = l.Load(ctx, Source{File: filepath.Join(t.TempDir(), "missing.txt")})
	assert.Error(t, err)

	_, err = l.Load(ctx, Source{})
	assert.ErrorContains(t, err, "no symbols")
}

func TestUniverses(t *testing.T) {
	for _, name := range Universes() {
		if Universe(name) == UniverseAll {
			assert.Nil(t, GetUniverse(UniverseAll))
			continue
		}
		list := GetUniverse(Universe(name))
		assert.NotEmpty(t, list, name)
		for _, sym := range list {
			assert.True(t, isValidSymbol(sym), "%s in %s", sym, name)
		}
	}
	assert.Len(t, KOSPISymbols, 20)
	assert.Len(t, DowSymbols, 30)
}
