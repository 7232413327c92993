package symbols

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"valuescreen/internal/provider"
)

// Source selects where the screening universe comes from. The first
// non-empty field wins: List, then File, then Universe. All empty means every
// symbol the provider lists.
type Source struct {
	List     string // comma or space separated
	File     string // one or more symbols per line, # starts a comment
	Universe string
}

// Loader handles loading stock symbols from various sources
type Loader struct {
	provider provider.Provider
}

// NewLoader creates a new symbol loader
func NewLoader(p provider.Provider) *Loader {
	return &Loader{provider: p}
}

// Load resolves src into a list of valid, unique symbols
func (l *Loader) Load(ctx context.Context, src Source) ([]string, error) {
	var (
		raw []string
		err error
		u   = Universe(strings.ToLower(strings.TrimSpace(src.Universe)))
	)
	switch {
	case strings.TrimSpace(src.List) != "":
		raw = ParseList(src.List)
	case src.File != "":
		raw, err = ReadFile(src.File)
	case u != "" && u != UniverseAll:
		raw = GetUniverse(u)
		if raw == nil {
			err = fmt.Errorf("unknown universe %q (available: %s)", src.Universe, strings.Join(Universes(), ", "))
		}
	default:
		raw, err = l.providerSymbols(ctx)
	}
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, sym := range raw {
		if !isValidSymbol(sym) || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no symbols to screen")
	}
	return out, nil
}

func (l *Loader) providerSymbols(ctx context.Context) ([]string, error) {
	stocks, err := l.provider.Symbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing symbols from %s: %w", l.provider.Name(), err)
	}
	out := make([]string, len(stocks))
	for i, s := range stocks {
		out[i] = s.Symbol
	}
	return out, nil
}

// ParseList splits a comma or whitespace separated symbol list
func ParseList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, strings.ToUpper(strings.TrimSpace(f)))
	}
	return out
}

// ReadFile reads a symbol file
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading symbol file: %w", err)
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		out = append(out, ParseList(line)...)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading symbol file: %w", err)
	}
	return out, nil
}

// isValidSymbol accepts tickers (BRK.B, BF-B) and numeric exchange codes
func isValidSymbol(symbol string) bool {
	if len(symbol) == 0 || len(symbol) > 12 {
		return false
	}
	for _, c := range symbol {
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '.', c == '-':
		default:
			return false
		}
	}
	return true
}
