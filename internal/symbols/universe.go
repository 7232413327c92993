package symbols

import "sort"

// Universe names a predefined symbol list
type Universe string

const (
	UniverseKOSPI Universe = "kospi20"
	UniverseDow   Universe = "dow30"
	UniverseTest  Universe = "test" // Small set for testing
	// UniverseAll screens every symbol the data provider lists
	UniverseAll Universe = "all"
)

// GetUniverse returns the list of symbols for a given universe, nil for
// UniverseAll and unknown names
func GetUniverse(u Universe) []string {
	switch u {
	case UniverseKOSPI:
		return KOSPISymbols
	case UniverseDow:
		return DowSymbols
	case UniverseTest:
		return TestSymbols
	default:
		return nil
	}
}

// Universes returns the names of the predefined universes, sorted
func Universes() []string {
	names := []string{string(UniverseKOSPI), string(UniverseDow), string(UniverseTest), string(UniverseAll)}
	sort.Strings(names)
	return names
}

// TestSymbols is a small set for quick testing
var TestSymbols = []string{
	"005930", "000660", "005380", "105560", "017670",
}

// KOSPISymbols are twenty large KOSPI constituents by market cap
var KOSPISymbols = []string{
	"005930", // Samsung Electronics
	"000660", // SK hynix
	"005380", // Hyundai Motor
	"000270", // Kia
	"035420", // NAVER
	"051910", // LG Chem
	"006400", // Samsung SDI
	"068270", // Celltrion
	"105560", // KB Financial Group
	"055550", // Shinhan Financial Group
	"086790", // Hana Financial Group
	"012330", // Hyundai Mobis
	"028260", // Samsung C&T
	"066570", // LG Electronics
	"003550", // LG Corp
	"034730", // SK Inc
	"096770", // SK Innovation
	"017670", // SK Telecom
	"030200", // KT
	"015760", // KEPCO
}

// DowSymbols is the Dow Jones Industrial Average (as of 2024)
var DowSymbols = []string{
	"AAPL", "AMGN", "AMZN", "AXP", "BA", "CAT", "CRM", "CSCO", "CVX", "DIS",
	"GS", "HD", "HON", "IBM", "JNJ", "JPM", "KO", "MCD", "MMM", "MRK",
	"MSFT", "NKE", "NVDA", "PG", "SHW", "TRV", "UNH", "V", "VZ", "WMT",
}
