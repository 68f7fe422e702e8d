package marketdata

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validCSV = `date,open,high,low,close,volume
2024-01-03,101,103,100,102,1200
2024-01-02,100,102,99,101,1000
`

func TestReadBarsCSV_ValidSortedByDate(t *testing.T) {
	bars, err := ReadBarsCSV(strings.NewReader(validCSV), "AAPL")
	if err != nil {
		t.Fatalf("ReadBarsCSV: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("got %d bars, want 2", len(bars))
	}
	if bars[0].Date != "2024-01-02" || bars[1].Date != "2024-01-03" {
		t.Errorf("bars not sorted: %s, %s", bars[0].Date, bars[1].Date)
	}
	if bars[0].Symbol != "AAPL" {
		t.Errorf("symbol = %s, want AAPL", bars[0].Symbol)
	}
	if bars[0].Close != 101 || bars[0].Volume != 1000 {
		t.Errorf("bar fields wrong: %+v", bars[0])
	}
}

func TestReadBarsCSV_Rejections(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{
			name: "wrong header",
			csv:  "date,open,close\n2024-01-02,100,101\n",
		},
		{
			name: "duplicate date",
			csv:  "date,open,high,low,close,volume\n2024-01-02,100,102,99,101,1000\n2024-01-02,101,103,100,102,1000\n",
		},
		{
			name: "bad date",
			csv:  "date,open,high,low,close,volume\n01/02/2024,100,102,99,101,1000\n",
		},
		{
			name: "non-numeric price",
			csv:  "date,open,high,low,close,volume\n2024-01-02,abc,102,99,101,1000\n",
		},
		{
			name: "non-positive price",
			csv:  "date,open,high,low,close,volume\n2024-01-02,0,102,99,101,1000\n",
		},
		{
			name: "low above high",
			csv:  "date,open,high,low,close,volume\n2024-01-02,100,99,102,101,1000\n",
		},
		{
			name: "negative volume",
			csv:  "date,open,high,low,close,volume\n2024-01-02,100,102,99,101,-5\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadBarsCSV(strings.NewReader(tt.csv), "AAPL"); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestReadBarsCSV_EmptySymbol(t *testing.T) {
	if _, err := ReadBarsCSV(strings.NewReader(validCSV), ""); err == nil {
		t.Error("expected error for empty symbol")
	}
}

func TestLoadBarsDir(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"aapl.csv": validCSV,
		"MSFT.csv": "date,open,high,low,close,volume\n2024-01-02,300,302,299,301,2000\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
	}

	series, err := LoadBarsDir(dir)
	if err != nil {
		t.Fatalf("LoadBarsDir: %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("got %d symbols, want 2", len(series))
	}
	if len(series["AAPL"]) != 2 {
		t.Errorf("AAPL bars = %d, want 2", len(series["AAPL"]))
	}
	if len(series["MSFT"]) != 1 {
		t.Errorf("MSFT bars = %d, want 1", len(series["MSFT"]))
	}
}

func TestLoadBarsDir_Empty(t *testing.T) {
	if _, err := LoadBarsDir(t.TempDir()); err == nil {
		t.Error("expected error for empty directory")
	}
}
