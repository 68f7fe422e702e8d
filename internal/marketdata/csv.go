package marketdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"equity-anomaly-lab/internal/domain"
)

// csvHeader is the required column order for bar CSV files.
var csvHeader = []string{"date", "open", "high", "low", "close", "volume"}

// ReadBarsCSV parses daily bars for one symbol from CSV. The first row must
// be the header date,open,high,low,close,volume. Rows are validated,
// deduplicated by date and returned sorted date ascending.
func ReadBarsCSV(r io.Reader, symbol string) ([]*domain.Bar, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if err := validateHeader(header); err != nil {
		return nil, err
	}

	var bars []*domain.Bar
	seen := make(map[string]struct{})

	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}

		bar, err := parseBarRecord(record, symbol)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		if _, dup := seen[bar.Date]; dup {
			return nil, fmt.Errorf("line %d: duplicate date %s", line, bar.Date)
		}
		seen[bar.Date] = struct{}{}
		bars = append(bars, bar)
	}

	// ISO dates sort lexically in chronological order.
	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Date < bars[j].Date
	})
	return bars, nil
}

// LoadBarsFile reads one symbol's bars from a CSV file. The symbol is the
// file's base name without extension, uppercased.
func LoadBarsFile(path string) (string, []*domain.Bar, error) {
	symbol := strings.ToUpper(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))

	f, err := os.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	bars, err := ReadBarsCSV(f, symbol)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", path, err)
	}
	return symbol, bars, nil
}

// LoadBarsDir reads every *.csv file in a directory, one symbol per file.
func LoadBarsDir(dir string) (map[string][]*domain.Bar, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no csv files in %s", dir)
	}

	series := make(map[string][]*domain.Bar, len(paths))
	for _, path := range paths {
		symbol, bars, err := LoadBarsFile(path)
		if err != nil {
			return nil, err
		}
		if _, dup := series[symbol]; dup {
			return nil, fmt.Errorf("duplicate symbol %s in %s", symbol, dir)
		}
		series[symbol] = bars
	}
	return series, nil
}

func validateHeader(header []string) error {
	if len(header) != len(csvHeader) {
		return fmt.Errorf("expected %d columns, got %d", len(csvHeader), len(header))
	}
	for i, want := range csvHeader {
		if strings.ToLower(strings.TrimSpace(header[i])) != want {
			return fmt.Errorf("expected column %d to be %q, got %q", i+1, want, header[i])
		}
	}
	return nil
}

func parseBarRecord(record []string, symbol string) (*domain.Bar, error) {
	if len(record) != len(csvHeader) {
		return nil, fmt.Errorf("expected %d fields, got %d", len(csvHeader), len(record))
	}

	date := strings.TrimSpace(record[0])
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("invalid date %q", date)
	}

	values := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[i+1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q", csvHeader[i+1], record[i+1])
		}
		values[i] = v
	}

	bar := &domain.Bar{
		Symbol: symbol,
		Date:   date,
		Open:   values[0],
		High:   values[1],
		Low:    values[2],
		Close:  values[3],
		Volume: values[4],
	}

	if bar.Open <= 0 || bar.High <= 0 || bar.Low <= 0 || bar.Close <= 0 {
		return nil, fmt.Errorf("non-positive price on %s", date)
	}
	if bar.Low > bar.High {
		return nil, fmt.Errorf("low %v above high %v on %s", bar.Low, bar.High, date)
	}
	if bar.Volume < 0 {
		return nil, fmt.Errorf("negative volume on %s", date)
	}
	return bar, nil
}
