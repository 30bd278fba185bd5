package price

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/TeneoProtocolAI/staking-rewards/internal/core/domain"
)

// ErrDatasetMissing is returned by Load when no file exists for a pair.
var ErrDatasetMissing = errors.New("price dataset missing")

var _ domain.SeriesStore = (*FileStore)(nil)

// datasetFile mirrors the CoinGecko market_chart payload:
//
//	{"prices": [[1590969600000, 4.81], [1591056000000, 4.93]]}
type datasetFile struct {
	Prices [][2]json.Number `json:"prices"`
}

// FileStore keeps one JSON dataset per (currency, coin) under a root directory,
// laid out as <root>/<currency>/<coin>.json.
type FileStore struct {
	root string
}

func NewFileStore(root string) *FileStore {
	if root == "" {
		root = filepath.Join("data", "prices")
	}
	return &FileStore{root: root}
}

// Path returns the dataset file for a pair.
func (s *FileStore) Path(currency, coin string) string {
	return filepath.Join(s.root, strings.ToLower(currency), strings.ToLower(coin)+".json")
}

// Load reads and parses a stored dataset.
func (s *FileStore) Load(currency, coin string) (*domain.PriceSeries, error) {
	data, err := os.ReadFile(s.Path(currency, coin))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrDatasetMissing
		}
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}

	var file datasetFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}

	series := &domain.PriceSeries{
		Coin:      strings.ToUpper(coin),
		Currency:  strings.ToLower(currency),
		Snapshots: make([]domain.PriceSnapshot, 0, len(file.Prices)),
	}
	for i, point := range file.Prices {
		ms, err := point[0].Int64()
		if err != nil {
			// some exports carry fractional millisecond timestamps
			f, ferr := point[0].Float64()
			if ferr != nil {
				return nil, fmt.Errorf("entry %d: bad timestamp %q", i, point[0])
			}
			ms = int64(f)
		}
		price, err := decimal.NewFromString(point[1].String())
		if err != nil {
			return nil, fmt.Errorf("entry %d: bad price %q: %w", i, point[1], err)
		}
		series.Snapshots = append(series.Snapshots, domain.PriceSnapshot{Day: time.UnixMilli(ms), Price: price})
	}
	return series, nil
}

// Save overwrites the dataset for the series' pair atomically.
func (s *FileStore) Save(series *domain.PriceSeries) error {
	file := datasetFile{Prices: make([][2]json.Number, 0, len(series.Snapshots))}
	for _, snap := range series.Snapshots {
		file.Prices = append(file.Prices, [2]json.Number{
			json.Number(fmt.Sprintf("%d", snap.Day.UnixMilli())),
			json.Number(snap.Price.String()),
		})
	}
	data, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to marshal dataset: %w", err)
	}

	path := s.Path(series.Currency, series.Coin)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create dataset directory: %w", err)
	}

	// Write to temp file first for atomic operation
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp dataset: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save dataset: %w", err)
	}
	return nil
}
