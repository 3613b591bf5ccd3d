package backtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/marginsim/market"
)

// Feed yields daily observations in file order. Implementations return
// (ok=false, err=nil) at EOF.
type Feed interface {
	Next() (obs market.DailyObservation, ok bool, err error)
	Close() error
}

// CSVFeed reads daily rows:
//
//	date,price[,dividend,reference_rate,borrow_rate]
//
// where date is YYYY-MM-DD or RFC3339 and rates are annual percentages.
// An empty price or rate becomes NaN so the row is dropped when the series
// is built; an empty dividend is zero. A header row ("date,...") is allowed
// and empty rows are skipped. Rows are filtered to [from, to] inclusive
// when either bound is set.
type CSVFeed struct {
	f    *os.File
	r    *csv.Reader
	from time.Time
	to   time.Time

	sawFirst bool
	line     int
}

func NewCSVFeed(path string, from, to time.Time) (*CSVFeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	return &CSVFeed{f: f, r: r, from: from, to: to}, nil
}

func (f *CSVFeed) Close() error {
	if f.f != nil {
		return f.f.Close()
	}
	return nil
}

func (f *CSVFeed) Next() (market.DailyObservation, bool, error) {
	for {
		row, err := f.r.Read()
		if err == io.EOF {
			return market.DailyObservation{}, false, nil
		}
		if err != nil {
			return market.DailyObservation{}, false, err
		}
		f.line++
		if len(row) == 0 {
			continue
		}

		if !f.sawFirst {
			f.sawFirst = true
			if strings.EqualFold(strings.TrimSpace(row[0]), "date") {
				continue
			}
		}

		obs, ok, err := parseDailyRow(row)
		if err != nil {
			return market.DailyObservation{}, false, fmt.Errorf("line %d: %w", f.line, err)
		}
		if !ok {
			continue
		}
		if !inRange(obs.Date, f.from, f.to) {
			continue
		}
		return obs, true, nil
	}
}

func parseDailyRow(row []string) (market.DailyObservation, bool, error) {
	if len(row) < 2 {
		return market.DailyObservation{}, false, nil
	}

	ds := strings.TrimSpace(row[0])
	if ds == "" {
		return market.DailyObservation{}, false, nil
	}
	date, err := parseDate(ds)
	if err != nil {
		return market.DailyObservation{}, false, err
	}

	obs := market.DailyObservation{Date: date}
	if obs.Price, err = field(row, 1, "price", math.NaN()); err != nil {
		return market.DailyObservation{}, false, err
	}
	if obs.Dividend, err = field(row, 2, "dividend", 0); err != nil {
		return market.DailyObservation{}, false, err
	}
	if obs.Dividend < 0 || math.IsNaN(obs.Dividend) || math.IsInf(obs.Dividend, 0) {
		return market.DailyObservation{}, false, fmt.Errorf("bad dividend %q", row[2])
	}
	if obs.ReferenceRate, err = field(row, 3, "reference_rate", math.NaN()); err != nil {
		return market.DailyObservation{}, false, err
	}
	if obs.BorrowRate, err = field(row, 4, "borrow_rate", math.NaN()); err != nil {
		return market.DailyObservation{}, false, err
	}
	return obs, true, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(market.DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q: %w", s, err)
	}
	return market.Day(t), nil
}

// field parses column i, returning def when it is absent or blank.
func field(row []string, i int, name string, def float64) (float64, error) {
	if i >= len(row) {
		return def, nil
	}
	s := strings.TrimSpace(row[i])
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("bad %s %q: %w", name, s, err)
	}
	return v, nil
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}

// SliceFeed replays rows held in memory.
type SliceFeed struct {
	rows []market.DailyObservation
	i    int
}

func NewSliceFeed(rows []market.DailyObservation) *SliceFeed {
	return &SliceFeed{rows: rows}
}

func (s *SliceFeed) Next() (market.DailyObservation, bool, error) {
	if s.i >= len(s.rows) {
		return market.DailyObservation{}, false, nil
	}
	o := s.rows[s.i]
	s.i++
	return o, true, nil
}

func (s *SliceFeed) Close() error { return nil }

// ReadAll drains and closes a feed.
func ReadAll(f Feed) ([]market.DailyObservation, error) {
	defer f.Close()

	var rows []market.DailyObservation
	for {
		o, ok, err := f.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return rows, nil
		}
		rows = append(rows, o)
	}
}

// Prepare restricts rows to [from, to] (either bound may be zero), fills a
// missing borrow rate as reference rate plus spread and builds the series.
func Prepare(rows []market.DailyObservation, from, to time.Time, spread float64) (market.Series, error) {
	out := make([]market.DailyObservation, 0, len(rows))
	for _, o := range rows {
		if !inRange(market.Day(o.Date), from, to) {
			continue
		}
		if math.IsNaN(o.BorrowRate) && !math.IsNaN(o.ReferenceRate) {
			o.BorrowRate = o.ReferenceRate + spread
		}
		out = append(out, o)
	}
	return market.NewSeries(out)
}

// LoadCSV reads a CSV file and prepares it in one step.
func LoadCSV(path string, from, to time.Time, spread float64) (market.Series, error) {
	f, err := NewCSVFeed(path, from, to)
	if err != nil {
		return market.Series{}, err
	}
	rows, err := ReadAll(f)
	if err != nil {
		return market.Series{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Prepare(rows, from, to, spread)
}
