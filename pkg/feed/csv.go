package feed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/StudioSol/set"
	"github.com/samber/lo"

	"github.com/raykavin/stratfuse/pkg/core"
)

var (
	ErrUnknownInstrument = errors.New("unknown instrument")
	ErrEmptyFile         = errors.New("empty csv file")

	defaultHeaderMap = map[string]int{
		"time": 0, "open": 1, "close": 2, "low": 3, "high": 4, "volume": 5,
	}
	requiredHeaders = []string{"time", "open", "close", "low", "high", "volume"}
	dateLayouts     = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}
)

// InstrumentFeed describes the CSV file of one instrument
type InstrumentFeed struct {
	Instrument string
	File       string
	Timeframe  string
	Sector     core.SectorType
}

// Feed holds the bars of every loaded instrument keyed by instrument and timeframe
type Feed struct {
	feeds   map[string]InstrumentFeed
	targets []string
	candles map[string][]core.Candle
}

func key(instrument, timeframe string) string {
	return fmt.Sprintf("%s--%s", instrument, timeframe)
}

// Load reads every feed and resamples it to each of the higher timeframes
func Load(feeds []InstrumentFeed, timeframes ...string) (*Feed, error) {
	f := &Feed{
		feeds:   make(map[string]InstrumentFeed, len(feeds)),
		targets: uniqueTimeframes(timeframes),
		candles: make(map[string][]core.Candle),
	}

	for _, feed := range feeds {
		candles, err := readFile(feed)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", feed.File, err)
		}
		f.feeds[feed.Instrument] = feed
		f.candles[key(feed.Instrument, feed.Timeframe)] = candles

		for _, target := range f.targets {
			if target == feed.Timeframe {
				continue
			}
			resampled, err := Resample(candles, feed.Timeframe, target)
			if err != nil {
				return nil, fmt.Errorf("resample %s to %s: %w", feed.Instrument, target, err)
			}
			f.candles[key(feed.Instrument, target)] = resampled
		}
	}

	return f, nil
}

// uniqueTimeframes drops repeated timeframes keeping the configured order
func uniqueTimeframes(timeframes []string) []string {
	unique := set.NewLinkedHashSetString()
	for _, timeframe := range timeframes {
		unique.Add(timeframe)
	}

	out := make([]string, 0, len(timeframes))
	for timeframe := range unique.Iter() {
		out = append(out, timeframe)
	}
	return out
}

func readFile(feed InstrumentFeed) ([]core.Candle, error) {
	file, err := os.Open(feed.File)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Read(file, feed.Instrument)
}

// Read parses OHLCV rows. A header row is optional, without one the columns are
// time, open, close, low, high, volume. Time is unix seconds or a date.
func Read(r io.Reader, instrument string) ([]core.Candle, error) {
	lines, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyFile
	}

	headerMap, hasHeader, err := parseHeaders(lines[0])
	if err != nil {
		return nil, err
	}
	if hasHeader {
		lines = lines[1:]
	}

	candles := make([]core.Candle, 0, len(lines))
	for i, line := range lines {
		candle, err := parseCandle(line, headerMap, instrument)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		candles = append(candles, candle)
	}

	sort.SliceStable(candles, func(i, j int) bool { return candles[i].Time.Before(candles[j].Time) })
	return candles, nil
}

func parseHeaders(headers []string) (map[string]int, bool, error) {
	if _, err := parseTime(headers[0]); err == nil {
		return defaultHeaderMap, false, nil
	}

	headerMap := make(map[string]int, len(headers))
	for index, header := range headers {
		name := strings.ToLower(strings.TrimSpace(header))
		if name == "date" || name == "timestamp" {
			name = "time"
		}
		headerMap[name] = index
	}

	missing := lo.Filter(requiredHeaders, func(h string, _ int) bool {
		_, ok := headerMap[h]
		return !ok
	})
	if len(missing) > 0 {
		return nil, true, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return headerMap, true, nil
}

func parseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if ts, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Unix(ts, 0).UTC(), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", value)
}

func parseCandle(line []string, headerMap map[string]int, instrument string) (core.Candle, error) {
	field := func(name string) (string, error) {
		index := headerMap[name]
		if index >= len(line) {
			return "", fmt.Errorf("missing %s value", name)
		}
		return strings.TrimSpace(line[index]), nil
	}

	raw, err := field("time")
	if err != nil {
		return core.Candle{}, err
	}
	t, err := parseTime(raw)
	if err != nil {
		return core.Candle{}, err
	}

	candle := core.Candle{Instrument: instrument, Time: t}
	for name, target := range map[string]*float64{
		"open":   &candle.Open,
		"close":  &candle.Close,
		"low":    &candle.Low,
		"high":   &candle.High,
		"volume": &candle.Volume,
	} {
		raw, err := field(name)
		if err != nil {
			return core.Candle{}, err
		}
		if *target, err = strconv.ParseFloat(raw, 64); err != nil {
			return core.Candle{}, fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	return candle, nil
}

// Limit keeps only the bars inside the trailing duration of every series
func (f *Feed) Limit(duration time.Duration) *Feed {
	for k, candles := range f.candles {
		if len(candles) == 0 {
			continue
		}
		start := candles[len(candles)-1].Time.Add(-duration)
		f.candles[k] = lo.Filter(candles, func(candle core.Candle, _ int) bool {
			return candle.Time.After(start)
		})
	}
	return f
}

// Candles returns the bars of an instrument at a timeframe
func (f *Feed) Candles(instrument, timeframe string) []core.Candle {
	return f.candles[key(instrument, timeframe)]
}

// Instruments returns the loaded instruments in lexical order
func (f *Feed) Instruments() []string {
	instruments := lo.Keys(f.feeds)
	sort.Strings(instruments)
	return instruments
}

// Snapshot builds the analysis input of an instrument, the resampled series
// are attached as additional timeframes
func (f *Feed) Snapshot(instrument string) (core.Snapshot, error) {
	feed, ok := f.feeds[instrument]
	if !ok {
		return core.Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownInstrument, instrument)
	}

	snap := core.NewSnapshot(instrument, f.Candles(instrument, feed.Timeframe))
	snap.Sector = feed.Sector
	for _, target := range f.targets {
		if target == feed.Timeframe {
			continue
		}
		if candles := f.Candles(instrument, target); len(candles) > 0 {
			if snap.Timeframes == nil {
				snap.Timeframes = make(map[string]core.Dataframe)
			}
			snap.Timeframes[target] = core.NewDataframe(instrument, candles)
		}
	}
	return snap, nil
}

// Snapshots returns the snapshot of every instrument in lexical order
func (f *Feed) Snapshots() ([]core.Snapshot, error) {
	snaps := make([]core.Snapshot, 0, len(f.feeds))
	for _, instrument := range f.Instruments() {
		snap, err := f.Snapshot(instrument)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}
