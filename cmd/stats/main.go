package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"automove/pkg/automove"
)

type sourceStats struct {
	decisions int
	failed    int
	noMove    int
	totalUs   int64
	maxUs     int64
	moves     map[string]int
	errors    map[string]int
}

func newSourceStats() *sourceStats {
	return &sourceStats{
		moves:  make(map[string]int),
		errors: make(map[string]int),
	}
}

func (s *sourceStats) Add(record automove.DecisionRecord) {
	s.decisions++
	s.totalUs += record.ElapsedUs
	if record.ElapsedUs > s.maxUs {
		s.maxUs = record.ElapsedUs
	}
	switch {
	case record.Error != "":
		s.failed++
		s.errors[record.Error]++
	case record.Move == "":
		s.noMove++
	default:
		s.moves[record.Move]++
	}
}

func (s *sourceStats) MeanLatency() time.Duration {
	if s.decisions == 0 {
		return 0
	}
	return time.Duration(s.totalUs/int64(s.decisions)) * time.Microsecond
}

type countEntry struct {
	key   string
	count int
}

func topCounts(counts map[string]int, n int) []countEntry {
	entries := make([]countEntry, 0, len(counts))
	for key, count := range counts {
		entries = append(entries, countEntry{key, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].key < entries[j].key
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

func main() {
	parquetPath := flag.String("parquet", "", "decision journal parquet file")
	top := flag.Int("top", 10, "number of most frequent moves to print")
	flag.Parse()

	if *parquetPath == "" {
		fatal(fmt.Errorf("-parquet is required"))
	}
	if *top <= 0 {
		fatal(fmt.Errorf("top must be > 0"))
	}

	records, err := automove.ReadJournal(*parquetPath, 4)
	if err != nil {
		fatal(err)
	}

	bySource := make(map[string]*sourceStats)
	all := newSourceStats()
	var first, last int64
	for i, record := range records {
		if i == 0 || record.UnixMillis < first {
			first = record.UnixMillis
		}
		if record.UnixMillis > last {
			last = record.UnixMillis
		}
		src := record.Source
		if src == "" {
			src = "(none)"
		}
		stats, ok := bySource[src]
		if !ok {
			stats = newSourceStats()
			bySource[src] = stats
		}
		stats.Add(record)
		all.Add(record)
	}

	fmt.Printf("input parquet: %s\n", *parquetPath)
	fmt.Printf("decisions: %d\n", all.decisions)
	if all.decisions > 0 {
		span := time.Duration(last-first) * time.Millisecond
		fmt.Printf("span: %s\n", span)
	}
	fmt.Printf("failed: %d\n", all.failed)
	fmt.Printf("no move: %d\n", all.noMove)
	fmt.Printf("mean latency: %s\n", all.MeanLatency())

	fmt.Println("per source (source,decisions,failed,no_move,mean_us,max_us):")
	sources := make([]string, 0, len(bySource))
	for src := range bySource {
		sources = append(sources, src)
	}
	sort.Strings(sources)
	for _, src := range sources {
		s := bySource[src]
		fmt.Printf("%s,%d,%d,%d,%d,%d\n", src, s.decisions, s.failed, s.noMove, s.MeanLatency().Microseconds(), s.maxUs)
	}

	fmt.Printf("top moves (move,count):\n")
	for _, e := range topCounts(all.moves, *top) {
		fmt.Printf("%s,%d\n", e.key, e.count)
	}
	if len(all.errors) > 0 {
		fmt.Printf("errors (message,count):\n")
		for _, e := range topCounts(all.errors, *top) {
			fmt.Printf("%q,%d\n", e.key, e.count)
		}
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
