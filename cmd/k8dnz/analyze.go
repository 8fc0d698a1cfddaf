package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

// analyze is one of spec.md §3's named "external collaborator" reporters:
// the spec only specifies the deterministic core it reads from
// (ByteStream), not this command's own presentation logic.
var analyzeFlags struct {
	input string
	topN  int
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Summarize a byte stream's symbol histogram",
	RunE:  runAnalyze,
}

func init() {
	fs := analyzeCmd.Flags()
	fs.StringVar(&analyzeFlags.input, "in", "", "input byte stream path (required)")
	fs.IntVar(&analyzeFlags.topN, "top", 8, "number of most frequent symbols to print")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if analyzeFlags.input == "" {
		return fmt.Errorf("analyze: --in is required")
	}
	data, err := readFile(analyzeFlags.input)
	if err != nil {
		return err
	}
	var hist [256]int
	for _, b := range data {
		hist[b]++
	}
	type bucket struct {
		symbol byte
		count  int
	}
	buckets := make([]bucket, 0, 256)
	distinct := 0
	for sym, n := range hist {
		if n > 0 {
			buckets = append(buckets, bucket{symbol: byte(sym), count: n})
			distinct++
		}
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].count > buckets[j].count })

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "total_bytes:     %d\n", len(data))
	fmt.Fprintf(w, "distinct_symbols: %d\n", distinct)
	n := analyzeFlags.topN
	if n > len(buckets) {
		n = len(buckets)
	}
	for i := 0; i < n; i++ {
		b := buckets[i]
		fmt.Fprintf(w, "  %#02x: %d (%.2f%%)\n", b.symbol, b.count, 100*float64(b.count)/float64(len(data)))
	}
	return nil
}
