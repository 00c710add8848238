// Package display renders a compiled score for the command line: a
// plain beat-map printer for --quiet/non-interactive use, and (in
// tui.go) a bubbletea inspector for interactive sessions.
//
// Ten bars per line, each 4-wide label right padded with the bar
// number, with leading blanks when the caller's first-bar number
// doesn't start on a multiple of ten, matching print_beat_map in the
// original Python driver. The box-drawn header printed above the beat
// map is kept from the score summary this package is adapted from.
package display

import (
	"fmt"
	"sort"
	"strings"

	"tbon/eval"
	"tbon/preeval"
)

// Summary is what PrintScore needs about one compiled score: the
// source filename, the per-part outputs, and the shared meta stream.
type Summary struct {
	Name  string
	Parts map[int]*preeval.PartTiming
	Notes map[int]*eval.PartOutput
	Meta  []preeval.MetaEvent
}

// PrintScore prints the box header and, unless quiet, each part's beat
// map.
func PrintScore(sum Summary, firstBar int, quiet bool) {
	noteCounts := make(map[int]int, len(sum.Notes))
	for n, out := range sum.Notes {
		noteCounts[n] = len(out.Notes)
	}
	printHeader(sum.Name, noteCounts, sum.Meta)

	if quiet {
		return
	}
	parts := make([]int, 0, len(sum.Parts))
	for n := range sum.Parts {
		parts = append(parts, n)
	}
	sort.Ints(parts)
	for _, n := range parts {
		PrintBeatMap(n, sum.Parts[n].BeatMap, firstBar)
	}
}

func printHeader(name string, noteCounts map[int]int, meta []preeval.MetaEvent) {
	info := fmt.Sprintf("%d part(s), %d meta event(s)", len(noteCounts), len(meta))
	maxLen := len(name)
	if len(info) > maxLen {
		maxLen = len(info)
	}
	fmt.Printf("┌─ %s %s┐\n", name, strings.Repeat("─", maxLen-len(name)+1))
	fmt.Printf("│ %s%s │\n", info, strings.Repeat(" ", maxLen-len(info)))
	fmt.Printf("└%s┘\n\n", strings.Repeat("─", maxLen+2))
}

// PrintBeatMap prints one part's beat map ten bars per line, labeled
// by absolute bar number, matching the reference driver's layout:
//
//	Part 1 Beat Map: Number of beats in each bar
//	   0:    4    4    4    4    4    4    3    3    4    4
//	  10:    4    4
func PrintBeatMap(partNum int, beatMap []int, firstBarNumber int) {
	fmt.Printf("Part %d Beat Map: Number of beats in each bar\n", partNum)
	for _, line := range formatBeatMap(beatMap, firstBarNumber) {
		fmt.Println(line)
	}
}

// formatBeatMap lays out beatMap ten bars per line, each field 4
// characters wide and labeled with its line's starting bar number; a
// firstBarNumber not itself a multiple of ten is padded with blanks so
// that the printed bar numbers line up with the map's absolute
// position.
func formatBeatMap(beatMap []int, firstBarNumber int) []string {
	const pad = "    "
	barNumber := 10 * (firstBarNumber / 10)
	padCount := firstBarNumber % 10

	remapped := make([]string, 0, padCount+len(beatMap))
	for i := 0; i < padCount; i++ {
		remapped = append(remapped, pad)
	}
	for _, n := range beatMap {
		remapped = append(remapped, fmt.Sprintf("%4d", n))
	}

	var lines []string
	for i := 0; i < len(remapped); i += 10 {
		end := i + 10
		if end > len(remapped) {
			end = len(remapped)
		}
		line := []string{fmt.Sprintf("%4d:", barNumber)}
		line = append(line, remapped[i:end]...)
		lines = append(lines, strings.Join(line, " "))
		barNumber += 10
	}
	if len(lines) == 0 {
		lines = append(lines, fmt.Sprintf("%4d:", barNumber))
	}
	return lines
}
