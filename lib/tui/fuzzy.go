// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"sort"
	"strings"
	"sync"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

var fuzzyInitOnce sync.Once

// FuzzyResult is the outcome of one fuzzy match. Score is zero when the
// pattern does not match. Positions are rune indices into the text, in
// ascending order.
type FuzzyResult struct {
	Score     int
	Positions []int
}

// FuzzyMatch matches pattern against text case-insensitively with
// fzf's V2 algorithm. An empty pattern matches everything with score
// 1. slab may be nil; pass one to reuse scratch memory across calls
// from a single goroutine.
func FuzzyMatch(text string, pattern []rune, slab *util.Slab) FuzzyResult {
	if len(pattern) == 0 {
		return FuzzyResult{Score: 1}
	}
	fuzzyInitOnce.Do(func() { algo.Init("default") })

	lowered := []rune(strings.ToLower(string(pattern)))
	chars := util.ToChars([]byte(text))
	result, positions := algo.FuzzyMatchV2(false, true, true, &chars, lowered, true, slab)
	if result.Start < 0 || result.Score <= 0 {
		return FuzzyResult{}
	}

	var sorted []int
	if positions != nil {
		sorted = append(sorted, (*positions)...)
		sort.Ints(sorted)
	}
	return FuzzyResult{Score: result.Score, Positions: sorted}
}

// Ranked is one candidate that survived FuzzyRank.
type Ranked struct {
	Index int
	FuzzyResult
}

// FuzzyRank matches query against every candidate and returns the
// matches ordered by descending score. Ties keep candidate order, so
// an empty query returns every candidate in its original order.
func FuzzyRank(candidates []string, query string) []Ranked {
	pattern := []rune(strings.TrimSpace(query))
	slab := util.MakeSlab(100*1024, 2048)
	var ranked []Ranked
	for index, candidate := range candidates {
		result := FuzzyMatch(candidate, pattern, slab)
		if result.Score > 0 {
			ranked = append(ranked, Ranked{Index: index, FuzzyResult: result})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}
