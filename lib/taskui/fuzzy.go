// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package taskui

import (
	"cmp"
	"slices"
	"strings"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"

	"github.com/bureau-foundation/taskboard/lib/schema/task"
)

// fuzzyScore is the result of matching one pattern against one text.
// Score is zero when the pattern does not match. Positions are rune
// indices into the text, ascending.
type fuzzyScore struct {
	Score     int
	Positions []int
}

// newSlab returns scratch space for repeated matches. A nil slab also
// works; fzf then allocates per call.
func newSlab() *util.Slab {
	return util.MakeSlab(100*1024, 2048)
}

// fuzzyMatch runs fzf's V2 algorithm case-insensitively. The pattern
// must already be lowercase.
func fuzzyMatch(input string, pattern []rune, slab *util.Slab) fuzzyScore {
	if len(pattern) == 0 {
		return fuzzyScore{}
	}
	chars := util.ToChars([]byte(input))
	result, positions := algo.FuzzyMatchV2(false, true, true, &chars, pattern, true, slab)
	if result.Start < 0 || result.Score <= 0 {
		return fuzzyScore{}
	}
	score := fuzzyScore{Score: result.Score}
	if positions != nil {
		score.Positions = slices.Clone(*positions)
		slices.Sort(score.Positions)
	}
	return score
}

// FilterModel is the "/" filter of the board tab. It narrows the
// deriver's filtered tasks further without a round trip through the
// session: the session search is a plain substring match, this one is
// fuzzy and ranks.
type FilterModel struct {
	Input  string
	Active bool
}

// filterMatch is one task that passed the filter.
type filterMatch struct {
	Task task.Task

	// Score is zero when the filter is empty.
	Score int

	// TitlePositions are the matched rune indices of the title, for
	// highlighting.
	TitlePositions []int
}

// Apply matches every task's title, description, and assignee name
// and keeps those where any field matched, best score first. Ties and
// the empty filter keep input order.
func (filter *FilterModel) Apply(tasks []task.Task, names map[string]string) []filterMatch {
	pattern := []rune(strings.ToLower(strings.TrimSpace(filter.Input)))
	matches := make([]filterMatch, 0, len(tasks))
	if len(pattern) == 0 {
		for _, t := range tasks {
			matches = append(matches, filterMatch{Task: t})
		}
		return matches
	}

	slab := newSlab()
	for _, t := range tasks {
		title := fuzzyMatch(t.Title, pattern, slab)
		best := title.Score
		for _, field := range []string{t.Description, names[t.AssignedTo], string(t.Status)} {
			if field == "" {
				continue
			}
			best = max(best, fuzzyMatch(field, pattern, slab).Score)
		}
		if best <= 0 {
			continue
		}
		matches = append(matches, filterMatch{Task: t, Score: best, TitlePositions: title.Positions})
	}
	slices.SortStableFunc(matches, func(a, b filterMatch) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return matches
}

// HandleRune appends a typed character.
func (filter *FilterModel) HandleRune(character rune) {
	filter.Input += string(character)
}

// HandleBackspace removes the last character. Returns false when the
// input was already empty.
func (filter *FilterModel) HandleBackspace() bool {
	runes := []rune(filter.Input)
	if len(runes) == 0 {
		return false
	}
	filter.Input = string(runes[:len(runes)-1])
	return true
}

// Clear empties and deactivates the filter.
func (filter *FilterModel) Clear() {
	filter.Input = ""
	filter.Active = false
}
