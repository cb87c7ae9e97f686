// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bm25

import (
	"cmp"
	"math"
	"regexp"
	"slices"
	"strings"
)

// Okapi parameters. epsilon floors the IDF of terms present in most
// documents.
const (
	paramK1      = 1.2
	paramB       = 0.75
	paramEpsilon = 0.25
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Field is one weighted piece of a document's text. Fields with a
// weight below 1 are not indexed.
type Field struct {
	Text   string
	Weight int
}

// Document is the unit of ranking. Name identifies it in results and
// is not itself searchable.
type Document struct {
	Name   string
	Fields []Field
}

// Result is one ranked hit.
type Result struct {
	Name string

	// Score is unbounded; only its order within one Search is
	// meaningful.
	Score float64
}

// Index holds per-document term statistics for one corpus.
type Index struct {
	names []string

	// frequencies[i] maps each term of document i to its count.
	frequencies []map[string]int
	lengths     []int
	averageLen  float64

	idf map[string]float64
}

// New indexes documents.
func New(documents []Document) *Index {
	index := &Index{
		names:       make([]string, len(documents)),
		frequencies: make([]map[string]int, len(documents)),
		lengths:     make([]int, len(documents)),
		idf:         make(map[string]float64),
	}

	containing := make(map[string]int)
	var total int
	for i, document := range documents {
		index.names[i] = document.Name
		tokens := weightedTokens(document)
		index.lengths[i] = len(tokens)
		total += len(tokens)

		counts := make(map[string]int)
		for _, token := range tokens {
			if counts[token] == 0 {
				containing[token]++
			}
			counts[token]++
		}
		index.frequencies[i] = counts
	}
	if len(documents) > 0 {
		index.averageLen = float64(total) / float64(len(documents))
	}

	corpus := float64(len(documents))
	for term, count := range containing {
		idf := math.Log(1 + (corpus-float64(count)+0.5)/(float64(count)+0.5))
		if idf < paramEpsilon {
			idf = paramEpsilon
		}
		index.idf[term] = idf
	}
	return index
}

// Search returns up to limit (0 for all) documents with a positive
// score for query, highest first. Documents with equal scores keep
// their indexing order.
func (index *Index) Search(query string, limit int) []Result {
	terms := Tokenize(query)
	if len(terms) == 0 {
		return nil
	}

	var results []Result
	for i, name := range index.names {
		if score := index.score(i, terms); score > 0 {
			results = append(results, Result{Name: name, Score: score})
		}
	}
	slices.SortStableFunc(results, func(a, b Result) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

func (index *Index) score(document int, terms []string) float64 {
	counts := index.frequencies[document]
	length := float64(index.lengths[document])

	var score float64
	for _, term := range terms {
		frequency := float64(counts[term])
		if frequency == 0 {
			continue
		}
		// idf * tf*(k1+1) / (tf + k1*(1 - b + b*len/avglen))
		normalization := paramK1 * (1 - paramB + paramB*length/index.averageLen)
		score += index.idf[term] * frequency * (paramK1 + 1) / (frequency + normalization)
	}
	return score
}

func weightedTokens(document Document) []string {
	var tokens []string
	for _, field := range document.Fields {
		if field.Weight < 1 {
			continue
		}
		fieldTokens := Tokenize(field.Text)
		for range field.Weight {
			tokens = append(tokens, fieldTokens...)
		}
	}
	return tokens
}

// Tokenize lowercases text and splits it into runs of letters and
// digits, dropping single-character runs.
func Tokenize(text string) []string {
	var tokens []string
	for _, match := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if len([]rune(match)) >= 2 {
			tokens = append(tokens, match)
		}
	}
	return tokens
}
