// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package taskview

import (
	"github.com/bureau-foundation/taskboard/lib/bm25"
	"github.com/bureau-foundation/taskboard/lib/schema/task"
)

// Field weights for ranked search. A title match counts twice a
// description match.
const (
	weightTitle       = 2
	weightDescription = 1
)

// Ranked pairs a task with its relevance to a query.
type Ranked struct {
	task.Task
	Score float64 `json:"score"`
}

// Rank returns up to limit tasks (0 for no limit) ordered by relevance
// to query, most relevant first. Tasks that match no query term are
// omitted. Equal scores keep table order.
//
// Rank complements [FilteredTasks]: both read title and description,
// but the filter is one exact substring test while Rank tokenizes and
// scores every query word.
func Rank(tasks []task.Task, query string, limit int) []Ranked {
	documents := make([]bm25.Document, len(tasks))
	byID := make(map[string]task.Task, len(tasks))
	for i, t := range tasks {
		documents[i] = taskDocument(t)
		byID[t.ID] = t
	}

	results := bm25.New(documents).Search(query, limit)
	ranked := make([]Ranked, len(results))
	for i, result := range results {
		ranked[i] = Ranked{Task: byID[result.Name], Score: result.Score}
	}
	return ranked
}

func taskDocument(t task.Task) bm25.Document {
	return bm25.Document{Name: t.ID, Fields: []bm25.Field{
		{Text: t.Title, Weight: weightTitle},
		{Text: t.Description, Weight: weightDescription},
	}}
}
