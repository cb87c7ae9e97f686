// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package taskui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/bureau-foundation/taskboard/lib/schema/task"
)

// Theme is the color palette of the board. All colors are ANSI
// 256-color codes.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	StatusOpen       lipgloss.Color
	StatusInProgress lipgloss.Color
	StatusInReview   lipgloss.Color
	StatusCompleted  lipgloss.Color
	StatusClosed     lipgloss.Color

	// Overdue marks tasks past their due date.
	Overdue lipgloss.Color

	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color

	// FilterMatch colors the characters the filter matched.
	FilterMatch lipgloss.Color
}

// StatusColor returns the color for status, or FaintText for values
// outside the five known statuses.
func (theme Theme) StatusColor(status task.Status) lipgloss.Color {
	switch status {
	case task.StatusOpen:
		return theme.StatusOpen
	case task.StatusInProgress:
		return theme.StatusInProgress
	case task.StatusInReview:
		return theme.StatusInReview
	case task.StatusCompleted:
		return theme.StatusCompleted
	case task.StatusClosed:
		return theme.StatusClosed
	default:
		return theme.FaintText
	}
}

// DefaultTheme is the dark-terminal scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	StatusOpen:       lipgloss.Color("114"), // green
	StatusInProgress: lipgloss.Color("220"), // amber
	StatusInReview:   lipgloss.Color("141"), // light purple
	StatusCompleted:  lipgloss.Color("75"),  // blue
	StatusClosed:     lipgloss.Color("245"), // gray

	Overdue: lipgloss.Color("196"),

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),

	FilterMatch: lipgloss.Color("214"),
}

// statusIcon is the one-column marker drawn before a task title.
func statusIcon(status task.Status) string {
	switch status {
	case task.StatusInProgress:
		return "●"
	case task.StatusInReview:
		return "◐"
	case task.StatusCompleted:
		return "◆"
	case task.StatusClosed:
		return "✓"
	default:
		return "○"
	}
}
