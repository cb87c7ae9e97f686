// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package taskui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/taskboard/lib/schema/task"
	"github.com/bureau-foundation/taskboard/lib/taskview"
)

// Source is the deriver the board watches and steers.
// *taskview.Deriver satisfies it.
type Source interface {
	Watch() (<-chan taskview.Projection, func())
	Session() taskview.Session
	SetSession(taskview.Session)
}

// Tab identifies the list shown in the left pane.
type Tab int

const (
	// TabBoard lists the session's filtered tasks.
	TabBoard Tab = iota
	// TabDashboard lists the actor's dashboard buckets.
	TabDashboard
)

type focusRegion int

const (
	focusList focusRegion = iota
	focusDetail
	focusFilter
)

// chromeHeight is the header, separator, and help lines.
const chromeHeight = 3

// statusCycle is the order the status filter steps through.
var statusCycle = append([]string{taskview.StatusAll}, func() []string {
	statuses := make([]string, len(task.Statuses))
	for index, status := range task.Statuses {
		statuses[index] = string(status)
	}
	return statuses
}()...)

// projectionMsg delivers a projection through the bubbletea loop.
type projectionMsg struct {
	projection taskview.Projection
}

// listItem is one row of the list pane: a section header or a task.
type listItem struct {
	header string
	match  filterMatch
}

func (item listItem) isHeader() bool { return item.header != "" }

// Model is the bubbletea model of the board.
type Model struct {
	source  Source
	updates <-chan taskview.Projection
	stop    func()

	theme Theme
	keys  KeyMap

	projection taskview.Projection
	names      map[string]string

	tab    Tab
	focus  focusRegion
	filter FilterModel

	items      []listItem
	cursor     int
	listOffset int
	selectedID string

	detail       []string
	detailOffset int

	width  int
	height int
	ready  bool
}

// NewModel subscribes to source. Call Close when the program exits.
func NewModel(source Source) Model {
	updates, stop := source.Watch()
	return Model{
		source:  source,
		updates: updates,
		stop:    stop,
		theme:   DefaultTheme,
		keys:    DefaultKeyMap,
		names:   map[string]string{},
	}
}

// Close stops the subscription.
func (model Model) Close() {
	model.stop()
}

// Init implements tea.Model.
func (model Model) Init() tea.Cmd {
	return listen(model.updates)
}

func listen(updates <-chan taskview.Projection) tea.Cmd {
	return func() tea.Msg {
		projection, ok := <-updates
		if !ok {
			return nil
		}
		return projectionMsg{projection: projection}
	}
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case projectionMsg:
		model.applyProjection(message.projection)
		return model, listen(model.updates)

	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.ready = true
		model.ensureCursorVisible()
		model.syncDetail()

	case tea.KeyMsg:
		if model.focus == focusFilter {
			model.handleFilterKeys(message)
			return model, nil
		}
		switch {
		case key.Matches(message, model.keys.Quit):
			return model, tea.Quit
		case key.Matches(message, model.keys.FocusToggle):
			if model.focus == focusList {
				model.focus = focusDetail
			} else {
				model.focus = focusList
			}
		case key.Matches(message, model.keys.TabBoard):
			model.switchTab(TabBoard)
		case key.Matches(message, model.keys.TabDashboard):
			model.switchTab(TabDashboard)
		case key.Matches(message, model.keys.StatusCycle):
			model.cycleStatus()
		case key.Matches(message, model.keys.FilterActivate):
			model.focus = focusFilter
			model.filter.Active = true
		case key.Matches(message, model.keys.FilterClear):
			if model.filter.Input != "" {
				model.filter.Clear()
				model.rebuild()
			}
		case model.focus == focusDetail:
			model.handleDetailKeys(message)
		default:
			model.handleListKeys(message)
		}
	}
	return model, nil
}

func (model *Model) applyProjection(projection taskview.Projection) {
	model.projection = projection
	model.names = make(map[string]string, len(projection.Users))
	for _, user := range projection.Users {
		model.names[user.ID] = user.Name
	}
	model.rebuild()
}

// rebuild recomputes the list rows and keeps the cursor on the
// previously selected task when it is still listed.
func (model *Model) rebuild() {
	model.items = model.buildItems()

	index := slices.IndexFunc(model.items, func(item listItem) bool {
		return !item.isHeader() && item.match.Task.ID == model.selectedID
	})
	if index < 0 {
		index = model.seek(min(model.cursor, len(model.items)-1), 1)
		if index < 0 {
			index = model.seek(len(model.items)-1, -1)
		}
	}
	model.cursor = max(index, 0)
	model.selectionChanged(model.selectedID)
}

func (model *Model) buildItems() []listItem {
	if model.tab == TabBoard {
		matches := model.filter.Apply(model.projection.Filtered, model.names)
		items := make([]listItem, len(matches))
		for index, match := range matches {
			items[index] = listItem{match: match}
		}
		return items
	}

	buckets := model.projection.Buckets
	sections := []struct {
		title string
		tasks []task.Task
	}{
		{"Overdue", buckets.Overdue},
		{"Assigned to me", buckets.AssignedToMe},
		{"Created by me", buckets.CreatedByMe},
		{"Completed by me", buckets.CompletedByMe},
	}
	var items []listItem
	for _, section := range sections {
		matches := model.filter.Apply(section.tasks, model.names)
		items = append(items, listItem{header: fmt.Sprintf("%s (%d)", section.title, len(matches))})
		for _, match := range matches {
			items = append(items, listItem{match: match})
		}
	}
	return items
}

// seek returns the first task row at or after from (direction 1) or
// at or before it (direction -1), or -1.
func (model *Model) seek(from, direction int) int {
	for index := from; index >= 0 && index < len(model.items); index += direction {
		if !model.items[index].isHeader() {
			return index
		}
	}
	return -1
}

// selected returns the task under the cursor.
func (model *Model) selected() (task.Task, bool) {
	if model.cursor < 0 || model.cursor >= len(model.items) || model.items[model.cursor].isHeader() {
		return task.Task{}, false
	}
	return model.items[model.cursor].match.Task, true
}

// selectionChanged records the task under the cursor. The detail pane
// scrolls back to the top when a different task is selected.
func (model *Model) selectionChanged(previousID string) {
	current, ok := model.selected()
	model.selectedID = ""
	if ok {
		model.selectedID = current.ID
	}
	if model.selectedID != previousID {
		model.detailOffset = 0
	}
	model.ensureCursorVisible()
	model.syncDetail()
}

func (model *Model) move(delta int) {
	if len(model.items) == 0 {
		return
	}
	target := min(max(model.cursor+delta, 0), len(model.items)-1)
	direction := 1
	if delta < 0 {
		direction = -1
	}
	index := model.seek(target, direction)
	if index < 0 {
		index = model.seek(target, -direction)
	}
	if index >= 0 {
		model.cursor = index
	}
	model.selectionChanged(model.selectedID)
}

func (model *Model) handleListKeys(message tea.KeyMsg) {
	switch {
	case key.Matches(message, model.keys.Up):
		model.move(-1)
	case key.Matches(message, model.keys.Down):
		model.move(1)
	case key.Matches(message, model.keys.PageUp):
		model.move(-model.contentHeight())
	case key.Matches(message, model.keys.PageDown):
		model.move(model.contentHeight())
	case key.Matches(message, model.keys.Home):
		model.move(-len(model.items))
	case key.Matches(message, model.keys.End):
		model.move(len(model.items))
	}
}

func (model *Model) handleDetailKeys(message tea.KeyMsg) {
	lastOffset := max(len(model.detail)-model.contentHeight(), 0)
	switch {
	case key.Matches(message, model.keys.Up):
		model.detailOffset--
	case key.Matches(message, model.keys.Down):
		model.detailOffset++
	case key.Matches(message, model.keys.PageUp):
		model.detailOffset -= model.contentHeight()
	case key.Matches(message, model.keys.PageDown):
		model.detailOffset += model.contentHeight()
	case key.Matches(message, model.keys.Home):
		model.detailOffset = 0
	case key.Matches(message, model.keys.End):
		model.detailOffset = lastOffset
	}
	model.detailOffset = min(max(model.detailOffset, 0), lastOffset)
}

// handleFilterKeys edits the filter. Enter keeps the filter and
// returns to the list; Esc discards it.
func (model *Model) handleFilterKeys(message tea.KeyMsg) {
	switch message.Type {
	case tea.KeyEsc:
		model.filter.Clear()
		model.focus = focusList
	case tea.KeyEnter:
		model.filter.Active = false
		model.focus = focusList
		return
	case tea.KeyBackspace:
		if !model.filter.HandleBackspace() {
			return
		}
	case tea.KeySpace:
		model.filter.HandleRune(' ')
	case tea.KeyRunes:
		for _, character := range message.Runes {
			model.filter.HandleRune(character)
		}
	default:
		return
	}
	model.cursor = 0
	model.listOffset = 0
	model.rebuild()
}

func (model *Model) switchTab(tab Tab) {
	if model.tab == tab {
		return
	}
	model.tab = tab
	model.cursor = 0
	model.listOffset = 0
	model.rebuild()
}

// cycleStatus moves the session to the next status filter. The list
// changes when the deriver publishes the resulting projection.
func (model *Model) cycleStatus() {
	session := model.source.Session()
	current := session.StatusFilter
	if current == "" {
		current = taskview.StatusAll
	}
	next := (slices.Index(statusCycle, current) + 1) % len(statusCycle)
	session.StatusFilter = statusCycle[next]
	model.source.SetSession(session)
}

func (model *Model) syncDetail() {
	selected, ok := model.selected()
	if !ok || !model.ready {
		model.detail = nil
		return
	}
	model.detail = RenderDetail(selected, model.names, model.projection.DerivedAt, model.theme, max(model.detailWidth()-2, 10))
	model.detailOffset = min(model.detailOffset, max(len(model.detail)-model.contentHeight(), 0))
}

func (model Model) contentHeight() int {
	return max(model.height-chromeHeight, 1)
}

func (model Model) listWidth() int {
	return model.width * 45 / 100
}

func (model Model) detailWidth() int {
	return max(model.width-model.listWidth()-1, 0)
}

func (model *Model) ensureCursorVisible() {
	height := model.contentHeight()
	if model.cursor < model.listOffset {
		model.listOffset = model.cursor
	}
	if model.cursor >= model.listOffset+height {
		model.listOffset = model.cursor - height + 1
	}
	model.listOffset = max(min(model.listOffset, len(model.items)-height), 0)
}

// View implements tea.Model.
func (model Model) View() string {
	if !model.ready {
		return "Loading..."
	}
	content := lipgloss.JoinHorizontal(lipgloss.Top,
		model.renderList(),
		model.renderDivider(),
		model.renderDetailPane(),
	)
	separator := lipgloss.NewStyle().Foreground(model.theme.BorderColor).Render(strings.Repeat("─", model.width))
	return strings.Join([]string{model.renderHeader(), content, separator, model.renderHelp()}, "\n")
}

func (model Model) renderHeader() string {
	if model.filter.Active || model.filter.Input != "" {
		prompt := " filter: " + model.filter.Input
		if model.filter.Active {
			prompt = " / " + model.filter.Input + lipgloss.NewStyle().Bold(true).Foreground(model.theme.HeaderForeground).Render("▎")
		}
		return fit(lipgloss.NewStyle().Foreground(model.theme.NormalText).Render(prompt), model.width)
	}

	active := lipgloss.NewStyle().Bold(true).Foreground(model.theme.HeaderForeground)
	inactive := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	tabs := []struct {
		tab   Tab
		label string
	}{{TabBoard, "1:Board"}, {TabDashboard, "2:Dashboard"}}
	var left []string
	for _, tab := range tabs {
		if tab.tab == model.tab {
			left = append(left, active.Render(tab.label))
		} else {
			left = append(left, inactive.Render(tab.label))
		}
	}

	stats := "syncing…"
	if model.projection.Ready {
		statusFilter := model.projection.Session.StatusFilter
		if statusFilter == "" {
			statusFilter = taskview.StatusAll
		}
		stats = fmt.Sprintf("status:%s  %d shown  %d open  %d overdue",
			statusFilter,
			len(model.projection.Filtered),
			model.projection.Counts[task.StatusOpen],
			len(model.projection.Buckets.Overdue))
	}
	leftText := " " + strings.Join(left, "  ")
	rightText := inactive.Render(stats) + " "
	gap := max(model.width-lipgloss.Width(leftText)-lipgloss.Width(rightText), 1)
	return fit(leftText+strings.Repeat(" ", gap)+rightText, model.width)
}

func (model Model) renderList() string {
	width := model.listWidth()
	height := model.contentHeight()
	rowWidth := max(width-1, 0)

	lines := make([]string, height)
	for row := range height {
		index := model.listOffset + row
		if index >= len(model.items) {
			lines[row] = strings.Repeat(" ", rowWidth)
			continue
		}
		lines[row] = fit(model.renderRow(index), rowWidth)
	}
	rows := strings.Join(lines, "\n")
	scrollbar := renderScrollbar(model.theme, height, len(model.items), height, model.listOffset, model.focus == focusList)
	return lipgloss.JoinHorizontal(lipgloss.Top, rows, scrollbar)
}

func (model Model) renderRow(index int) string {
	item := model.items[index]
	if item.isHeader() {
		return lipgloss.NewStyle().Bold(true).Foreground(model.theme.FaintText).Render(" " + item.header)
	}

	t := item.match.Task
	marker := " "
	titleStyle := lipgloss.NewStyle().Foreground(model.theme.NormalText)
	if index == model.cursor {
		marker = lipgloss.NewStyle().Foreground(model.theme.HeaderForeground).Render("▌")
		titleStyle = titleStyle.Bold(true).Foreground(model.theme.SelectedForeground)
	}
	icon := lipgloss.NewStyle().Foreground(model.theme.StatusColor(t.Status)).Render(statusIcon(t.Status))

	row := marker + icon + " " + highlight(t.Title, item.match.TitlePositions, titleStyle, model.theme.FilterMatch)
	if taskview.IsOverdue(t, model.projection.DerivedAt) {
		row += lipgloss.NewStyle().Foreground(model.theme.Overdue).Render(" !")
	}
	if t.Pending {
		row += lipgloss.NewStyle().Foreground(model.theme.FaintText).Render(" …")
	}
	return row
}

// highlight renders title with the runes at positions in matchColor.
func highlight(title string, positions []int, base lipgloss.Style, matchColor lipgloss.Color) string {
	if len(positions) == 0 {
		return base.Render(title)
	}
	matched := base.Foreground(matchColor)
	var builder strings.Builder
	next := 0
	for index, character := range []rune(title) {
		style := base
		if next < len(positions) && positions[next] == index {
			style = matched
			next++
		}
		builder.WriteString(style.Render(string(character)))
	}
	return builder.String()
}

func (model Model) renderDivider() string {
	lines := make([]string, model.contentHeight())
	for index := range lines {
		lines[index] = "│"
	}
	return lipgloss.NewStyle().Foreground(model.theme.BorderColor).Render(strings.Join(lines, "\n"))
}

func (model Model) renderDetailPane() string {
	width := model.detailWidth()
	height := model.contentHeight()
	lines := make([]string, height)
	for row := range height {
		index := model.detailOffset + row
		line := ""
		if index < len(model.detail) {
			line = " " + model.detail[index]
		}
		lines[row] = fit(line, width)
	}
	if len(model.detail) == 0 && height > 0 {
		message := "No task selected"
		if !model.projection.Ready {
			message = "Waiting for the task table…"
		}
		lines[0] = fit(lipgloss.NewStyle().Foreground(model.theme.FaintText).Render(" "+message), width)
	}
	return strings.Join(lines, "\n")
}

func (model Model) renderHelp() string {
	focus := map[focusRegion]string{focusList: "LIST", focusDetail: "DETAIL", focusFilter: "FILTER"}[model.focus]
	help := fmt.Sprintf(" [%s] q quit  ↑↓ navigate  Tab focus  1/2 tabs  s status  / filter", focus)
	if tasks := model.countTasks(); tasks > 0 {
		position := 0
		for index := 0; index <= model.cursor && index < len(model.items); index++ {
			if !model.items[index].isHeader() {
				position++
			}
		}
		help += fmt.Sprintf("  %d/%d", position, tasks)
	}
	return fit(lipgloss.NewStyle().Foreground(model.theme.HelpText).Render(help), model.width)
}

func (model Model) countTasks() int {
	count := 0
	for _, item := range model.items {
		if !item.isHeader() {
			count++
		}
	}
	return count
}

// fit truncates or pads a styled line to exactly width columns.
func fit(line string, width int) string {
	if width <= 0 {
		return ""
	}
	line = ansi.Truncate(line, width, "…")
	return line + strings.Repeat(" ", max(width-lipgloss.Width(line), 0))
}
