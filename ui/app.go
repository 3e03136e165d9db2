package ui

import (
	"errors"
	"fmt"
	"strings"

	"cmdoverlay/catalog"
	"cmdoverlay/inject"
	"cmdoverlay/model"
	"cmdoverlay/runner"
	"cmdoverlay/wizard"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/ansi"
	"github.com/sahilm/fuzzy"
)

// errCouldNotSend is the one failure the overlay shows for a send.
const errCouldNotSend = "Could not send command"

type mode int

const (
	modeNormal mode = iota
	modeParam
)

// Store keeps favorites and last-used values.
type Store interface {
	SetFavorite(template string, starred bool) error
	RecordUse(template string, params map[string]string, sent string) error
	LastParams(template string) (map[string]string, error)
}

// Sender hands a finished command to the background injector.
type Sender interface {
	Send(text string) (*inject.Job, error)
}

type App struct {
	store  Store
	sender Sender
	log    *log.Logger

	catalog    model.Catalog
	categories []string
	category   int
	open       bool
	commands   []model.Command
	filtered   []model.Command

	// UI state
	mode   mode
	cursor int
	width  int
	height int
	err    string
	status string

	// Search
	searchInput textinput.Model

	// Sent history
	output  viewport.Model
	history []string

	// Param wizard
	session      *wizard.Session
	paramInput   textinput.Model
	choiceCursor int
}

func NewApp(cat model.Catalog, store Store, sender Sender, logger *log.Logger) *App {
	if logger == nil {
		logger = log.Default()
	}

	search := textinput.New()
	search.Placeholder = "Search commands..."
	search.Focus()

	app := &App{
		store:       store,
		sender:      sender,
		log:         logger,
		catalog:     cat,
		categories:  catalog.Categories(cat),
		searchInput: search,
		output:      viewport.New(80, 5),
	}
	app.open = len(app.categories) > 0
	app.loadCategory()
	return app
}

func (a *App) Init() tea.Cmd {
	return textinput.Blink
}

type jobDoneMsg struct {
	job *inject.Job
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width - 4
		a.height = msg.Height - 2
		a.output.Width = a.width - 4
		a.output.Height = max(3, a.height/5)
		return a, nil

	case jobDoneMsg:
		a.log.Debug("send finished", "command", msg.job.Text,
			"delivered", msg.job.Delivered(), "err", msg.job.Err())
		return a, nil

	case tea.KeyMsg:
		a.err = ""
		a.status = ""

		switch a.mode {
		case modeNormal:
			return a.updateNormal(msg)
		case modeParam:
			return a.updateParam(msg)
		}
	}

	return a, nil
}

func (a *App) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return a, tea.Quit

	case "up":
		if a.cursor > 0 {
			a.cursor--
		}

	case "down":
		if a.cursor < len(a.filtered)-1 {
			a.cursor++
		}

	case "left":
		a.switchCategory(-1)

	case "right":
		a.switchCategory(1)

	case "enter":
		if !a.open {
			a.showPanel()
			return a, nil
		}
		if len(a.filtered) > 0 {
			return a.activate(a.filtered[a.cursor])
		}

	case "ctrl+s":
		if a.open && len(a.filtered) > 0 {
			a.toggleStar(a.filtered[a.cursor])
		}

	case "tab":
		a.hidePanel()

	case "esc":
		switch {
		case a.searchInput.Value() != "":
			a.searchInput.SetValue("")
			a.filterCommands()
		case a.open:
			a.hidePanel()
		default:
			return a, tea.Quit
		}

	default:
		var cmd tea.Cmd
		a.searchInput, cmd = a.searchInput.Update(msg)
		a.filterCommands()
		return a, cmd
	}

	return a, nil
}

func (a *App) updateParam(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return a, tea.Quit

	case "esc":
		a.session.Cancel()
		a.session = nil
		a.mode = modeNormal
		a.searchInput.Focus()
		a.status = "Cancelled"
		return a, nil
	}

	p, ok := a.session.Prompt()
	if !ok {
		return a, nil
	}

	if p.Mode == wizard.ModeChoice {
		switch msg.String() {
		case "up":
			if a.choiceCursor > 0 {
				a.choiceCursor--
			}
		case "down":
			if a.choiceCursor < len(p.Choices)-1 {
				a.choiceCursor++
			}
		case "enter":
			return a.advance(a.session.Choose(a.choiceCursor))
		}
		return a, nil
	}

	switch msg.String() {
	case "enter":
		return a.advance(a.session.Submit(a.paramInput.Value()))
	default:
		var cmd tea.Cmd
		a.paramInput, cmd = a.paramInput.Update(msg)
		return a, cmd
	}
}

// activate sends a command directly or opens the wizard for its params.
func (a *App) activate(cmd model.Command) (tea.Model, tea.Cmd) {
	if len(cmd.Params) == 0 {
		return a, a.dispatch(cmd, nil, cmd.Template)
	}

	defaults, err := a.store.LastParams(cmd.Template)
	if err != nil {
		a.log.Warn("could not load last params", "template", cmd.Template, "err", err)
	}

	a.session = wizard.Start(cmd, wizard.WithDefaults(defaults))
	a.mode = modeParam
	a.searchInput.Blur()
	a.preparePrompt()
	return a, textinput.Blink
}

func (a *App) preparePrompt() {
	p, ok := a.session.Prompt()
	if !ok {
		return
	}
	a.choiceCursor = 0
	if p.Mode == wizard.ModeFreeText {
		a.paramInput = textinput.New()
		a.paramInput.Placeholder = p.Param
		a.paramInput.SetValue(p.Default)
		a.paramInput.Focus()
	}
}

func (a *App) advance(err error) (tea.Model, tea.Cmd) {
	if errors.Is(err, wizard.ErrEmptyValue) {
		a.status = "A value is required"
		return a, nil
	}
	if !a.session.Done() {
		a.preparePrompt()
		return a, nil
	}

	s := a.session
	a.session = nil
	a.mode = modeNormal
	a.searchInput.Focus()

	text, err := s.Result()
	if err != nil {
		a.log.Error("could not resolve command", "template", s.Command().Template, "err", err)
		a.err = errCouldNotSend
		return a, nil
	}

	params := make(map[string]string)
	values := s.Values()
	for i, name := range s.Params() {
		params[name] = values[i]
	}
	return a, a.dispatch(s.Command(), params, text)
}

func (a *App) dispatch(cmd model.Command, params map[string]string, text string) tea.Cmd {
	if missing := runner.Unresolved(cmd.Template, cmd.Params); len(missing) > 0 {
		a.log.Debug("tokens without params are sent as text", "template", cmd.Template, "tokens", missing)
	}

	job, err := a.sender.Send(text)
	if err != nil {
		a.log.Error("could not start send", "command", text, "err", err)
		a.err = errCouldNotSend
		return nil
	}

	if err := a.store.RecordUse(cmd.Template, params, text); err != nil {
		a.log.Warn("could not record use", "template", cmd.Template, "err", err)
	}

	a.history = append(a.history, cmdPreviewStyle.Render("> "+text))
	a.output.SetContent(strings.Join(a.history, "\n"))
	a.output.GotoBottom()
	a.status = "Sent!"

	return waitForJob(job)
}

func waitForJob(job *inject.Job) tea.Cmd {
	return func() tea.Msg {
		job.Wait()
		return jobDoneMsg{job: job}
	}
}

func (a *App) toggleStar(cmd model.Command) {
	starred := !cmd.IsStarred
	if err := a.store.SetFavorite(cmd.Template, starred); err != nil {
		a.err = err.Error()
		return
	}
	catalog.SetStarred(a.catalog, cmd.Template, starred)
	a.loadCategory()
	if starred {
		a.status = "Starred"
	} else {
		a.status = "Unstarred"
	}
}

func (a *App) switchCategory(delta int) {
	if len(a.categories) == 0 {
		return
	}
	a.category = (a.category + delta + len(a.categories)) % len(a.categories)
	a.cursor = 0
	a.showPanel()
}

func (a *App) showPanel() {
	if len(a.categories) == 0 {
		return
	}
	a.open = true
	a.loadCategory()
}

func (a *App) hidePanel() {
	a.open = false
	a.searchInput.SetValue("")
	a.filterCommands()
}

func (a *App) currentCategory() string {
	if len(a.categories) == 0 {
		return ""
	}
	return a.categories[a.category]
}

func (a *App) loadCategory() {
	a.commands = catalog.Commands(a.catalog, a.currentCategory())
	a.filterCommands()
}

func (a *App) filterCommands() {
	query := a.searchInput.Value()
	if query == "" {
		a.filtered = a.commands
	} else {
		// Build searchable strings
		var targets []string
		for _, c := range a.commands {
			targets = append(targets, c.Label+" "+c.Template)
		}

		matches := fuzzy.Find(query, targets)
		a.filtered = make([]model.Command, len(matches))
		for i, m := range matches {
			a.filtered[i] = a.commands[m.Index]
		}
	}

	if a.cursor >= len(a.filtered) {
		a.cursor = max(0, len(a.filtered)-1)
	}
}

func (a *App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("cmdoverlay"))
	b.WriteString("\n\n")

	b.WriteString(a.renderCategories())
	b.WriteString("\n\n")

	if a.mode == modeParam {
		b.WriteString(a.renderParam())
	} else if a.open {
		b.WriteString(a.searchInput.View())
		b.WriteString("\n\n")

		listHeight := (a.height - a.output.Height - 12) / 2
		if listHeight < 3 {
			listHeight = 3
		}
		b.WriteString(a.renderList(listHeight))
	} else {
		b.WriteString(mutedStyle.Render("Panel hidden. Press enter to show it.\n"))
	}

	b.WriteString("\n")
	b.WriteString(outputTitleStyle.Render("SENT"))
	b.WriteString("\n")
	b.WriteString(borderStyle.Width(a.width - 4).Render(a.output.View()))
	b.WriteString("\n")

	if a.err != "" {
		b.WriteString(errorStyle.Render("Error: " + a.err))
		b.WriteString("\n")
	}
	if a.status != "" {
		b.WriteString(successStyle.Render(a.status))
		b.WriteString("\n")
	}

	b.WriteString(a.renderHelp())

	return appStyle.Render(b.String())
}

func (a *App) renderCategories() string {
	if len(a.categories) == 0 {
		return mutedStyle.Render("No commands loaded.")
	}
	parts := make([]string, len(a.categories))
	for i, c := range a.categories {
		if i == a.category && a.open {
			parts[i] = activeTabStyle.Render(c)
		} else {
			parts[i] = tabStyle.Render(c)
		}
	}
	return strings.Join(parts, " ")
}

func (a *App) renderList(height int) string {
	if len(a.filtered) == 0 {
		return mutedStyle.Render("No commands found.\n")
	}

	var lines []string
	start := 0
	if a.cursor >= height {
		start = a.cursor - height + 1
	}

	end := start + height
	if end > len(a.filtered) {
		end = len(a.filtered)
	}

	for i := start; i < end; i++ {
		cmd := a.filtered[i]
		prefix := "  "
		style := normalStyle
		if i == a.cursor {
			prefix = "▸ "
			style = selectedStyle
		}

		name := style.Render(prefix + cmd.DisplayLabel())
		preview := cmdPreviewStyle.Render("  " + truncate(cmd.Template, a.width-10))
		lines = append(lines, name, preview)
	}

	if cmd := a.filtered[a.cursor]; cmd.Description != "" {
		lines = append(lines, "", mutedStyle.Render(cmd.Description))
	}

	return strings.Join(lines, "\n") + "\n"
}

func (a *App) renderParam() string {
	var b strings.Builder

	b.WriteString(labelStyle.Render(a.session.Command().DisplayLabel()))
	b.WriteString("\n")
	b.WriteString(cmdPreviewStyle.Render(a.session.Command().Template))
	b.WriteString("\n\n")

	p, ok := a.session.Prompt()
	if !ok {
		return b.String()
	}

	b.WriteString(labelStyle.Render(fmt.Sprintf("%s (%d/%d): ", p.Param, p.Index+1, p.Total)))
	if p.Mode == wizard.ModeChoice {
		b.WriteString("\n")
		for i, c := range p.Choices {
			if i == a.choiceCursor {
				b.WriteString(selectedStyle.Render("▸ " + c))
			} else {
				b.WriteString(normalStyle.Render("  " + c))
			}
			b.WriteString("\n")
		}
	} else {
		b.WriteString(a.paramInput.View())
		b.WriteString("\n")
	}

	return b.String()
}

func (a *App) renderHelp() string {
	keys := []struct{ key, desc string }{
		{"enter", "send"},
		{"←/→", "category"},
		{"ctrl+s", "star"},
		{"tab", "hide"},
		{"esc", "clear/quit"},
	}
	if a.mode == modeParam {
		keys = []struct{ key, desc string }{
			{"enter", "next"},
			{"esc", "cancel"},
		}
	}

	var parts []string
	for _, k := range keys {
		parts = append(parts, helpKeyStyle.Render(k.key)+" "+helpStyle.Render(k.desc))
	}

	return strings.Join(parts, "  ")
}

// truncate cuts s to max terminal cells, never inside a rune.
func truncate(s string, max int) string {
	if max < 4 {
		return s
	}
	return ansi.Truncate(s, max, "...")
}
