// Package tui provides a k9s-style Terminal UI for the codemode control plane.
package tui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/klubi/codemode/pkg/apis/v1alpha1"
	"github.com/klubi/codemode/pkg/client"
)

// App is the main TUI application. It polls the codemode REST API and
// displays Runs and Toolsets in a navigable table view.
type App struct {
	app         *tview.Application
	pages       *tview.Pages
	header      *tview.TextView
	footer      *tview.TextView
	table       *tview.Table
	filterInput *tview.InputField
	detailView  *tview.TextView
	layout      *tview.Flex

	client      *client.Client
	serverAddr  string
	currentView string // "runs", "toolsets"
	filter      string

	// Cached data from the last successful refresh.
	runs     []*v1alpha1.Run
	toolsets []*v1alpha1.Toolset
	lastErr  error

	mu sync.Mutex

	// mainFlex is the outermost vertical flex (header + content + footer).
	mainFlex *tview.Flex

	// describeOpen tracks whether the describe panel is visible.
	describeOpen bool
	// filterOpen tracks whether the filter input is visible.
	filterOpen bool
}

// NewApp creates a new TUI application connected to the given codemode API server.
func NewApp(serverAddr string) *App {
	a := &App{
		app:         tview.NewApplication(),
		client:      client.New(serverAddr),
		serverAddr:  serverAddr,
		currentView: "runs",
	}

	// -- Header --
	a.header = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.header.SetBackgroundColor(tcell.ColorDarkBlue)

	// -- Footer --
	a.footer = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.footer.SetBackgroundColor(tcell.ColorDarkBlue)

	// -- Table --
	a.table = tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0). // header row stays fixed
		SetSeparator(tview.Borders.Vertical)
	a.table.SetBorder(false)
	a.table.SetBorderPadding(0, 0, 1, 1)

	// -- Filter input --
	a.filterInput = tview.NewInputField().
		SetLabel(" Filter: ").
		SetFieldWidth(40).
		SetFieldBackgroundColor(tcell.ColorBlack).
		SetLabelColor(tcell.ColorYellow)

	a.filterInput.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			a.mu.Lock()
			a.filter = a.filterInput.GetText()
			a.mu.Unlock()
			a.hideFilter()
			a.updateTable()
			a.app.SetFocus(a.table)
		case tcell.KeyEscape:
			a.mu.Lock()
			a.filter = ""
			a.mu.Unlock()
			a.filterInput.SetText("")
			a.hideFilter()
			a.updateTable()
			a.app.SetFocus(a.table)
		}
	})

	// -- Detail / Describe view --
	a.detailView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(true)
	a.detailView.SetBorder(true).
		SetTitle(" Describe ").
		SetBorderColor(tcell.ColorDodgerBlue)

	// -- Build the main layout --
	// contentFlex holds the table (and optionally the detail panel).
	contentFlex := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(a.table, 0, 1, true)

	// mainFlex is the full vertical layout: header, content, footer.
	a.mainFlex = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.header, 1, 0, false).
		AddItem(contentFlex, 0, 1, true).
		AddItem(a.footer, 1, 0, false)

	a.layout = contentFlex

	// Pages allows switching between the main view and overlays.
	a.pages = tview.NewPages().
		AddPage("main", a.mainFlex, true, true)

	a.updateHeader()
	a.updateFooter()
	a.setupKeyBindings()

	a.app.SetRoot(a.pages, true).SetFocus(a.table)

	return a
}

// Run starts the background refresh goroutine and runs the TUI event loop.
func (a *App) Run() error {
	// Perform an initial synchronous refresh so the table is populated
	// before the first render.
	a.refresh()

	// Background poller.
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			a.refresh()
			a.app.QueueUpdateDraw(func() {
				a.updateTable()
			})
		}
	}()

	return a.app.Run()
}

// ---------------------------------------------------------------------------
// Key bindings
// ---------------------------------------------------------------------------

func (a *App) setupKeyBindings() {
	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		// When the filter input has focus, let it handle its own keys.
		if a.filterOpen {
			return event
		}

		// When the describe panel is open, Escape closes it.
		if a.describeOpen && event.Key() == tcell.KeyEscape {
			a.hideDescribe()
			return nil
		}

		switch event.Key() {
		case tcell.KeyRune:
			switch event.Rune() {
			case '1':
				a.switchView("runs")
				return nil
			case '2':
				a.switchView("toolsets")
				return nil
			case '/':
				a.showFilter()
				return nil
			case 'q':
				a.app.Stop()
				return nil
			case 'r':
				go func() {
					a.refresh()
					a.app.QueueUpdateDraw(func() {
						a.updateTable()
					})
				}()
				return nil
			case 'd':
				a.confirmDelete()
				return nil
			case 'j':
				// Move selection down (vim-style).
				row, _ := a.table.GetSelection()
				if row < a.table.GetRowCount()-1 {
					a.table.Select(row+1, 0)
				}
				return nil
			case 'k':
				// Move selection up (vim-style).
				row, _ := a.table.GetSelection()
				if row > 1 { // row 0 is the header
					a.table.Select(row-1, 0)
				}
				return nil
			}
		case tcell.KeyEnter:
			a.showDescribe()
			return nil
		case tcell.KeyEscape:
			if a.filter != "" {
				a.mu.Lock()
				a.filter = ""
				a.mu.Unlock()
				a.updateTable()
			}
			return nil
		}

		return event
	})
}

// ---------------------------------------------------------------------------
// View switching
// ---------------------------------------------------------------------------

func (a *App) switchView(view string) {
	a.mu.Lock()
	a.currentView = view
	a.mu.Unlock()

	a.updateHeader()

	go func() {
		a.refresh()
		a.app.QueueUpdateDraw(func() {
			a.updateTable()
		})
	}()
}

// ---------------------------------------------------------------------------
// Data refresh
// ---------------------------------------------------------------------------

func (a *App) refresh() {
	a.mu.Lock()
	view := a.currentView
	a.mu.Unlock()

	switch view {
	case "runs":
		runs, err := a.client.ListRuns("")
		a.mu.Lock()
		a.runs = runs
		a.lastErr = err
		a.mu.Unlock()
	case "toolsets":
		toolsets, err := a.client.ListToolsets()
		a.mu.Lock()
		a.toolsets = toolsets
		a.lastErr = err
		a.mu.Unlock()
	}
}

// ---------------------------------------------------------------------------
// Table rendering
// ---------------------------------------------------------------------------

func (a *App) updateTable() {
	a.table.Clear()

	a.mu.Lock()
	view := a.currentView
	filter := strings.ToLower(a.filter)
	err := a.lastErr
	a.mu.Unlock()

	if err != nil {
		a.setTableHeaders([]string{"ERROR"})
		a.table.SetCell(1, 0,
			tview.NewTableCell(fmt.Sprintf("Error: %v", err)).
				SetTextColor(tcell.ColorRed))
		return
	}

	switch view {
	case "runs":
		a.renderRuns(filter)
	case "toolsets":
		a.renderToolsets(filter)
	}

	// Ensure a row is selected.
	if a.table.GetRowCount() > 1 {
		a.table.Select(1, 0)
	}
}

func (a *App) setTableHeaders(headers []string) {
	for col, h := range headers {
		cell := tview.NewTableCell(h).
			SetTextColor(tcell.ColorWhite).
			SetBackgroundColor(tcell.ColorDarkCyan).
			SetAttributes(tcell.AttrBold).
			SetSelectable(false).
			SetExpansion(1)
		a.table.SetCell(0, col, cell)
	}
}

// matchesFilter returns true if any of the values contain the filter string.
func matchesFilter(filter string, values ...string) bool {
	if filter == "" {
		return true
	}
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), filter) {
			return true
		}
	}
	return false
}

func (a *App) renderRuns(filter string) {
	headers := []string{"NAME", "TOOLSET", "PHASE", "PROMPT", "AGE"}
	a.setTableHeaders(headers)

	a.mu.Lock()
	runs := a.runs
	a.mu.Unlock()

	row := 1
	for _, r := range runs {
		phase := string(r.Status.Phase)
		toolset := r.Spec.Toolset
		if toolset == "" {
			toolset = "<none>"
		}
		prompt := firstLine(r.Spec.Prompt, 60)
		age := formatAge(r.Metadata.CreatedAt)

		if !matchesFilter(filter, r.Metadata.Name, toolset, phase, prompt, age) {
			continue
		}

		a.table.SetCell(row, 0, tview.NewTableCell(r.Metadata.Name).SetExpansion(1))
		a.table.SetCell(row, 1, tview.NewTableCell(toolset).SetExpansion(1))
		a.table.SetCell(row, 2, tview.NewTableCell(phase).
			SetTextColor(phaseColor(phase)).SetExpansion(1))
		a.table.SetCell(row, 3, tview.NewTableCell(prompt).SetExpansion(1))
		a.table.SetCell(row, 4, tview.NewTableCell(age).SetExpansion(1))
		row++
	}
}

func (a *App) renderToolsets(filter string) {
	headers := []string{"NAME", "TOOLS", "DESCRIPTION", "AGE"}
	a.setTableHeaders(headers)

	a.mu.Lock()
	toolsets := a.toolsets
	a.mu.Unlock()

	row := 1
	for _, ts := range toolsets {
		tools := fmt.Sprintf("%d", len(ts.Spec.Tools))
		age := formatAge(ts.Metadata.CreatedAt)

		if !matchesFilter(filter, ts.Metadata.Name, tools, ts.Spec.Description, age) {
			continue
		}

		a.table.SetCell(row, 0, tview.NewTableCell(ts.Metadata.Name).SetExpansion(1))
		a.table.SetCell(row, 1, tview.NewTableCell(tools).SetExpansion(1))
		a.table.SetCell(row, 2, tview.NewTableCell(ts.Spec.Description).SetExpansion(1))
		a.table.SetCell(row, 3, tview.NewTableCell(age).SetExpansion(1))
		row++
	}
}

// ---------------------------------------------------------------------------
// Describe (detail panel)
// ---------------------------------------------------------------------------

func (a *App) showDescribe() {
	row, _ := a.table.GetSelection()
	if row < 1 || row >= a.table.GetRowCount() {
		return
	}

	name := a.table.GetCell(row, 0).Text

	a.detailView.Clear()

	a.mu.Lock()
	view := a.currentView
	a.mu.Unlock()

	var detail string

	switch view {
	case "runs":
		run, err := a.client.GetRun(name)
		if err != nil {
			detail = fmt.Sprintf("[red]Error: %v[-]", err)
		} else {
			detail = a.formatRunDescribe(run)
		}
	case "toolsets":
		ts, err := a.client.GetToolset(name)
		if err != nil {
			detail = fmt.Sprintf("[red]Error: %v[-]", err)
		} else {
			detail = a.formatToolsetDescribe(ts)
		}
	}

	a.detailView.SetText(detail)

	if !a.describeOpen {
		a.layout.AddItem(a.detailView, 0, 1, false)
		a.describeOpen = true
	}
}

func (a *App) hideDescribe() {
	if a.describeOpen {
		a.layout.RemoveItem(a.detailView)
		a.describeOpen = false
		a.app.SetFocus(a.table)
	}
}

func (a *App) formatRunDescribe(run *v1alpha1.Run) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[::b]Name:[-::-]      %s\n", run.Metadata.Name))
	b.WriteString(fmt.Sprintf("[::b]UID:[-::-]       %s\n", run.Metadata.UID))
	b.WriteString(fmt.Sprintf("[::b]Phase:[-::-]     [%s]%s[-]\n",
		phaseColorName(string(run.Status.Phase)), run.Status.Phase))
	b.WriteString(fmt.Sprintf("[::b]Toolset:[-::-]   %s\n", run.Spec.Toolset))
	b.WriteString(fmt.Sprintf("[::b]Prompt:[-::-]\n  %s\n", run.Spec.Prompt))

	if run.Spec.TimeoutSeconds > 0 {
		b.WriteString(fmt.Sprintf("[::b]Timeout:[-::-]   %ds\n", run.Spec.TimeoutSeconds))
	}
	if run.Status.Workspace != "" {
		b.WriteString(fmt.Sprintf("[::b]Workspace:[-::-] %s\n", run.Status.Workspace))
	}

	b.WriteString(fmt.Sprintf("[::b]Created:[-::-]   %s\n", run.Metadata.CreatedAt.Format(time.RFC3339)))
	if !run.Status.StartedAt.IsZero() {
		b.WriteString(fmt.Sprintf("[::b]Started:[-::-]   %s\n", run.Status.StartedAt.Format(time.RFC3339)))
	}
	if !run.Status.FinishedAt.IsZero() {
		b.WriteString(fmt.Sprintf("[::b]Finished:[-::-]  %s\n", run.Status.FinishedAt.Format(time.RFC3339)))
	}

	if len(run.Status.Output) > 0 {
		b.WriteString(fmt.Sprintf("\n[::b]Output:[-::-]\n%s\n", string(run.Status.Output)))
	}
	if run.Status.Error != "" {
		b.WriteString(fmt.Sprintf("\n[red][::b]Error:[-::-]\n%s[-]\n", run.Status.Error))
	}

	if len(run.Metadata.Labels) > 0 {
		b.WriteString("[::b]Labels:[-::-]\n")
		for k, v := range run.Metadata.Labels {
			b.WriteString(fmt.Sprintf("  %s: %s\n", k, v))
		}
	}

	return b.String()
}

func (a *App) formatToolsetDescribe(ts *v1alpha1.Toolset) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[::b]Name:[-::-]        %s\n", ts.Metadata.Name))
	b.WriteString(fmt.Sprintf("[::b]UID:[-::-]         %s\n", ts.Metadata.UID))
	b.WriteString(fmt.Sprintf("[::b]Description:[-::-] %s\n", ts.Spec.Description))
	b.WriteString(fmt.Sprintf("[::b]Created:[-::-]     %s\n", ts.Metadata.CreatedAt.Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf("[::b]Updated:[-::-]     %s\n", ts.Metadata.UpdatedAt.Format(time.RFC3339)))

	b.WriteString(fmt.Sprintf("\n[::b]Tools (%d):[-::-]\n", len(ts.Spec.Tools)))
	for _, tool := range ts.Spec.Tools {
		params := make([]string, 0, len(tool.Params))
		for _, p := range tool.Params {
			sig := p.Name
			if p.Type != "" {
				sig += ": " + p.Type
			}
			if p.Default != nil {
				sig += fmt.Sprintf(" = %v", p.Default)
			}
			params = append(params, sig)
		}
		b.WriteString(fmt.Sprintf("\n  [::b]%s(%s)[-::-]", tool.Name, strings.Join(params, ", ")))
		if tool.Returns != "" {
			b.WriteString(fmt.Sprintf(" -> %s", tool.Returns))
		}
		b.WriteString("\n")
		if tool.Description != "" {
			b.WriteString(fmt.Sprintf("    %s\n", tool.Description))
		}
		if tool.Code != "" {
			b.WriteString("    [green]code provided[-]\n")
		} else {
			b.WriteString("    [gray]stub[-]\n")
		}
	}

	if len(ts.Metadata.Labels) > 0 {
		b.WriteString("\n[::b]Labels:[-::-]\n")
		for k, v := range ts.Metadata.Labels {
			b.WriteString(fmt.Sprintf("  %s: %s\n", k, v))
		}
	}

	return b.String()
}

// ---------------------------------------------------------------------------
// Filter
// ---------------------------------------------------------------------------

func (a *App) showFilter() {
	if a.filterOpen {
		return
	}
	a.filterOpen = true
	a.filterInput.SetText(a.filter)

	// Replace footer with filter input in the main vertical flex.
	a.mainFlex.RemoveItem(a.footer)
	a.mainFlex.AddItem(a.filterInput, 1, 0, true)
	a.app.SetFocus(a.filterInput)
}

func (a *App) hideFilter() {
	if !a.filterOpen {
		return
	}
	a.filterOpen = false

	// Restore footer in place of filter input.
	a.mainFlex.RemoveItem(a.filterInput)
	a.mainFlex.AddItem(a.footer, 1, 0, false)
	a.app.SetFocus(a.table)
}

// ---------------------------------------------------------------------------
// Delete with confirmation
// ---------------------------------------------------------------------------

func (a *App) confirmDelete() {
	row, _ := a.table.GetSelection()
	if row < 1 || row >= a.table.GetRowCount() {
		return
	}

	name := a.table.GetCell(row, 0).Text

	modal := tview.NewModal().
		SetText(fmt.Sprintf("Delete %s \"%s\"?", a.currentView[:len(a.currentView)-1], name)).
		AddButtons([]string{"Delete", "Cancel"}).
		SetDoneFunc(func(buttonIndex int, buttonLabel string) {
			if buttonLabel == "Delete" {
				a.deleteResource(name)
			}
			a.pages.RemovePage("confirm")
			a.app.SetFocus(a.table)
		})
	modal.SetBackgroundColor(tcell.ColorDarkRed)

	a.pages.AddPage("confirm", modal, true, true)
}

func (a *App) deleteResource(name string) {
	a.mu.Lock()
	view := a.currentView
	a.mu.Unlock()

	var err error
	switch view {
	case "runs":
		err = a.client.DeleteRun(name)
	case "toolsets":
		err = a.client.DeleteToolset(name)
	}

	if err != nil {
		a.footer.SetText(fmt.Sprintf(" [red]Delete failed: %v[-]", err))
		go func() {
			time.Sleep(3 * time.Second)
			a.app.QueueUpdateDraw(func() {
				a.updateFooter()
			})
		}()
		return
	}

	// Refresh immediately after delete.
	go func() {
		a.refresh()
		a.app.QueueUpdateDraw(func() {
			a.updateTable()
		})
	}()
}

// ---------------------------------------------------------------------------
// Header & Footer
// ---------------------------------------------------------------------------

func (a *App) updateHeader() {
	views := []struct {
		key  string
		name string
	}{
		{"1", "Runs"},
		{"2", "Toolsets"},
	}

	viewMap := map[string]string{
		"1": "runs",
		"2": "toolsets",
	}

	var parts []string
	for _, v := range views {
		if viewMap[v.key] == a.currentView {
			parts = append(parts, fmt.Sprintf("[::b]<%s>[%s][::-]", v.key, v.name))
		} else {
			parts = append(parts, fmt.Sprintf("<%s>%s", v.key, v.name))
		}
	}

	filterInfo := ""
	a.mu.Lock()
	if a.filter != "" {
		filterInfo = fmt.Sprintf(" | [yellow]filter: %s[-]", a.filter)
	}
	a.mu.Unlock()

	a.header.SetText(fmt.Sprintf(" [::b]Codemode[::-] | %s | %s%s",
		a.serverAddr, strings.Join(parts, "  "), filterInfo))
}

func (a *App) updateFooter() {
	a.footer.SetText(" [yellow]<enter>[white]Describe  [yellow]<d>[white]Delete  [yellow]</>[white]Filter  [yellow]<q>[white]Quit  [yellow]<r>[white]Refresh  [yellow]<esc>[white]Back")
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// firstLine returns the first line of s, cut to at most n characters.
func firstLine(s string, n int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

// formatAge returns a human-readable duration string since the given time.
func formatAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

// phaseColor returns the tcell color appropriate for a phase string.
func phaseColor(phase string) tcell.Color {
	switch phase {
	case "Succeeded":
		return tcell.ColorGreen
	case "Running":
		return tcell.ColorYellow
	case "Pending":
		return tcell.ColorWhite
	case "Failed":
		return tcell.ColorRed
	default:
		return tcell.ColorWhite
	}
}

// phaseColorName returns the tview color tag name for a phase string.
func phaseColorName(phase string) string {
	switch phase {
	case "Succeeded":
		return "green"
	case "Running":
		return "yellow"
	case "Pending":
		return "white"
	case "Failed":
		return "red"
	default:
		return "white"
	}
}
