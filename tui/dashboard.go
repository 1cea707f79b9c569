package tui

import (
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"taskwatch/stats"
	"taskwatch/supervisor"
)

// Dashboard implements supervisor.Reporter and stats.StatsConsumer using
// tview/tcell for a live, full-screen view of a run in progress.
type Dashboard struct {
	app          *tview.Application
	headerText   *tview.TextView
	progressText *tview.TextView
	eventsText   *tview.TextView
	layout       *tview.Flex

	mu            sync.Mutex
	eventLines    []string
	maxEventLines int
	stopped       bool
	onInterrupt   func()
	screen        tcell.Screen

	total int
}

// SetScreen injects a tcell.Screen (typically a SimulationScreen) before
// Start, letting tests drive the dashboard without a real terminal.
func (d *Dashboard) SetScreen(screen tcell.Screen) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.screen = screen
}

// NewDashboard creates a new live dashboard sized for total tasks.
func NewDashboard(total int) *Dashboard {
	return &Dashboard{
		maxEventLines: 200,
		total:         total,
	}
}

// SetInterruptHandler sets a callback invoked when the operator presses
// Ctrl+C or 'q' inside the dashboard.
func (d *Dashboard) SetInterruptHandler(handler func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onInterrupt = handler
}

// Start initializes and runs the dashboard in a background goroutine.
func (d *Dashboard) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.app = tview.NewApplication()
	if d.screen != nil {
		d.app.SetScreen(d.screen)
	}

	d.headerText = tview.NewTextView().SetDynamicColors(true).SetTextAlign(tview.AlignLeft)
	d.headerText.SetBorder(true).SetTitle(" taskwatch ").SetTitleAlign(tview.AlignLeft)
	d.headerText.SetText("[yellow]Starting run...[white]")

	d.progressText = tview.NewTextView().SetDynamicColors(true).SetTextAlign(tview.AlignLeft)
	d.progressText.SetBorder(true).SetTitle(" Progress ").SetTitleAlign(tview.AlignLeft)
	d.progressText.SetText("Waiting for tasks...")

	d.eventsText = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetChangedFunc(func() { d.app.Draw() })
	d.eventsText.SetBorder(true).SetTitle(" Task Events ").SetTitleAlign(tview.AlignLeft)
	d.eventsText.SetText("No events yet...")

	d.layout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(d.headerText, 3, 0, false).
		AddItem(d.progressText, 6, 0, false).
		AddItem(d.eventsText, 0, 1, false)

	d.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlC:
			d.handleInterrupt()
			return nil
		case tcell.KeyRune:
			if event.Rune() == 'q' || event.Rune() == 'Q' {
				d.handleInterrupt()
				return nil
			}
		}
		return event
	})

	go func() {
		d.app.SetRoot(d.layout, true).EnableMouse(true).Run()
	}()

	time.Sleep(100 * time.Millisecond)
	return nil
}

func (d *Dashboard) handleInterrupt() {
	d.app.Stop()
	d.mu.Lock()
	handler := d.onInterrupt
	d.mu.Unlock()
	if handler != nil {
		go handler()
	}
}

// Stop cleanly shuts down the dashboard.
func (d *Dashboard) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	if d.app != nil {
		d.app.Stop()
	}
}

func (d *Dashboard) Begin(instanceID int) {
	d.logEvent(fmt.Sprintf("[green]started[white] instance %d", instanceID))
}

func (d *Dashboard) Result(instanceID int, outcome supervisor.Outcome, rawWaitStatus int, runtimeSecs float64, peakRSSKiB int64) {
	color := "white"
	switch outcome {
	case supervisor.Timeout:
		color = "red"
	case supervisor.Memout:
		color = "red"
	}
	d.logEvent(fmt.Sprintf("[%s]%s[white] instance %d (%.2fs, peak %d KiB)",
		color, outcome, instanceID, runtimeSecs, peakRSSKiB))
}

func (d *Dashboard) End(instanceID, done, total int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.app == nil || d.stopped {
		return
	}
	header := fmt.Sprintf("[yellow]Dispatching:[white] %d/%d tasks done", done, total)
	d.app.QueueUpdateDraw(func() {
		d.headerText.SetText(header)
	})
}

func (d *Dashboard) Errorf(format string, args ...any) {
	d.logEvent(fmt.Sprintf("[red]error:[white] %s", fmt.Sprintf(format, args...)))
}

func (d *Dashboard) logEvent(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.app == nil || d.stopped {
		return
	}

	timestamp := time.Now().Format("15:04:05")
	d.eventLines = append(d.eventLines, fmt.Sprintf("[%s] %s", timestamp, msg))
	if len(d.eventLines) > d.maxEventLines {
		d.eventLines = d.eventLines[1:]
	}

	text := ""
	for _, line := range d.eventLines {
		text += line + "\n"
	}

	d.app.QueueUpdateDraw(func() {
		d.eventsText.SetText(text)
		d.eventsText.ScrollToEnd()
	})
}

// OnStatsUpdate implements stats.StatsConsumer, refreshing the progress
// panel on every 1 Hz sampling tick.
func (d *Dashboard) OnStatsUpdate(info stats.TopInfo) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.app == nil || d.stopped {
		return
	}

	text := fmt.Sprintf(
		"[green]Exited:[white]   %3d\n"+
			"[red]Timeout:[white]  %3d\n"+
			"[red]Memout:[white]   %3d\n"+
			"[white]Workers:[white] %d/%d\n"+
			"[white]Load:[white]    %.2f  [white]Swap:[white] %d%%\n"+
			"[white]Rate:[white]    %s/hr",
		info.Exited, info.TimedOut, info.MemedOut,
		info.ActiveWorkers, info.MaxWorkers, info.Load, info.SwapPct, stats.FormatRate(info.Rate),
	)

	d.app.QueueUpdateDraw(func() {
		d.progressText.SetText(text)
	})
}
