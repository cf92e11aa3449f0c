package crossforge

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

type logInfo struct {
	tool    string
	path    string
	content string
}

// loadLogs reads every per-tool build log under logsDir.
func loadLogs(logsDir string) []logInfo {
	entries, err := os.ReadDir(logsDir)
	if err != nil {
		return nil
	}
	var logs []logInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".log") {
			continue
		}
		path := filepath.Join(logsDir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		logs = append(logs, logInfo{
			tool:    strings.TrimSuffix(e.Name(), ".log"),
			path:    path,
			content: tview.TranslateANSI(string(data)),
		})
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].tool < logs[j].tool })
	return logs
}

// runLogViewer opens the tabbed build-log viewer. Left/Right switch tools,
// Up/Down/PgUp/PgDn scroll, q or Esc quits. Logs are re-read every second
// so a running build can be followed.
func runLogViewer(logsDir string) int {
	logs := loadLogs(logsDir)
	if len(logs) == 0 {
		warnf("No build logs found in %s\n", logsDir)
		return 1
	}

	app := tview.NewApplication()
	active := 0

	header := tview.NewTextView().SetDynamicColors(true).SetWrap(false)
	header.SetBorder(true)
	header.SetTitle("crossforge build logs")

	logView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false).
		SetScrollable(true)
	logView.SetBorder(true)

	footer := tview.NewTextView().SetDynamicColors(true).SetWrap(true)
	footer.SetBorder(true)
	footer.SetText("[yellow]←/→[white] switch tool  [yellow]↑/↓ PgUp/PgDn[white] scroll  [yellow]Home/End[white] jump  [yellow]q/Esc[white] quit")

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 3, 0, false).
		AddItem(logView, 0, 1, true).
		AddItem(footer, 3, 0, false)

	render := func() {
		var tabs []string
		for i, l := range logs {
			if i == active {
				tabs = append(tabs, fmt.Sprintf("[black:yellow] %s [-:-]", l.tool))
			} else {
				tabs = append(tabs, fmt.Sprintf(" %s ", l.tool))
			}
		}
		header.SetText(strings.Join(tabs, "|"))
		logView.SetText(logs[active].content)
		logView.ScrollToEnd()
	}

	flex.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEsc:
			app.Stop()
			return nil
		case tcell.KeyLeft:
			active = (active - 1 + len(logs)) % len(logs)
			render()
			return nil
		case tcell.KeyRight:
			active = (active + 1) % len(logs)
			render()
			return nil
		case tcell.KeyHome:
			logView.ScrollToBeginning()
			return nil
		case tcell.KeyEnd:
			logView.ScrollToEnd()
			return nil
		}
		if event.Rune() == 'q' {
			app.Stop()
			return nil
		}
		return event
	})

	// Refresh loop: pick up new log output while a build is running.
	go func() {
		for {
			time.Sleep(1 * time.Second)
			fresh := loadLogs(logsDir)
			app.QueueUpdateDraw(func() {
				if len(fresh) == 0 {
					return
				}
				if active >= len(fresh) {
					active = len(fresh) - 1
				}
				logs = fresh
				render()
			})
		}
	}()

	render()
	if err := app.SetRoot(flex, true).Run(); err != nil {
		errorf("Log viewer failed: %v\n", err)
		return 1
	}
	return 0
}
