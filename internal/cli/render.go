package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/ui"
)

const maxTextWidth = 80

// numbered keeps a task's position in the full list, so filtered views print
// indexes that `tada done` still accepts.
type numbered struct {
	n    int
	task model.Task
}

func number(tasks []model.Task, f model.Filter) []numbered {
	out := make([]numbered, 0, len(tasks))
	for i, t := range tasks {
		if len(f.Apply([]model.Task{t})) == 1 {
			out = append(out, numbered{n: i + 1, task: t})
		}
	}
	return out
}

func listPanel(tasks []model.Task, f model.Filter, group bool, status string) []string {
	th := ui.Current()
	d, p := model.Stats(tasks)
	header := fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		ui.C(th.Title, "Todos"),
		ui.C(th.Success, th.SymDone), d,
		ui.C(th.Pending, th.SymUnchecked), p,
		ui.C(th.Accent, "Total"), len(tasks),
	)

	lines := []string{header, ui.C(th.Muted, ui.ProgressBar(d, d+p, 28)), ""}
	rows := number(tasks, f)
	switch {
	case len(rows) == 0:
		lines = append(lines, ui.C(th.Muted, f.EmptyMessage()))
	case group:
		lines = append(lines, groupLines(rows)...)
	default:
		lines = append(lines, flatLines(rows)...)
	}
	lines = append(lines, "", ui.C(th.Muted, status))
	lines = append(lines, ui.C(th.Muted, "Tip: add with `tada add \"Buy milk\"`"))
	return lines
}

func flatLines(rows []numbered) []string {
	th := ui.Current()
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		box, color := th.BoxUnchecked, th.Muted
		if r.task.Completed {
			box, color = th.BoxChecked, th.Success
		}
		line := fmt.Sprintf("%s %s %s",
			ui.C(ui.Dim, fmt.Sprintf("%2d.", r.n)), ui.C(color, box), ui.Truncate(r.task.Text, maxTextWidth))
		if r.task.Project != "" {
			line += " " + ui.C(th.Accent, "#"+r.task.Project)
		}
		out = append(out, line)
	}
	return out
}

func groupLines(rows []numbered) []string {
	var pend, done []numbered
	for _, r := range rows {
		if r.task.Completed {
			done = append(done, r)
		} else {
			pend = append(pend, r)
		}
	}
	th := ui.Current()
	section := func(title string, rows []numbered) []string {
		lines := []string{ui.C(th.Accent, title)}
		if len(rows) == 0 {
			return append(lines, ui.C(th.Muted, "(none)"))
		}
		return append(lines, flatLines(rows)...)
	}
	lines := section("Pending", pend)
	lines = append(lines, "")
	return append(lines, section("Done", done)...)
}

func syncStatus(w *workspace) string {
	switch {
	case !w.synced:
		return "local only"
	case w.session.Enabled():
		return fmt.Sprintf("synced as %s at %s", w.session.UserID(), w.session.LastSync().Local().Format(time.TimeOnly))
	default:
		return "offline, changes stay on this device"
	}
}

func joinArgs(args []string) string { return strings.TrimSpace(strings.Join(args, " ")) }
