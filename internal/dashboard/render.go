package dashboard

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	canopen "github.com/canopenctl/canopenctl"
)

// palette is the dashboard's 7-color set, one style per display state
// family plus the header/default style.
var palette = struct {
	header, boot, oper, pre, stop, invalid, unknown, dim tcell.Style
}{
	header:  tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorBlue).Bold(true),
	boot:    tcell.StyleDefault.Foreground(tcell.ColorYellow),
	oper:    tcell.StyleDefault.Foreground(tcell.ColorGreen),
	pre:     tcell.StyleDefault.Foreground(tcell.ColorAqua),
	stop:    tcell.StyleDefault.Foreground(tcell.ColorFuchsia),
	invalid: tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true),
	unknown: tcell.StyleDefault.Foreground(tcell.ColorRed),
	dim:     tcell.StyleDefault.Foreground(tcell.ColorGray),
}

func styleFor(state canopen.DisplayState) tcell.Style {
	switch state {
	case canopen.DisplayBootBlip:
		return palette.boot.Reverse(true)
	case canopen.DisplayBoot:
		return palette.boot
	case canopen.DisplayOper:
		return palette.oper
	case canopen.DisplayPre:
		return palette.pre
	case canopen.DisplayStop:
		return palette.stop
	case canopen.DisplayInvalid:
		return palette.invalid
	case canopen.DisplayUnknownFailure:
		return palette.unknown
	default:
		return palette.dim
	}
}

func (d *Dashboard) drawText(x, y int, style tcell.Style, text string) {
	for i, r := range text {
		d.screen.SetContent(x+i, y, r, nil, style)
	}
}

// draw redraws the whole fixed-layout screen: header with rotating glyph,
// per-node grid, summary counters, and the rate or legend panel.
func (d *Dashboard) draw() {
	d.mu.Lock()
	glyph := glyphFrames[d.glyph]
	hex := d.hex
	panel := d.panel
	d.mu.Unlock()

	d.screen.Clear()

	if w, h := d.screen.Size(); w < MinWidth || h < MinHeight {
		d.drawText(0, 0, palette.invalid, fmt.Sprintf("terminal too small: need %dx%d, have %dx%d", MinWidth, MinHeight, w, h))
		d.screen.Show()
		return
	}

	now := time.Now()
	snap := d.monitor.Snapshot()
	summary := snap.Summarize(now)

	d.drawText(0, 0, palette.header, fmt.Sprintf("%c canopenctl  if=%-12s", glyph, d.monitor.Interface))

	d.drawGrid(2, snap, now, hex)

	bottom := MinHeight - 1
	d.drawText(0, bottom, tcell.StyleDefault,
		fmt.Sprintf("oper=%-3d preop=%-3d stop=%-3d fail=%-3d",
			summary.Operational, summary.PreOperational, summary.Stopped, summary.Failures))

	switch panel {
	case panelLegend:
		d.drawLegend(bottom - 3)
	default:
		d.drawRates(bottom-3, snap.Rates)
	}

	d.screen.Show()
}

func (d *Dashboard) drawGrid(top int, snap canopen.Snapshot, now time.Time, hex bool) {
	const cols = 8
	const cellWidth = 9
	row := 0
	col := 0
	for id := canopen.NodeID(1); id <= canopen.MaxNodeID; id++ {
		state := snap.Records[id].Classify(now)
		label := fmt.Sprintf("%3d", id)
		if hex {
			label = fmt.Sprintf("x%02X", id)
		}
		text := fmt.Sprintf("%s:%s", label, state)
		d.drawText(col*cellWidth, top+row, styleFor(state), text)
		col++
		if col >= cols {
			col = 0
			row++
		}
	}
}

func (d *Dashboard) drawRates(y int, rates canopen.Rates) {
	d.drawText(0, y, tcell.StyleDefault, fmt.Sprintf(
		"rate(f/s) nmt=%-8.1f pdo=%-8.1f sdo=%-8.1f total=%-8.1f",
		rates.NMT, rates.PDO, rates.SDO, rates.Total))
}

func (d *Dashboard) drawLegend(y int) {
	lines := []string{
		"BOOT  bootup seen recently     OPER  operational",
		"PRE   pre-operational          STOP  stopped",
		"UNKN  no recent heartbeat      ####  invalid state byte",
	}
	for i, line := range lines {
		d.drawText(0, y+i, palette.dim, line)
	}
}
