// Package dashboard renders the heartbeat monitor's live terminal display
// and drives its event loop: CAN frame arrivals, keyboard input, signals,
// and the periodic redraw tick all funnel through Run.
package dashboard

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	log "github.com/sirupsen/logrus"

	canopen "github.com/canopenctl/canopenctl"
	"github.com/canopenctl/canopenctl/pkg/can"
)

// MinWidth and MinHeight are the dashboard's fixed layout contract.
const (
	MinWidth  = 80
	MinHeight = 20
)

var glyphFrames = []rune{'|', '/', '-', '\\'}

// panelMode selects which auxiliary panel the lower region shows. Only the
// selected panel is drawn, whatever the terminal height.
type panelMode int

const (
	panelRate panelMode = iota
	panelLegend
)

// Dashboard owns the terminal screen and the monitor it renders.
type Dashboard struct {
	screen  tcell.Screen
	monitor *canopen.Monitor
	bus     can.Bus

	mu     sync.Mutex
	hex    bool
	panel  panelMode
	glyph  int
}

// New builds a Dashboard bound to bus and rendering iface's monitor state.
func New(bus can.Bus, iface string, present map[canopen.NodeID]bool) (*Dashboard, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("dashboard: new screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("dashboard: init screen: %w", err)
	}
	screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	screen.Clear()

	return &Dashboard{
		screen:  screen,
		monitor: canopen.NewMonitor(iface, present, time.Now()),
		bus:     bus,
		hex:     true,
		panel:   panelRate,
	}, nil
}

type receivedFrame struct {
	frame can.Frame
	rx    time.Time
}

// Run drives the event loop until a quit key, a quit signal, or a fatal
// transport error. It always restores the terminal before returning.
func (d *Dashboard) Run() error {
	defer d.screen.Fini()

	frames := make(chan receivedFrame, 64)
	readErrs := make(chan error, 1)
	done := make(chan struct{})
	go d.readLoop(frames, readErrs, done)
	defer close(done)

	keys := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := d.screen.PollEvent()
			if ev == nil {
				return
			}
			keys <- ev
		}
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(signals)

	ticker := time.NewTicker(canopen.RefreshInterval)
	defer ticker.Stop()

	d.draw()
	for {
		select {
		case rf := <-frames:
			d.monitor.OnFrame(rf.frame, rf.rx)
			d.draw()

		case err := <-readErrs:
			return fmt.Errorf("%w: %v", canopen.ErrTransportRead, err)

		case ev := <-keys:
			switch tev := ev.(type) {
			case *tcell.EventKey:
				if d.handleKey(tev) {
					return nil
				}
			case *tcell.EventResize:
				d.screen.Sync()
			}
			d.draw()

		case <-signals:
			log.Debug("dashboard: exiting on signal")
			return nil

		case now := <-ticker.C:
			d.monitor.Tick(now)
			d.mu.Lock()
			d.glyph = (d.glyph + 1) % len(glyphFrames)
			d.mu.Unlock()
			d.draw()
		}
	}
}

// readLoop polls the transport in short bounded reads so it never blocks
// the rest of the event loop indefinitely, forwarding each received frame
// with its kernel-reported receive time.
func (d *Dashboard) readLoop(out chan<- receivedFrame, errs chan<- error, done <-chan struct{}) {
	const pollTimeout = 100 * time.Millisecond
	for {
		select {
		case <-done:
			return
		default:
		}
		var frame can.Frame
		status, rx, err := d.bus.Read(&frame, pollTimeout)
		if err != nil {
			select {
			case errs <- err:
			default:
			}
			return
		}
		if status != can.Received {
			continue
		}
		select {
		case out <- receivedFrame{frame: frame, rx: rx}:
		case <-done:
			return
		}
	}
}

// handleKey applies one keyboard event and reports whether it requests a
// quit.
func (d *Dashboard) handleKey(ev *tcell.EventKey) bool {
	if ev.Key() != tcell.KeyRune {
		return false
	}
	switch ev.Rune() {
	case 'q', 'Q', 'x', 'X':
		return true
	case 'l':
		d.mu.Lock()
		if d.panel == panelRate {
			d.panel = panelLegend
		} else {
			d.panel = panelRate
		}
		d.mu.Unlock()
	case 'c':
		d.monitor.Clear()
	case ' ':
		d.mu.Lock()
		d.hex = !d.hex
		d.mu.Unlock()
	}
	return false
}
