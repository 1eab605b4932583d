package dashboard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/torosent/volley/internal/metrics"
)

// RunConfig holds run parameters for display.
type RunConfig struct {
	Target      string
	Method      string
	Total       uint64
	Concurrency int
	Delay       time.Duration
	Pacing      string
	Timeout     time.Duration
	Retries     int
	ConfigFile  string
}

// Dashboard renders a live terminal UI for run metrics.
type Dashboard struct {
	collector    *metrics.Collector
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex

	grid           *ui.Grid
	latencySparkle *widgets.SparklineGroup
	latencyPara    *widgets.Paragraph
	progressGauge  *widgets.Gauge
	statusList     *widgets.List
	failureList    *widgets.List
	summaryPara    *widgets.Paragraph
	metricsPara    *widgets.Paragraph
	latencyHistory []float64
	startTime      time.Time
	cfg            RunConfig
}

// New initializes the terminal and builds the widgets. shutdownFunc is
// invoked when the user presses q or Ctrl-C.
func New(collector *metrics.Collector, cfg RunConfig, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dashboard{
		collector:      collector,
		ctx:            ctx,
		cancel:         cancel,
		shutdownFunc:   shutdownFunc,
		latencyHistory: make([]float64, 0, 100),
		startTime:      time.Now(),
		cfg:            cfg,
	}

	d.initWidgets()
	d.setupGrid()

	return d, nil
}

func (d *Dashboard) initWidgets() {
	sparkline := widgets.NewSparkline()
	sparkline.Title = "Mean latency (ms)"
	sparkline.LineColor = ui.ColorGreen
	sparkline.Data = []float64{0}

	d.latencySparkle = widgets.NewSparklineGroup(sparkline)
	d.latencySparkle.Title = "Latency"
	d.latencySparkle.BorderStyle.Fg = ui.ColorCyan

	d.latencyPara = widgets.NewParagraph()
	d.latencyPara.Title = "Latency Stats"
	d.latencyPara.Text = "Min: 0ms\nMean: 0ms\nP50: 0ms\nP90: 0ms\nP99: 0ms"
	d.latencyPara.BorderStyle.Fg = ui.ColorCyan

	d.progressGauge = widgets.NewGauge()
	d.progressGauge.Title = "Progress"
	d.progressGauge.BarColor = ui.ColorBlue
	d.progressGauge.BorderStyle.Fg = ui.ColorCyan
	d.progressGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	d.statusList = widgets.NewList()
	d.statusList.Title = "Status Codes"
	d.statusList.Rows = []string{"Awaiting data"}
	d.statusList.TextStyle = ui.NewStyle(ui.ColorCyan)
	d.statusList.BorderStyle.Fg = ui.ColorCyan

	d.failureList = widgets.NewList()
	d.failureList.Title = "Failures"
	d.failureList.Rows = []string{"No failures"}
	d.failureList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.failureList.BorderStyle.Fg = ui.ColorCyan

	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Run"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	d.metricsPara = widgets.NewParagraph()
	d.metricsPara.Title = "Counts"
	d.metricsPara.Text = "Waiting for data..."
	d.metricsPara.BorderStyle.Fg = ui.ColorCyan
}

func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)

	d.grid.Set(
		ui.NewRow(0.16,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.24,
			ui.NewCol(0.5, d.progressGauge),
			ui.NewCol(0.5, d.metricsPara),
		),
		ui.NewRow(0.30,
			ui.NewCol(0.65, d.latencySparkle),
			ui.NewCol(0.35, d.latencyPara),
		),
		ui.NewRow(0.30,
			ui.NewCol(0.5, d.statusList),
			ui.NewCol(0.5, d.failureList),
		),
	)
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the dashboard and restores the terminal.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	ui.Close()
	// Give terminal time to restore
	time.Sleep(100 * time.Millisecond)
}

func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()

	d.render()

	for {
		select {
		case <-d.ctx.Done():
			for len(uiEvents) > 0 {
				<-uiEvents
			}
			return
		case e := <-uiEvents:
			select {
			case <-d.ctx.Done():
				return
			default:
			}

			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
				// Stop() cancels the context once the run has wound down.
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update(d.collector.Summarize(), time.Since(d.startTime))
			d.render()
		}
	}
}

// update refreshes all widget data from a summary snapshot.
func (d *Dashboard) update(s metrics.RunSummary, elapsed time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s.Issued > 0 {
		d.latencyHistory = append(d.latencyHistory, metrics.Millis(s.MeanLatency))
		if len(d.latencyHistory) > 100 {
			d.latencyHistory = d.latencyHistory[1:]
		}
		d.latencySparkle.Sparklines[0].Data = d.latencyHistory
		d.latencySparkle.Title = fmt.Sprintf("Latency | Mean: %.2fms | Min: %.2fms | Max: %.2fms",
			metrics.Millis(s.MeanLatency), metrics.Millis(s.MinLatency), metrics.Millis(s.MaxLatency))
	}

	d.progressGauge.Percent = progressPercent(uint64(s.Total), d.cfg.Total)
	d.progressGauge.Label = fmt.Sprintf("%d/%d | batch %d", s.Total, d.cfg.Total, s.Batches)

	d.summaryPara.Text = fmt.Sprintf(
		"Target: %s %s\n%s\nElapsed: %s | Success Rate: %.1f%%",
		d.cfg.Method,
		d.cfg.Target,
		d.formatRunParams(),
		elapsed.Round(time.Second),
		s.SuccessRate()*100,
	)

	d.metricsPara.Text = fmt.Sprintf(
		"Issued:        %d\nSuccessful:    %d\nFailed:        %d\nCancelled:     %d\nRequests/sec:  %.2f\nWait P50/P99:  %.2f / %.2f ms",
		s.Issued,
		s.Successes,
		s.Failures,
		s.Cancelled,
		s.RequestsPerSec,
		metrics.Millis(s.AdmissionWaitP50),
		metrics.Millis(s.AdmissionWaitP99),
	)

	d.latencyPara.Text = fmt.Sprintf(
		"Min:  %.2fms\nMean: %.2fms\nP50:  %.2fms\nP90:  %.2fms\nP99:  %.2fms",
		metrics.Millis(s.MinLatency),
		metrics.Millis(s.MeanLatency),
		metrics.Millis(s.P50Latency),
		metrics.Millis(s.P90Latency),
		metrics.Millis(s.P99Latency),
	)

	d.statusList.Rows = formatRows(metrics.StatusRows(s.StatusCodes), "fg:cyan", "[Awaiting data](fg:white)")
	d.failureList.Rows = formatRows(metrics.FailureRows(s.FailuresByKind), "fg:red", "[No failures](fg:green)")
}

func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	ui.Render(d.grid)
}

func progressPercent(done, total uint64) int {
	if total == 0 {
		return 100
	}
	pct := int(done * 100 / total)
	if pct > 100 {
		pct = 100
	}
	return pct
}

func formatRows(rows []metrics.CountRow, style, empty string) []string {
	if len(rows) == 0 {
		return []string{empty}
	}
	if len(rows) > 10 {
		rows = rows[:10]
	}
	formatted := make([]string, 0, len(rows))
	for _, row := range rows {
		formatted = append(formatted, fmt.Sprintf("[%s](%s) %d", row.Label, style, row.Count))
	}
	return formatted
}

// formatRunParams formats the run parameters for display.
func (d *Dashboard) formatRunParams() string {
	var parts []string

	if d.cfg.Concurrency > 0 {
		parts = append(parts, fmt.Sprintf("Concurrency: %d", d.cfg.Concurrency))
	}

	pacing := d.cfg.Pacing
	if pacing == "" {
		pacing = "batch"
	}
	parts = append(parts, fmt.Sprintf("Delay: %s (%s)", d.cfg.Delay, pacing))

	if d.cfg.Total > 0 {
		parts = append(parts, fmt.Sprintf("Total: %d", d.cfg.Total))
	}

	if d.cfg.Timeout > 0 {
		parts = append(parts, fmt.Sprintf("Timeout: %s", d.cfg.Timeout))
	}

	// Retries (only show if set)
	if d.cfg.Retries > 0 {
		parts = append(parts, fmt.Sprintf("Retries: %d", d.cfg.Retries))
	}

	if d.cfg.ConfigFile != "" {
		parts = append(parts, fmt.Sprintf("Config: %s", d.cfg.ConfigFile))
	}

	return strings.Join(parts, " | ")
}
