package sim

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"firec2-sim/internal/config"
	"firec2-sim/internal/covert"
	"firec2-sim/internal/telemetry"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries a log line for the viewport.
type logMsg struct{ line string }

// stateMsg carries one node state update.
type stateMsg struct{ telemetry.NodeStateRow }

// stateBatchMsg carries a full grid sample.
type stateBatchMsg struct{ rows []telemetry.NodeStateRow }

// covertMsg carries a covert event for the counters.
type covertMsg struct{ telemetry.CovertEventRow }

// fireMsg carries a fire-dynamics sample.
type fireMsg struct{ telemetry.FireSampleRow }

// packetMsg carries a packet record for the counters.
type packetMsg struct{ telemetry.PacketRow }

// netMsg carries a link-quality sample.
type netMsg struct{ telemetry.NetworkMetricsRow }

// adminMsg reports the admin server address.
type adminMsg struct{ addr string }

type setIgniteMsg struct{ fn func(int) error }
type setCommandMsg struct {
	fn func(int, covert.Command) error
}

const (
	fallbackCommandInput = "0,go_dormant"
	maxLogLines          = 1000
)

// Heat ramp for the grid view.
var (
	styleAmbient = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleWarm    = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	styleHot     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	styleScorch  = lipgloss.NewStyle().Foreground(lipgloss.Color("202"))
	styleBurning = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleBurned  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func heatStyle(tempC float64, onFire, burnedOut bool) lipgloss.Style {
	switch {
	case burnedOut:
		return styleBurned
	case onFire:
		return styleBurning
	case tempC >= 60:
		return styleScorch
	case tempC >= 45:
		return styleHot
	case tempC >= 35:
		return styleWarm
	default:
		return styleAmbient
	}
}

// TUIWriter renders a live run using a bubbletea TUI.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter.
func NewTUIWriter(cfg *config.Config) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	m := newTUIModel(cfg)
	p := tea.NewProgram(m, tea.WithAltScreen())
	w.program = p
	go func() {
		_ = p.Start()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// WriteState implements NodeStateWriter.
func (w *TUIWriter) WriteState(row telemetry.NodeStateRow) error {
	w.program.Send(stateMsg{NodeStateRow: row})
	return nil
}

// WriteStates updates the whole grid from one sample.
func (w *TUIWriter) WriteStates(rows []telemetry.NodeStateRow) error {
	w.program.Send(stateBatchMsg{rows: rows})
	return nil
}

// WriteCovertEvent implements CovertEventWriter.
func (w *TUIWriter) WriteCovertEvent(row telemetry.CovertEventRow) error {
	w.program.Send(logMsg{line: covertLine(row)})
	w.program.Send(covertMsg{CovertEventRow: row})
	return nil
}

// WriteCovertEvents outputs multiple covert events.
func (w *TUIWriter) WriteCovertEvents(rows []telemetry.CovertEventRow) error {
	for _, r := range rows {
		_ = w.WriteCovertEvent(r)
	}
	return nil
}

// WriteFireSample implements FireSampleWriter.
func (w *TUIWriter) WriteFireSample(row telemetry.FireSampleRow) error {
	w.program.Send(fireMsg{FireSampleRow: row})
	return nil
}

// WriteFireSamples outputs multiple fire samples.
func (w *TUIWriter) WriteFireSamples(rows []telemetry.FireSampleRow) error {
	for _, r := range rows {
		_ = w.WriteFireSample(r)
	}
	return nil
}

// WritePacket implements PacketWriter.
func (w *TUIWriter) WritePacket(row telemetry.PacketRow) error {
	w.program.Send(packetMsg{PacketRow: row})
	return nil
}

// WritePackets outputs multiple packet rows.
func (w *TUIWriter) WritePackets(rows []telemetry.PacketRow) error {
	for _, r := range rows {
		_ = w.WritePacket(r)
	}
	return nil
}

// WriteAttackEvent implements AttackEventWriter.
func (w *TUIWriter) WriteAttackEvent(row telemetry.AttackEventRow) error {
	w.program.Send(logMsg{line: attackLine(row)})
	return nil
}

// WriteAttackEvents outputs multiple attack events.
func (w *TUIWriter) WriteAttackEvents(rows []telemetry.AttackEventRow) error {
	for _, r := range rows {
		_ = w.WriteAttackEvent(r)
	}
	return nil
}

// WriteNetworkMetrics implements NetworkMetricsWriter.
func (w *TUIWriter) WriteNetworkMetrics(row telemetry.NetworkMetricsRow) error {
	w.program.Send(netMsg{NetworkMetricsRow: row})
	return nil
}

// WriteNetworkMetricsBatch outputs multiple link-quality samples.
func (w *TUIWriter) WriteNetworkMetricsBatch(rows []telemetry.NetworkMetricsRow) error {
	for _, r := range rows {
		_ = w.WriteNetworkMetrics(r)
	}
	return nil
}

// SetAdminAddr shows the admin server address in the footer.
func (w *TUIWriter) SetAdminAddr(addr string) {
	w.program.Send(adminMsg{addr: addr})
}

// SetIgniter registers a callback to ignite a node manually.
func (w *TUIWriter) SetIgniter(fn func(int) error) {
	w.program.Send(setIgniteMsg{fn: fn})
}

// SetCommander registers a callback to inject a C2 command.
func (w *TUIWriter) SetCommander(fn func(int, covert.Command) error) {
	w.program.Send(setCommandMsg{fn: fn})
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	cfg   *config.Config
	table table.Model
	vp    viewport.Model

	logs  []string
	cells map[int]telemetry.NodeStateRow
	rssi  map[int]float64

	simSeconds float64
	beacons    int
	exfils     int
	commands   int
	accepted   int
	packets    int
	drops      int
	ignitions  int

	admin      string
	wrap       bool
	autoscroll bool
	help       bool
	showGrid   bool
	showConfig bool

	igniteInput  textinput.Model
	igniteDialog bool
	cmdInput     textinput.Model
	cmdDialog    bool
	ignite       func(int) error
	command      func(int, covert.Command) error

	header       string
	headerHeight int
	height       int
}

func newTUIModel(cfg *config.Config) tuiModel {
	cols := []table.Column{
		{Title: "Config", Width: 22},
		{Title: "Value", Width: 16},
		{Title: "Config", Width: 22},
		{Title: "Value", Width: 16},
	}
	rows := []table.Row{
		{"Seed", fmt.Sprintf("%d", cfg.Seed), "Grid", fmt.Sprintf("%dx%d", cfg.Grid.Width, cfg.Grid.Height)},
		{"Bit Pattern", cfg.Covert.BitPattern, "Compromised", joinInts(cfg.Attack.Nodes)},
		{"Beacon Base (s)", fmt.Sprintf("%.2f", cfg.Covert.BaseIntervalS), "Delay Delta (s)", fmt.Sprintf("%.2f", cfg.Covert.DelayDeltaS)},
		{"Alarm Threshold (C)", fmt.Sprintf("%.1f", cfg.Alarm.ThresholdC), "Packet Loss", fmt.Sprintf("%.2f", cfg.Network.DropProbability)},
	}
	t := table.New(table.WithColumns(cols), table.WithRows(rows), table.WithHeight(len(rows)+1))
	return tuiModel{
		cfg:        cfg,
		table:      t,
		vp:         viewport.New(0, 0),
		cells:      make(map[int]telemetry.NodeStateRow),
		rssi:       make(map[int]float64),
		autoscroll: true,
		showGrid:   true,
		showConfig: true,
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.vp.Width = msg.Width
		m.height = msg.Height
		m.header = m.renderHeader()
		m.headerHeight = lipgloss.Height(m.header)
		m.updateViewportHeight()
		m.refreshViewport()
	case tea.KeyMsg:
		if m.igniteDialog {
			switch msg.Type {
			case tea.KeyEnter:
				if id, err := strconv.Atoi(strings.TrimSpace(m.igniteInput.Value())); err == nil {
					if m.ignite != nil {
						go m.ignite(id)
					}
				}
				m.igniteDialog = false
				m.updateViewportHeight()
			case tea.KeyEsc:
				m.igniteDialog = false
				m.updateViewportHeight()
			default:
				var cmd tea.Cmd
				m.igniteInput, cmd = m.igniteInput.Update(msg)
				return m, cmd
			}
			return m, nil
		}
		if m.cmdDialog {
			switch msg.Type {
			case tea.KeyEnter:
				if id, c, err := parseCommandInput(m.cmdInput.Value()); err == nil {
					if m.command != nil {
						go m.command(id, c)
					}
				}
				m.cmdDialog = false
				m.updateViewportHeight()
			case tea.KeyEsc:
				m.cmdDialog = false
				m.updateViewportHeight()
			default:
				var cmd tea.Cmd
				m.cmdInput, cmd = m.cmdInput.Update(msg)
				return m, cmd
			}
			return m, nil
		}
		if m.help {
			switch msg.String() {
			case "?", "h", "esc":
				m.help = false
				m.updateViewportHeight()
			}
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
			return m, nil
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
			return m, nil
		case "g":
			m.showGrid = !m.showGrid
			m.updateViewportHeight()
			return m, nil
		case "p":
			m.showConfig = !m.showConfig
			m.header = m.renderHeader()
			m.headerHeight = lipgloss.Height(m.header)
			m.updateViewportHeight()
			return m, nil
		case "i":
			m.igniteInput = textinput.New()
			m.igniteInput.Placeholder = "node id"
			m.igniteInput.SetValue(fmt.Sprintf("%d", m.cfg.Fire.OriginNode))
			m.igniteInput.CursorEnd()
			m.igniteInput.Focus()
			m.igniteDialog = true
			m.updateViewportHeight()
			return m, nil
		case "c":
			m.cmdInput = textinput.New()
			m.cmdInput.Placeholder = "node,command"
			val := fallbackCommandInput
			if len(m.cfg.Attack.Nodes) > 0 {
				val = fmt.Sprintf("%d,go_dormant", m.cfg.Attack.Nodes[0])
			}
			m.cmdInput.SetValue(val)
			m.cmdInput.CursorEnd()
			m.cmdInput.Focus()
			m.cmdDialog = true
			m.updateViewportHeight()
			return m, nil
		case "h", "?":
			m.help = !m.help
			m.updateViewportHeight()
			return m, nil
		}
		if !m.autoscroll {
			switch msg.String() {
			case "j", "down":
				m.vp.LineDown(1)
			case "k", "up":
				m.vp.LineUp(1)
			case "pgdown", "ctrl+n":
				m.vp.LineDown(10)
			case "pgup", "ctrl+p":
				m.vp.LineUp(10)
			default:
				var cmd tea.Cmd
				m.vp, cmd = m.vp.Update(msg)
				return m, cmd
			}
			return m, nil
		}
		return m, nil
	case logMsg:
		m.logs = append(m.logs, msg.line)
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		m.refreshViewport()
	case stateMsg:
		m.cells[msg.NodeID] = msg.NodeStateRow
		m.simSeconds = msg.SimSeconds
	case stateBatchMsg:
		for _, r := range msg.rows {
			m.cells[r.NodeID] = r
			m.simSeconds = r.SimSeconds
		}
	case covertMsg:
		switch msg.Kind {
		case telemetry.KindBeacon:
			m.beacons++
		case telemetry.KindExfil:
			m.exfils++
		case telemetry.KindCommand:
			m.commands++
			if msg.Accepted {
				m.accepted++
			}
		}
	case fireMsg:
		if msg.Ignited {
			m.ignitions++
			m.logs = append(m.logs, fireLine(msg.FireSampleRow))
			if len(m.logs) > maxLogLines {
				m.logs = m.logs[len(m.logs)-maxLogLines:]
			}
			m.refreshViewport()
		}
	case packetMsg:
		m.packets++
		if msg.Dropped {
			m.drops++
		}
	case netMsg:
		m.rssi[msg.NodeID] = msg.RSSIdBm
	case adminMsg:
		m.admin = msg.addr
	case setIgniteMsg:
		m.ignite = msg.fn
	case setCommandMsg:
		m.command = msg.fn
	}
	return m, nil
}

func (m *tuiModel) updateViewportHeight() {
	bottomHeight := lipgloss.Height(m.renderBottom())
	gridHeight := 0
	if m.showGrid {
		gridHeight = lipgloss.Height(m.renderGrid()) + 1
	}
	dialogHeight := 0
	if m.igniteDialog || m.cmdDialog {
		dialogHeight = 1
	}
	h := m.height - m.headerHeight - gridHeight - bottomHeight - dialogHeight - 3
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	var lines []string
	for _, l := range m.logs {
		if m.wrap {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	divider := strings.Repeat("─", m.vp.Width)
	sections := []string{m.header}
	if m.showGrid {
		sections = append(sections, divider, m.renderGrid())
	}
	sections = append(sections, divider, m.vp.View())
	if m.igniteDialog {
		sections = append(sections, fmt.Sprintf("Ignite Node (id) - Enter to ignite, Esc to cancel: %s", m.igniteInput.View()))
	}
	if m.cmdDialog {
		sections = append(sections, fmt.Sprintf("Inject Command (node,command) - Enter to send, Esc to cancel: %s", m.cmdInput.View()))
	}
	sections = append(sections, divider, m.renderBottom())
	return strings.Join(sections, "\n")
}

func (m tuiModel) renderHeader() string {
	if !m.showConfig {
		return "firec2-sim"
	}
	return m.table.View()
}

// renderGrid paints the sensor lattice with a heat ramp. Compromised
// nodes show their attack mode letter, benign nodes a block.
func (m tuiModel) renderGrid() string {
	var b strings.Builder
	for row := 0; row < m.cfg.Grid.Height; row++ {
		for col := 0; col < m.cfg.Grid.Width; col++ {
			id := row*m.cfg.Grid.Width + col
			cell, ok := m.cells[id]
			if !ok {
				b.WriteString(styleAmbient.Render("·") + " ")
				continue
			}
			glyph := "■"
			if cell.IsAttacker {
				glyph = strings.ToUpper(cell.AttackMode[:1])
			}
			if cell.BurnedOut {
				glyph = "x"
			}
			b.WriteString(heatStyle(cell.ActualTempC, cell.OnFire, cell.BurnedOut).Render(glyph) + " ")
		}
		b.WriteByte('\n')
	}
	legend := fmt.Sprintf("%s %s %s %s %s %s  D/A/P=attacker mode",
		styleAmbient.Render("■<35C"),
		styleWarm.Render("■<45C"),
		styleHot.Render("■<60C"),
		styleScorch.Render("■hot"),
		styleBurning.Render("■fire"),
		styleBurned.Render("x burned"))
	b.WriteString(legend)
	return b.String()
}

func (m tuiModel) renderBottom() string {
	var burning, burned, active int
	for _, c := range m.cells {
		if c.OnFire {
			burning++
		}
		if c.BurnedOut {
			burned++
		}
		if c.IsAttacker && c.AttackMode == "active" {
			active++
		}
	}
	var rssiSum float64
	for _, v := range m.rssi {
		rssiSum += v
	}
	rssiMean := 0.0
	if len(m.rssi) > 0 {
		rssiMean = rssiSum / float64(len(m.rssi))
	}

	adminColor := lipgloss.Color("9")
	adminLabel := "off"
	if m.admin != "" {
		adminColor = lipgloss.Color("10")
		adminLabel = m.admin
	}
	adminIndicator := lipgloss.NewStyle().Foreground(adminColor).Render("●")
	wrapColor := lipgloss.Color("9")
	if m.wrap {
		wrapColor = lipgloss.Color("10")
	}
	wrapIndicator := lipgloss.NewStyle().Foreground(wrapColor).Render("●")
	scrollColor := lipgloss.Color("10")
	if !m.autoscroll {
		scrollColor = lipgloss.Color("9")
	}
	scrollIndicator := lipgloss.NewStyle().Foreground(scrollColor).Render("●")

	state := fmt.Sprintf("%sRUN%s %st=%.1fs%s %sbeacons=%d%s %sexfils=%d%s %scmds=%d/%d%s %spkts=%d drop=%d%s %srssi=%.0fdBm%s %sburning=%d burned=%d%s %sactive=%d%s %signitions=%d%s",
		colorBlue, colorReset,
		colorWhite(), m.simSeconds, colorReset,
		colorCyan, m.beacons, colorReset,
		colorMagenta, m.exfils, colorReset,
		colorGreen, m.accepted, m.commands, colorReset,
		colorGray, m.packets, m.drops, colorReset,
		colorYellow, rssiMean, colorReset,
		colorRed, burning, burned, colorReset,
		colorRed, active, colorReset,
		colorYellow, m.ignitions, colorReset)
	return fmt.Sprintf("%s | Admin %s %s | Wrap %s | Scroll %s", state, adminIndicator, adminLabel, wrapIndicator, scrollIndicator)
}

func (m tuiModel) renderHelp() string {
	lines := []string{
		"Key Bindings:",
		" q  quit",
		" w  toggle wrap for the event log",
		" s  toggle auto-scroll",
		" g  toggle grid view",
		" p  toggle config panel",
		" i  ignite a node (id)",
		" c  inject C2 command (node,command)",
		" h/? toggle this help view",
		"",
		"Commands: increase_exfil decrease_exfil go_dormant resume change_pattern",
		"",
		"When auto-scroll is disabled:",
		" j/k or up/down    scroll one line",
		" pgdown/pgup       scroll a page",
	}
	return strings.Join(lines, "\n")
}

func parseCommandInput(val string) (int, covert.Command, error) {
	parts := strings.SplitN(val, ",", 2)
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("expected node,command")
	}
	id, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	cmd, err := covert.ParseCommand(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, err
	}
	return id, cmd, nil
}
