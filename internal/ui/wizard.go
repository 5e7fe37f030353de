package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"vpnarch/internal/guide"
	"vpnarch/internal/prefs"
)

// Step is a wizard page.
type Step int

const (
	StepProtocol Step = iota
	StepServer
	StepClient
	StepGuide
)

const (
	sidebarWidth = 28
	statusTTL    = 3 * time.Second

	loadingText    = "正在初始化神经网络..."
	typingText     = "AI 架构师正在输入..."
	disclaimerText = "请确保您遵守当地关于使用 VPN 的法律法规。"
)

var stepNames = []string{"1. 协议", "2. 服务器系统", "3. 客户端设备", "4. 安装指南"}

type stepPage struct {
	title    string
	subtitle string
	options  func() []prefs.Option
}

var pages = map[Step]stepPage{
	StepProtocol: {"选择 VPN 协议", "选择用于安全连接的底层技术。", prefs.ProtocolOptions},
	StepServer:   {"选择服务器操作系统", "您的 VPN 服务器将托管在哪里？", prefs.ServerOptions},
	StepClient:   {"选择主要客户端设备", "您主要使用哪种设备进行连接？", prefs.ClientOptions},
}

// Actions connect the wizard to the generation machinery. Generate and
// Reset run inside tea commands, off the update loop.
type Actions struct {
	Generate func(p prefs.Preferences)
	Reset    func()
	Copy     func(text string) error // defaults to the system clipboard
}

// Options configure a Model.
type Options struct {
	ModelName         string
	MarkdownRendering bool
	GlamourStyle      string
	CodeStyle         string
}

// Model is the bubbletea model of the setup wizard.
type Model struct {
	styles  *Styles
	actions Actions
	opts    Options

	step   Step
	cursor int
	prefs  prefs.Preferences

	spinner  spinner.Model
	viewport viewport.Model
	renderer *glamour.TermRenderer
	ready    bool
	width    int
	height   int

	snapshot    guide.Snapshot
	minEpoch    uint64 // snapshots below this epoch are stale
	rendered    string
	followTail  bool
	retryNotice string

	status   string
	statusID int
}

// NewModel creates the wizard positioned on the first step.
func NewModel(opts Options, actions Actions) Model {
	if actions.Copy == nil {
		actions.Copy = clipboard.WriteAll
	}
	styles := DefaultStyles()
	return Model{
		styles:     styles,
		actions:    actions,
		opts:       opts,
		prefs:      prefs.Default(),
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.Loading)),
		followTail: true,
	}
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Step returns the current page.
func (m Model) Step() Step { return m.step }

// Preferences returns the current selection.
func (m Model) Preferences() prefs.Preferences { return m.prefs }

// Update handles wizard events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if m.step == StepGuide && m.ready {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			m.followTail = m.viewport.AtBottom()
			return m, cmd
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case GuideUpdatedMsg:
		m.applySnapshot(guide.Snapshot(msg))
		return m, nil

	case RetryNoticeMsg:
		if msg.Epoch >= m.minEpoch && msg.Epoch == m.snapshot.Epoch && m.snapshot.State == guide.Generating {
			m.retryNotice = fmt.Sprintf("服务器繁忙 (%s)，%.1f 秒后重试 (%d/%d)",
				msg.Reason, msg.Delay.Seconds(), msg.Attempt, msg.MaxRetries)
		}
		return m, nil

	case ConfigReloadedMsg:
		if msg.Err != nil {
			return m, m.setStatus("配置重新加载失败: " + msg.Err.Error())
		}
		m.opts.ModelName = msg.Model
		return m, m.setStatus("配置已重新加载")

	case copyResultMsg:
		if msg.err != nil {
			return m, m.setStatus("复制失败: " + msg.err.Error())
		}
		return m, m.setStatus("指南已复制到剪贴板")

	case clearStatusMsg:
		if msg.id == m.statusID {
			m.status = ""
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" || key == "q" {
		return m, tea.Quit
	}

	if m.step == StepGuide {
		return m.handleGuideKey(msg)
	}

	options := pages[m.step].options()
	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(options)-1 {
			m.cursor++
		}
	case "enter", "right", "l", " ":
		m.choose(options[m.cursor].Value)
		if m.step == StepClient {
			return m, m.generate()
		}
		m.step++
		m.cursor = m.cursorFor(m.step)
	case "esc", "left", "h", "backspace":
		if m.step > StepProtocol {
			m.step--
			m.cursor = m.cursorFor(m.step)
		}
	}
	return m, nil
}

func (m Model) handleGuideKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "r":
		return m, m.generate()
	case "n", "esc":
		return m, m.startOver()
	case "c":
		if m.snapshot.State != guide.Completed {
			return m, m.setStatus("指南生成完成后才能复制")
		}
		text, copyFn := m.snapshot.Text, m.actions.Copy
		return m, func() tea.Msg { return copyResultMsg{err: copyFn(text)} }
	}

	if !m.ready {
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	m.followTail = m.viewport.AtBottom()
	return m, cmd
}

func (m *Model) choose(value string) {
	switch m.step {
	case StepProtocol:
		m.prefs.Protocol = prefs.Protocol(value)
	case StepServer:
		m.prefs.ServerOS = prefs.ServerOS(value)
	case StepClient:
		m.prefs.ClientOS = prefs.ClientOS(value)
	}
}

// cursorFor places the cursor on the current selection of step.
func (m Model) cursorFor(step Step) int {
	page, ok := pages[step]
	if !ok {
		return 0
	}
	var current string
	switch step {
	case StepProtocol:
		current = string(m.prefs.Protocol)
	case StepServer:
		current = string(m.prefs.ServerOS)
	case StepClient:
		current = string(m.prefs.ClientOS)
	}
	for i, opt := range page.options() {
		if opt.Value == current {
			return i
		}
	}
	return 0
}

// generate switches to the guide page and asks for a new episode.
func (m *Model) generate() tea.Cmd {
	m.step = StepGuide
	m.minEpoch = m.snapshot.Epoch + 1
	m.snapshot = guide.Snapshot{State: guide.Generating, Prefs: m.prefs, Epoch: m.snapshot.Epoch}
	m.rendered = ""
	m.retryNotice = ""
	m.followTail = true
	if m.ready {
		m.viewport.SetContent("")
		m.viewport.GotoTop()
	}

	p, gen := m.prefs, m.actions.Generate
	return func() tea.Msg {
		if gen != nil {
			gen(p)
		}
		return nil
	}
}

// startOver abandons the current guide and returns to the first step.
func (m *Model) startOver() tea.Cmd {
	m.step = StepProtocol
	m.cursor = m.cursorFor(StepProtocol)
	m.minEpoch = m.snapshot.Epoch + 1
	m.snapshot = guide.Snapshot{Epoch: m.snapshot.Epoch}
	m.rendered = ""
	m.retryNotice = ""

	reset := m.actions.Reset
	return func() tea.Msg {
		if reset != nil {
			reset()
		}
		return nil
	}
}

func (m *Model) applySnapshot(s guide.Snapshot) {
	if s.Epoch < m.minEpoch {
		return
	}
	m.snapshot = s
	if s.State != guide.Generating || s.Text != "" {
		m.retryNotice = ""
	}
	m.refreshGuide()
}

func (m *Model) refreshGuide() {
	switch {
	case m.snapshot.State == guide.Failed:
		m.rendered = m.styles.Error.Render(m.snapshot.Text) + failureDetails(m.styles, m.snapshot.Err)
	case m.snapshot.Text == "":
		m.rendered = ""
	default:
		m.rendered = m.renderMarkdown(m.snapshot.Text)
	}

	if !m.ready {
		return
	}
	m.viewport.SetContent(m.rendered)
	if m.followTail {
		m.viewport.GotoBottom()
	}
}

func (m *Model) renderMarkdown(text string) string {
	if !m.opts.MarkdownRendering || m.renderer == nil {
		return text
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height

	mainWidth := max(width-sidebarWidth-4, 20)
	// header (2 lines + gap) and footer (typing, notice, help, status)
	vpHeight := max(height-8, 3)

	if !m.ready {
		m.viewport = viewport.New(mainWidth, vpHeight)
		m.viewport.MouseWheelEnabled = true
		m.ready = true
	} else {
		m.viewport.Width = mainWidth
		m.viewport.Height = vpHeight
	}

	if m.opts.MarkdownRendering {
		style := m.opts.GlamourStyle
		if style == "" {
			style = "dark"
		}
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(mainWidth-2),
		)
		if err == nil {
			m.renderer = renderer
		}
	}
	m.refreshGuide()
}

func (m *Model) setStatus(text string) tea.Cmd {
	m.statusID++
	m.status = text
	id := m.statusID
	return tea.Tick(statusTTL, func(time.Time) tea.Msg { return clearStatusMsg{id: id} })
}

// View renders the wizard.
func (m Model) View() string {
	main := m.viewGuide()
	if m.step != StepGuide {
		main = m.viewSelection()
	}
	if m.status != "" {
		main += "\n" + m.styles.Accent.Render(m.status)
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, m.viewSidebar(), "  ", main)
}

func (m Model) viewSidebar() string {
	var b strings.Builder
	b.WriteString(m.styles.Brand.Render("VPN 架构师"))
	b.WriteString("\n")
	if m.opts.ModelName != "" {
		b.WriteString(m.styles.Dim.Render(m.opts.ModelName))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for i, name := range stepNames {
		switch {
		case Step(i) == m.step:
			b.WriteString(m.styles.StepActive.Render("▌ " + name))
		case Step(i) < m.step:
			b.WriteString(m.styles.StepDone.Render("✓ " + name))
		default:
			b.WriteString(m.styles.StepTodo.Render("  " + name))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.styles.Subtitle.Render("免责声明"))
	b.WriteString("\n")
	b.WriteString(m.styles.Disclaimer.Width(sidebarWidth - 2).Render(disclaimerText))

	return lipgloss.NewStyle().Width(sidebarWidth).Render(b.String())
}

func (m Model) viewSelection() string {
	page := pages[m.step]
	var b strings.Builder
	b.WriteString(m.styles.Title.Render(page.title))
	b.WriteString("\n")
	b.WriteString(m.styles.Subtitle.Render(page.subtitle))
	b.WriteString("\n\n")

	cardWidth := 56
	if m.width > 0 {
		cardWidth = min(max(m.width-sidebarWidth-8, 30), 72)
	}
	for i, opt := range page.options() {
		style := m.styles.Card
		marker := "  "
		if i == m.cursor {
			style = m.styles.CardSelected
			marker = "▸ "
		}
		card := m.styles.CardTitle.Render(marker+opt.Title) + "\n" +
			m.styles.CardDesc.Render("  "+opt.Description)
		b.WriteString(style.Width(cardWidth).Render(card))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	next := "下一步"
	if m.step == StepClient {
		next = "生成指南"
	}
	help := "↑/↓ 选择 · enter " + next
	if m.step > StepProtocol {
		help += " · esc 返回"
	}
	b.WriteString(m.styles.Help.Render(help + " · q 退出"))
	return b.String()
}

func (m Model) viewGuide() string {
	p := m.snapshot.Prefs
	var b strings.Builder
	b.WriteString(m.styles.GuideHeader.Render(fmt.Sprintf("%s 搭建指南", p.Protocol.Label())))
	b.WriteString("\n")
	b.WriteString(m.styles.Summary.Render(fmt.Sprintf("服务器: %s • 客户端: %s", p.ServerOS.Label(), p.ClientOS.Label())))
	b.WriteString("\n\n")

	generating := m.snapshot.State == guide.Generating
	switch {
	case generating && m.snapshot.Text == "":
		b.WriteString(m.spinner.View() + " " + m.styles.Loading.Render(loadingText))
		b.WriteString("\n")
	case m.ready:
		b.WriteString(m.viewport.View())
		b.WriteString("\n")
	default:
		b.WriteString(m.rendered)
		b.WriteString("\n")
	}

	if generating && m.snapshot.Text != "" {
		b.WriteString(m.spinner.View() + " " + m.styles.Typing.Render(typingText))
		b.WriteString("\n")
	}
	if m.retryNotice != "" {
		b.WriteString(m.styles.Warning.Render(m.retryNotice))
		b.WriteString("\n")
	}

	b.WriteString(m.styles.Help.Render("r 重新生成 · n 重新开始 · c 复制 · ↑/↓ 滚动 · q 退出"))
	return b.String()
}
