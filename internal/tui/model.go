package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/spinhall/roulette/internal/roulette"
	"github.com/spinhall/roulette/internal/server"
)

const maxLogLines = 12

// Model is the Bubble Tea model for the table view.
type Model struct {
	conn   *websocket.Conn
	user   UserInfo
	logger *log.Logger

	input textinput.Model

	phase     string
	countdown int
	history   []roulette.Outcome
	messages  []string

	width    int
	height   int
	quitting bool
}

// NewModel creates the table view for a logged-in user.
func NewModel(conn *websocket.Conn, user UserInfo, logger *log.Logger) *Model {
	ti := textinput.New()
	ti.Placeholder = "bet <amount> <red|black|green|even|odd|number N|dozen 1st|2nd|3rd>"
	ti.Focus()
	ti.CharLimit = 80
	ti.Width = 70
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	ti.Prompt = "> "

	return &Model{
		conn:   conn,
		user:   user,
		logger: logger.WithPrefix("tui"),
		input:  ti,
		phase:  "connecting",
	}
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.readNext())
}

// readNext returns a command that blocks on the next server frame.
func (m *Model) readNext() tea.Cmd {
	return func() tea.Msg {
		_, raw, err := m.conn.ReadMessage()
		if err != nil {
			return connClosedMsg{err: err}
		}
		msg, err := decodeServerMessage(raw)
		if err != nil {
			m.logger.Debug("dropping frame", "error", err)
			return connClosedMsg{err: err}
		}
		return msg
	}
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line != "" {
				m.handleCommand(line)
			}
		}

	case server.InitMessage:
		m.phase = "betting"
		m.history = msg.History
		m.appendLog(InfoStyle.Render("Connected. Place your bets."))
		return m, m.readNext()

	case server.TimerMessage:
		m.phase = msg.Status
		m.countdown = msg.Value
		return m, m.readNext()

	case server.StatusMessage:
		m.phase = msg.Value
		if msg.Value == "rolling" {
			m.appendLog(InfoStyle.Render("No more bets. Rolling..."))
		}
		return m, m.readNext()

	case server.ResultMessage:
		m.phase = "settling"
		m.history = msg.History
		m.appendLog(fmt.Sprintf("Rolled %s", renderOutcome(roulette.Outcome{
			Number: msg.Number,
			Color:  roulette.Color(msg.Color),
		})))
		if winnings, ok := msg.Winners[m.user.ID]; ok {
			m.user.Balance = m.user.Balance.Add(winnings)
			m.appendLog(SuccessStyle.Render(fmt.Sprintf("You won %s!", winnings)))
		}
		return m, m.readNext()

	case server.BetConfirmedMessage:
		m.user.Balance = msg.NewBalance
		m.appendLog(SuccessStyle.Render(msg.Message))
		return m, m.readNext()

	case server.ErrorMessage:
		m.appendLog(ErrorStyle.Render(msg.Message))
		return m, m.readNext()

	case connClosedMsg:
		m.appendLog(ErrorStyle.Render(fmt.Sprintf("Connection lost: %v", msg.err)))
		m.quitting = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleCommand parses and executes one input line.
func (m *Model) handleCommand(line string) {
	switch {
	case line == "quit" || line == "exit":
		m.quitting = true
		_ = m.conn.Close()
	case strings.HasPrefix(line, "bet "):
		bet, err := parseBet(line, m.user.ID)
		if err != nil {
			m.appendLog(ErrorStyle.Render(err.Error()))
			return
		}
		m.sendBet(bet)
	default:
		m.appendLog(ErrorStyle.Render(fmt.Sprintf("unknown command %q (try: bet 10 red)", line)))
	}
}

func (m *Model) sendBet(msg server.PlaceBetMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		m.appendLog(ErrorStyle.Render(err.Error()))
		return
	}
	if err := m.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		m.appendLog(ErrorStyle.Render(fmt.Sprintf("send failed: %v", err)))
	}
}

// parseBet turns a "bet <amount> <target>" line into a wire message.
func parseBet(line, userID string) (server.PlaceBetMessage, error) {
	var zero server.PlaceBetMessage

	fields := strings.Fields(line)
	if len(fields) < 3 {
		return zero, fmt.Errorf("usage: bet <amount> <red|black|green|even|odd|number N|dozen 1st>")
	}

	amount, err := decimal.NewFromString(fields[1])
	if err != nil || !amount.IsPositive() {
		return zero, fmt.Errorf("amount must be a positive number, got %q", fields[1])
	}

	msg := server.PlaceBetMessage{
		Type:   server.MessageTypePlaceBet,
		UserID: userID,
		Amount: amount,
	}

	target := fields[2]
	switch target {
	case "red", "black", "green":
		msg.BetType = string(roulette.KindColor)
		msg.Value = server.FlexValue(target)
	case "even", "odd":
		msg.BetType = string(roulette.KindParity)
		msg.Value = server.FlexValue(target)
	case "number":
		if len(fields) < 4 {
			return zero, fmt.Errorf("usage: bet <amount> number <0-%d>", roulette.MaxNumber)
		}
		if _, err := strconv.Atoi(fields[3]); err != nil {
			return zero, fmt.Errorf("number must be an integer, got %q", fields[3])
		}
		msg.BetType = string(roulette.KindNumber)
		msg.Value = server.FlexValue(fields[3])
	case "dozen":
		if len(fields) < 4 {
			return zero, fmt.Errorf("usage: bet <amount> dozen <1st|2nd|3rd>")
		}
		switch fields[3] {
		case "1st", "2nd", "3rd":
			msg.BetType = string(roulette.KindDozen)
			msg.Value = server.FlexValue(fields[3] + " 12")
		default:
			return zero, fmt.Errorf("dozen must be 1st, 2nd or 3rd, got %q", fields[3])
		}
	default:
		// Bare number shortcut: "bet 5 17"
		if _, err := strconv.Atoi(target); err == nil {
			msg.BetType = string(roulette.KindNumber)
			msg.Value = server.FlexValue(target)
			break
		}
		return zero, fmt.Errorf("unknown bet target %q", target)
	}

	return msg, nil
}

func (m *Model) appendLog(line string) {
	m.messages = append(m.messages, line)
	if len(m.messages) > maxLogLines {
		m.messages = m.messages[len(m.messages)-maxLogLines:]
	}
}

func renderOutcome(o roulette.Outcome) string {
	label := strconv.Itoa(o.Number)
	switch o.Color {
	case roulette.Red:
		return RedStyle.Render(label)
	case roulette.Black:
		return BlackStyle.Render(label)
	default:
		return GreenStyle.Render(label)
	}
}

// View renders the table.
func (m *Model) View() string {
	if m.quitting {
		return "Thanks for playing!\n"
	}

	var b strings.Builder

	header := fmt.Sprintf(" ROULETTE  %s ", m.user.Username)
	b.WriteString(HeaderStyle.Render(header))
	b.WriteString("\n\n")

	switch m.phase {
	case "betting":
		b.WriteString(fmt.Sprintf("Bets open: %2ds remaining\n", m.countdown))
	case "rolling":
		b.WriteString("Rolling...\n")
	case "settling":
		b.WriteString("Round settled\n")
	default:
		b.WriteString(m.phase + "\n")
	}

	b.WriteString(fmt.Sprintf("Balance: %s\n\n", BalanceStyle.Render(m.user.Balance.String())))

	if len(m.history) > 0 {
		cells := make([]string, 0, len(m.history))
		for _, o := range m.history {
			cells = append(cells, renderOutcome(o))
		}
		b.WriteString("Recent: " + strings.Join(cells, " ") + "\n\n")
	}

	for _, line := range m.messages {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(InfoStyle.Render("enter to bet, esc to quit"))
	b.WriteString("\n")

	return b.String()
}

// Run logs in, connects, and drives the TUI until the user quits.
func Run(ctx context.Context, serverURL, username, password string, logger *log.Logger) error {
	client := NewClient(serverURL, logger)

	user, err := client.Login(ctx, username, password)
	if err != nil {
		return err
	}

	conn, err := client.Dial(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	model := NewModel(conn, *user, logger)
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}
