package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fahmaliyi/credboard/vault"
)

// revealDuration is how long "v" shows a secret in the TUI.
const revealDuration = 5 * time.Second

type viewState int

const (
	stateClients viewState = iota
	stateLogins
	stateLogin
	stateForm
)

type formKind int

const (
	formClient formKind = iota
	formLogin
)

type hideSecretMsg struct{ seq int }

type model struct {
	ctx context.Context
	app *App

	state        viewState
	clientCursor int
	loginCursor  int

	form       formKind
	textInputs []textinput.Model

	confirmDelete bool
	revealed      bool
	revealSeq     int
	msg           string
	err           string
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
	msgStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("57")).Foreground(lipgloss.Color("0"))
)

// RunTUI starts the interactive TUI.
func RunTUI(ctx context.Context, a *App) error {
	p := tea.NewProgram(newModel(ctx, a))
	_, err := p.Run()
	return err
}

func newModel(ctx context.Context, a *App) model {
	return model{ctx: ctx, app: a, state: stateClients}
}

// --- Tea Model interface ---
func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if h, ok := msg.(hideSecretMsg); ok {
		if h.seq == m.revealSeq {
			m.revealed = false
		}
		return m, nil
	}

	if k, ok := msg.(tea.KeyMsg); ok && m.confirmDelete {
		return m.updateConfirm(k), nil
	}

	switch m.state {
	case stateClients:
		return updateClients(m, msg)
	case stateLogins:
		return updateLogins(m, msg)
	case stateLogin:
		return updateLogin(m, msg)
	case stateForm:
		return updateForm(m, msg)
	default:
		return m, nil
	}
}

func (m model) View() string {
	var s string
	switch m.state {
	case stateClients:
		s = viewClients(m)
	case stateLogins:
		s = viewLogins(m)
	case stateLogin:
		s = viewLogin(m)
	case stateForm:
		s = viewForm(m)
	default:
		return "Unknown state"
	}
	if m.msg != "" {
		s += "\n" + msgStyle.Render(m.msg)
	}
	if m.err != "" {
		s += "\n" + errStyle.Render(m.err)
	}
	return s
}

func (m model) clients() []vault.Client { return m.app.Catalogue().Clients }

func (m model) client() *vault.Client {
	cs := m.clients()
	if m.clientCursor < 0 || m.clientCursor >= len(cs) {
		return nil
	}
	return &cs[m.clientCursor]
}

func (m model) login() *vault.Login {
	cl := m.client()
	if cl == nil || m.loginCursor < 0 || m.loginCursor >= len(cl.Logins) {
		return nil
	}
	return &cl.Logins[m.loginCursor]
}

func (m *model) report(err error, ok string) {
	if err != nil {
		m.msg, m.err = "", userMessage(err)
		return
	}
	m.msg, m.err = ok, ""
}

func moveCursor(cursor, n int, key string) int {
	switch key {
	case "j", "down":
		if cursor < n-1 {
			cursor++
		}
	case "k", "up":
		if cursor > 0 {
			cursor--
		}
	}
	return cursor
}

// --- Clients ---
func updateClients(m model, msg tea.Msg) (model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "j", "down", "k", "up":
		m.clientCursor = moveCursor(m.clientCursor, len(m.clients()), key.String())
	case "enter":
		if m.client() != nil {
			m.state = stateLogins
			m.loginCursor = 0
			m.msg, m.err = "", ""
		}
	case "a":
		m = m.openForm(formClient)
	case "d":
		if cl := m.client(); cl != nil {
			m.confirmDelete = true
			m.msg, m.err = fmt.Sprintf("Delete %s and its %d login(s)? (y/n)", cl.DisplayName, len(cl.Logins)), ""
		}
	}
	return m, nil
}

func viewClients(m model) string {
	s := titleStyle.Render("Clients") + "\n\n"
	if len(m.clients()) == 0 {
		s += "No clients yet. Press a to add one.\n"
	}
	for i, cl := range m.clients() {
		line := fmt.Sprintf("%-30s  %-30s  %d login(s)", cl.DisplayName, cl.Email, len(cl.Logins))
		if i == m.clientCursor {
			line = selectedStyle.Render(line)
		}
		s += line + "\n"
	}
	s += "\n" + helpStyle.Render("j/k=move, enter=open, a=add client, d=delete, q=quit")
	return s
}

// --- Logins ---
func updateLogins(m model, msg tea.Msg) (model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	cl := m.client()
	if cl == nil {
		m.state = stateClients
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.state = stateClients
		m.msg, m.err = "", ""
	case "j", "down", "k", "up":
		m.loginCursor = moveCursor(m.loginCursor, len(cl.Logins), key.String())
	case "enter":
		if m.login() != nil {
			m.state = stateLogin
			m.revealed = false
			m.msg, m.err = "", ""
		}
	case "a":
		m = m.openForm(formLogin)
	case "c":
		if l := m.login(); l != nil {
			m.report(m.app.CopySecret(l.Secret), m.copiedMessage())
		}
	case "d":
		if l := m.login(); l != nil {
			m.confirmDelete = true
			m.msg, m.err = fmt.Sprintf("Delete login %s @ %s? (y/n)", l.Username, l.Service), ""
		}
	}
	return m, nil
}

func viewLogins(m model) string {
	cl := m.client()
	if cl == nil {
		return ""
	}
	s := titleStyle.Render(cl.DisplayName) + "\n"
	if cl.Email != "" {
		s += cl.Email + "\n"
	}
	s += "\n"
	if len(cl.Logins) == 0 {
		s += "No logins yet. Press a to add one.\n"
	}
	for i, l := range cl.Logins {
		line := fmt.Sprintf("%-30s  %-30s  %s", l.Username, l.Service, "********")
		if i == m.loginCursor {
			line = selectedStyle.Render(line)
		}
		s += line + "\n"
	}
	s += "\n" + helpStyle.Render("j/k=move, enter=show, a=add login, c=copy, d=delete, esc=back, q=quit")
	return s
}

// --- Login ---
func updateLogin(m model, msg tea.Msg) (model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	l := m.login()
	if l == nil {
		m.state = stateLogins
		return m, nil
	}
	switch key.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.state = stateLogins
		m.revealed = false
		m.msg, m.err = "", ""
	case "v":
		m.revealed = true
		m.revealSeq++
		seq := m.revealSeq
		return m, tea.Tick(revealDuration, func(time.Time) tea.Msg { return hideSecretMsg{seq: seq} })
	case "c":
		m.report(m.app.CopySecret(l.Secret), m.copiedMessage())
	}
	return m, nil
}

func viewLogin(m model) string {
	l := m.login()
	if l == nil {
		return ""
	}
	secret := "********"
	if m.revealed {
		secret = l.Secret
	}
	s := titleStyle.Render(l.Service) + "\n\n"
	s += fmt.Sprintf("Username: %s\nSecret: %s\nService: %s\n", l.Username, secret, l.Service)
	if l.Notes != "" {
		s += fmt.Sprintf("Notes: %s\n", l.Notes)
	}
	s += fmt.Sprintf("Created: %s\n", l.CreatedAt.Local().Format("2006-01-02 15:04"))
	s += "\n" + helpStyle.Render(fmt.Sprintf("v=reveal for %s, c=copy, esc=back", revealDuration))
	return s
}

func (m model) copiedMessage() string {
	if m.app.clipTimeout > 0 {
		return fmt.Sprintf("Secret copied! (clears in %s)", m.app.clipTimeout)
	}
	return "Secret copied!"
}

// --- Delete confirmation ---
func (m model) updateConfirm(key tea.KeyMsg) model {
	m.confirmDelete = false
	if key.String() != "y" {
		m.msg, m.err = "Delete cancelled.", ""
		return m
	}

	switch m.state {
	case stateClients:
		if cl := m.client(); cl != nil {
			m.report(m.app.DeleteClient(m.ctx, cl.ID), "Client deleted!")
			if m.clientCursor >= len(m.clients()) && m.clientCursor > 0 {
				m.clientCursor--
			}
		}
	case stateLogins:
		cl, l := m.client(), m.login()
		if cl != nil && l != nil {
			m.report(m.app.DeleteLogin(m.ctx, cl.ID, l.ID), "Login deleted!")
			if cl := m.client(); cl != nil && m.loginCursor >= len(cl.Logins) && m.loginCursor > 0 {
				m.loginCursor--
			}
		}
	}
	return m
}

// --- Add form ---
func (m model) openForm(kind formKind) model {
	var fields []string
	switch kind {
	case formClient:
		fields = []string{"Name", "Email (optional)"}
	case formLogin:
		fields = []string{"Username", "Secret", "Service", "Notes (optional)"}
	}
	m.textInputs = make([]textinput.Model, len(fields))
	for i, f := range fields {
		ti := textinput.New()
		ti.Placeholder = f
		ti.CharLimit = 256
		if f == "Secret" {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '*'
		}
		m.textInputs[i] = ti
	}
	m.textInputs[0].Focus()
	m.form = kind
	m.state = stateForm
	m.msg, m.err = "", ""
	return m
}

func updateForm(m model, msg tea.Msg) (model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			m = m.closeForm()
			return m, nil
		case "tab", "shift+tab", "down", "up":
			m.focusNext(key.String() == "shift+tab" || key.String() == "up")
			return m, nil
		case "enter":
			if m.textInputs[len(m.textInputs)-1].Focused() {
				return m.saveForm(), nil
			}
			m.focusNext(false)
			return m, nil
		}
	}

	var cmds []tea.Cmd
	for i := range m.textInputs {
		if m.textInputs[i].Focused() {
			var cmd tea.Cmd
			m.textInputs[i], cmd = m.textInputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
	}
	return m, tea.Batch(cmds...)
}

// Focus next or previous input
func (m *model) focusNext(backward bool) {
	n := len(m.textInputs)
	for i := 0; i < n; i++ {
		if m.textInputs[i].Focused() {
			m.textInputs[i].Blur()
			if backward {
				m.textInputs[(i-1+n)%n].Focus()
			} else {
				m.textInputs[(i+1)%n].Focus()
			}
			break
		}
	}
}

func (m model) closeForm() model {
	for i := range m.textInputs {
		m.textInputs[i].SetValue("")
	}
	m.textInputs = nil
	if m.form == formLogin {
		m.state = stateLogins
	} else {
		m.state = stateClients
	}
	return m
}

// saveForm stores the entered client or login. On a validation error the
// form stays open with the values intact.
func (m model) saveForm() model {
	v := func(i int) string { return m.textInputs[i].Value() }

	var err error
	var ok string
	switch m.form {
	case formClient:
		_, err = m.app.AddClient(m.ctx, v(0), v(1))
		ok = "Client added!"
	case formLogin:
		cl := m.client()
		if cl == nil {
			return m.closeForm()
		}
		_, err = m.app.AddLogin(m.ctx, cl.ID, v(0), v(1), v(2), v(3))
		ok = "Login added!"
	}
	if err != nil {
		m.report(err, "")
		return m
	}

	kind := m.form
	m = m.closeForm()
	if kind == formClient {
		m.clientCursor = len(m.clients()) - 1
	} else if cl := m.client(); cl != nil {
		m.loginCursor = len(cl.Logins) - 1
	}
	m.report(nil, ok)
	return m
}

func viewForm(m model) string {
	title := "Add Client"
	if m.form == formLogin {
		title = "Add Login"
		if cl := m.client(); cl != nil {
			title += " to " + cl.DisplayName
		}
	}
	s := titleStyle.Render(title) + "\n\n"
	lines := make([]string, len(m.textInputs))
	for i, ti := range m.textInputs {
		lines[i] = fmt.Sprintf("%s: %s", ti.Placeholder, ti.View())
	}
	s += strings.Join(lines, "\n\n") + "\n"
	s += "\n" + helpStyle.Render("tab=next field, enter on last field=save, esc=cancel")
	return s
}
