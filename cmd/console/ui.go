package main

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config        *ConsoleConfig
	client        *http.Client
	view          *SessionView
	sceneViewport viewport.Model
	metaViewport  viewport.Model
	ready         bool
	width         int
	height        int
	err           error
	loading       bool
	statusMsg     string

	// Choice navigation state
	selectedChoice int

	// Scenario selection state
	showScenarioModal bool
	scenarios         []string
	scenarioMap       map[string]string
	selectedScenario  int
	loadingScenarios  bool

	// Reflection form state
	showReflection    bool
	reflectionStep    int // 0 = name, then one step per question
	reflectionName    string
	reflectionAnswers []string
	questions         []string
	answerInput       textarea.Model

	// Quit confirmation state
	showQuitModal bool
}

type scenariosLoadedMsg struct {
	scenarios   []string
	scenarioMap map[string]string
	err         error
}

type sessionCreatedMsg struct {
	view *SessionView
	err  error
}

type sessionUpdatedMsg struct {
	view *SessionView
	err  error
}

type reflectionSubmittedMsg struct {
	view *SessionView
	err  error
}

var (
	scenePanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	narrationStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	outcomeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	choiceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	selectedChoiceStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey
)

func NewConsoleUI(cfg *ConsoleConfig, client *http.Client) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = "Type your answer here..."
	ta.CharLimit = 2000
	ta.SetWidth(50)
	ta.SetHeight(4)
	ta.ShowLineNumbers = false

	sceneVp := viewport.New(50, 20)
	sceneVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		config:            cfg,
		client:            client,
		sceneViewport:     sceneVp,
		metaViewport:      metaVp,
		answerInput:       ta,
		ready:             false,
		showScenarioModal: true,
		loadingScenarios:  true,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return m.loadScenarios()
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showScenarioModal {
		return m.updateScenarioModal(msg)
	}
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}
	if m.showReflection {
		return m.updateReflectionForm(msg)
	}

	var vpCmd, mvCmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.writeSceneContent()
		m.writeMetadata()
		m.ready = true

	case tea.KeyMsg:
		return m.handlePlayKey(msg)

	case sessionUpdatedMsg:
		m.loading = false
		if msg.err != nil {
			m.statusMsg = errorStyle.Render(msg.err.Error())
		} else {
			m.view = msg.view
			m.selectedChoice = 0
			m.statusMsg = ""
		}
		m.writeSceneContent()
		m.writeMetadata()

	case reflectionSubmittedMsg:
		m.loading = false
		if msg.err != nil {
			m.statusMsg = errorStyle.Render(msg.err.Error())
		} else {
			m.view = msg.view
			m.statusMsg = outcomeStyle.Render("Reflection submitted. Thank you!")
		}
		m.writeSceneContent()
		m.writeMetadata()
	}

	m.sceneViewport, vpCmd = m.sceneViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)
	return m, tea.Batch(vpCmd, mvCmd)
}

func (m ConsoleUI) handlePlayKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.loading {
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			m.showQuitModal = true
		}
		return m, nil
	}

	scene := m.view.Scene
	isChoice := len(scene.Choices) > 0

	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.showQuitModal = true
		return m, nil

	case tea.KeyUp:
		if isChoice && m.selectedChoice > 0 {
			m.selectedChoice--
			m.writeSceneContent()
		}
		return m, nil

	case tea.KeyDown:
		if isChoice && m.selectedChoice < len(scene.Choices)-1 {
			m.selectedChoice++
			m.writeSceneContent()
		}
		return m, nil

	case tea.KeyEnter, tea.KeySpace:
		if isChoice {
			m.loading = true
			return m, m.sendEvent("choice", m.selectedChoice)
		}
		if scene.Type == "terminal" {
			return m, nil
		}
		m.loading = true
		return m, m.sendEvent("continue", 0)
	}

	switch msg.String() {
	case "u":
		m.loading = true
		return m, m.sendEvent("undo", 0)
	case "r":
		m.loading = true
		return m, m.sendEvent("restart", 0)
	case "y":
		m.copyJourney()
		m.writeSceneContent()
	case "f":
		if scene.Type == "terminal" && !m.view.Session.Submitted[m.view.Session.Current] {
			m.showReflection = true
			m.reflectionStep = 0
			m.reflectionName = ""
			m.reflectionAnswers = nil
			m.questions = m.fetchQuestions()
			m.answerInput.Reset()
			m.answerInput.Focus()
			return m, textarea.Blink
		}
	}
	return m, nil
}

func (m *ConsoleUI) copyJourney() {
	var journey strings.Builder
	journey.WriteString("My path through the scenario:\n")
	for _, rec := range m.view.Session.ChoiceLog {
		journey.WriteString(fmt.Sprintf("- %s\n", rec.Choice))
	}
	if err := clipboard.WriteAll(journey.String()); err != nil {
		m.statusMsg = errorStyle.Render("Could not copy to clipboard: " + err.Error())
		return
	}
	m.statusMsg = loadingStyle.Render("Journey copied to clipboard")
}

func (m *ConsoleUI) resize() {
	sceneWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - sceneWidth - 6

	m.sceneViewport.Width = sceneWidth - 2
	m.sceneViewport.Height = m.height - 5
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.answerInput.SetWidth(sceneWidth - 4)
}

func (m *ConsoleUI) writeSceneContent() {
	width := m.sceneViewport.Width - 6
	if width < 20 {
		width = 20
	}

	scene := m.view.Scene
	var content strings.Builder

	if scene.Title != "" {
		content.WriteString(titleStyle.Render(scene.Title) + "\n\n")
	}
	content.WriteString(narrationStyle.Render(wordwrap.String(scene.Narration, width)) + "\n\n")
	if scene.Description != "" {
		content.WriteString(wordwrap.String(scene.Description, width) + "\n\n")
	}
	content.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")

	switch {
	case len(scene.Choices) > 0:
		content.WriteString("What do you do?\n\n")
		for i, c := range scene.Choices {
			label := fmt.Sprintf("%d. %s", i+1, c.Text)
			if i == m.selectedChoice {
				content.WriteString(selectedChoiceStyle.Render("▶ "+label) + "\n")
			} else {
				content.WriteString(choiceStyle.Render("  "+label) + "\n")
			}
		}
		content.WriteString("\n" + promptStyle.Render("↑/↓ to select, Enter to choose") + "\n")

	case scene.Type == "terminal":
		if scene.OutcomeMessage != "" {
			content.WriteString(outcomeStyle.Render(wordwrap.String(scene.OutcomeMessage, width)) + "\n\n")
		}
		content.WriteString(outcomeStyle.Render("The scenario has ended: "+scene.Outcome) + "\n\n")
		if m.view.Session.Submitted[m.view.Session.Current] {
			content.WriteString(promptStyle.Render("Reflection already submitted. u: undo, r: restart") + "\n")
		} else {
			content.WriteString(promptStyle.Render("f: submit reflection, u: undo, r: restart") + "\n")
		}

	default:
		content.WriteString(promptStyle.Render("Press Enter to continue") + "\n")
	}

	if m.statusMsg != "" {
		content.WriteString("\n" + m.statusMsg + "\n")
	}
	if m.loading {
		content.WriteString("\n" + loadingStyle.Render("...") + "\n")
	}

	m.sceneViewport.SetContent(content.String())
	m.sceneViewport.GotoTop()
}

func (m *ConsoleUI) writeMetadata() {
	st := m.view.Session
	var content strings.Builder
	content.WriteString(titleStyle.Render("SESSION") + "\n\n")

	content.WriteString("Session ID:\n")
	content.WriteString(st.ID.String()[:8] + "...\n\n")

	content.WriteString("Scenario:\n")
	content.WriteString(st.ScenarioFile + "\n\n")

	content.WriteString(fmt.Sprintf("Steps taken: %d\n", len(st.History)))
	content.WriteString(fmt.Sprintf("Choices made: %d\n\n", len(st.ChoiceLog)))

	if len(st.Vars) > 0 {
		content.WriteString("Variables:\n")
		names := make([]string, 0, len(st.Vars))
		for k := range st.Vars {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			content.WriteString(fmt.Sprintf("• %s: %d\n", k, st.Vars[k]))
		}
		content.WriteString("\n")
	}

	content.WriteString("Commands:\n")
	content.WriteString("• Enter: continue/choose\n")
	content.WriteString("• u: undo\n")
	content.WriteString("• r: restart\n")
	content.WriteString("• y: copy journey\n")
	content.WriteString("• Ctrl+C: quit\n")

	m.metaViewport.SetContent(content.String())
}

func (m ConsoleUI) sendEvent(action string, choice int) tea.Cmd {
	return func() tea.Msg {
		view, err := postEvent(m.client, m.config.APIBaseURL, m.view.Session.ID, action, choice)
		return sessionUpdatedMsg{view, err}
	}
}

func (m ConsoleUI) loadScenarios() tea.Cmd {
	return func() tea.Msg {
		orderedNames, scenarioMap, err := listScenarios(m.client, m.config.APIBaseURL)
		return scenariosLoadedMsg{orderedNames, scenarioMap, err}
	}
}

func (m ConsoleUI) createSessionFromScenario(scenarioFile string) tea.Cmd {
	return func() tea.Msg {
		view, err := createSession(m.client, m.config.APIBaseURL, scenarioFile)
		return sessionCreatedMsg{view, err}
	}
}

func (m ConsoleUI) submitReflection() tea.Cmd {
	name := m.reflectionName
	answers := append([]string(nil), m.reflectionAnswers...)
	return func() tea.Msg {
		view, err := postReflection(m.client, m.config.APIBaseURL,
			m.view.Session.ID, m.view.Session.Current, name, answers)
		return reflectionSubmittedMsg{view, err}
	}
}

func (m ConsoleUI) updateScenarioModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case scenariosLoadedMsg:
		m.loadingScenarios = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.scenarios = msg.scenarios
			m.scenarioMap = msg.scenarioMap
		}

	case sessionCreatedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.view = msg.view
			m.showScenarioModal = false
			if m.width > 0 && m.height > 0 {
				m.resize()
			}
			m.writeSceneContent()
			m.writeMetadata()
			m.ready = true
		}
		return m, nil

	case tea.KeyMsg:
		if m.loadingScenarios || m.err != nil {
			if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
				return m, tea.Quit
			}
			return m, nil
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyUp:
			if m.selectedScenario > 0 {
				m.selectedScenario--
			}
		case tea.KeyDown:
			if m.selectedScenario < len(m.scenarios)-1 {
				m.selectedScenario++
			}
		case tea.KeyEnter:
			if len(m.scenarios) > 0 {
				scenarioName := m.scenarios[m.selectedScenario]
				m.loading = true
				return m, m.createSessionFromScenario(m.scenarioMap[scenarioName])
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) updateReflectionForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	var taCmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case reflectionSubmittedMsg:
		m.showReflection = false
		m.loading = false
		if msg.err != nil {
			m.statusMsg = errorStyle.Render(msg.err.Error())
		} else {
			m.view = msg.view
			m.statusMsg = outcomeStyle.Render("Reflection submitted. Thank you!")
		}
		m.writeSceneContent()
		m.writeMetadata()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc:
			m.showReflection = false
			m.writeSceneContent()
			return m, nil
		case tea.KeyCtrlC:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			value := strings.TrimSpace(m.answerInput.Value())
			if value == "" {
				return m, nil
			}
			if m.reflectionStep == 0 {
				m.reflectionName = value
			} else {
				m.reflectionAnswers = append(m.reflectionAnswers, value)
			}
			m.answerInput.Reset()
			m.reflectionStep++
			if m.reflectionStep > len(m.questions) {
				m.loading = true
				return m, m.submitReflection()
			}
			return m, nil
		}
	}

	m.answerInput, taCmd = m.answerInput.Update(msg)
	return m, taCmd
}

// fetchQuestions pulls the reflection questions off the scenario document.
// The API serves them with the scenario, so the console fetches them once
// when the form opens.
func (m *ConsoleUI) fetchQuestions() []string {
	scn, err := getScenario(m.client, m.config.APIBaseURL, m.view.Session.ScenarioFile)
	if err != nil || len(scn.ReflectionQuestions) == 0 {
		return []string{"What did you learn from this scenario?"}
	}
	return scn.ReflectionQuestions
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				return m, nil
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit?"))
	content.WriteString("\n\n")
	content.WriteString("Your session is saved and can be resumed later.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to keep playing"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderScenarioModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	if m.loadingScenarios {
		content.WriteString(modalTitleStyle.Render("Loading Scenarios..."))
	} else if m.err != nil {
		content.WriteString(modalTitleStyle.Render("Error"))
		content.WriteString("\n\n")
		content.WriteString(errorStyle.Render(fmt.Sprintf("Failed to load scenarios: %v", m.err)))
		content.WriteString("\n\n")
		content.WriteString("Press Ctrl+C to exit")
	} else if m.loading {
		content.WriteString(modalTitleStyle.Render("Starting Session..."))
	} else {
		content.WriteString(modalTitleStyle.Render("Select a Scenario"))
		content.WriteString("\n\n")

		for i, name := range m.scenarios {
			if i == m.selectedScenario {
				content.WriteString(selectedChoiceStyle.Render("▶ "+name) + "\n")
			} else {
				content.WriteString(choiceStyle.Render("  "+name) + "\n")
			}
		}

		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"))
	}

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderReflectionForm() string {
	questions := m.questions
	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Reflection"))
	content.WriteString("\n\n")

	if m.reflectionStep == 0 {
		content.WriteString("Your name (Last, First):\n\n")
	} else if m.reflectionStep <= len(questions) {
		content.WriteString(wordwrap.String(questions[m.reflectionStep-1], 54) + "\n\n")
	}

	content.WriteString(m.answerInput.View())
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Enter to continue, Esc to cancel"))

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showScenarioModal {
		return m.renderScenarioModal()
	}
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if m.showReflection {
		return m.renderReflectionForm()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	sceneWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - sceneWidth - 6

	scenePanel := scenePanelStyle.Width(sceneWidth).Height(m.height - 2).Render(
		m.sceneViewport.View(),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, scenePanel, metaPanel)
}
