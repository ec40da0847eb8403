package tui

import (
	"fmt"
	"strings"

	"github.com/caravel-hq/caravel/llm"
)

// View implements tea.Model.
func (m *Model) View() string {
	if !m.ready {
		return "starting..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	return b.String()
}

func (m *Model) renderHeader() string {
	title := titleStyle.Render("caravel chat")
	meta := subtleStyle.Render(fmt.Sprintf("profile %s / %s", m.profile, m.client.Profile().Model))
	return headerStyle.Width(m.width).Render(title + "  " + meta)
}

func (m *Model) renderStatus() string {
	if m.waiting {
		return m.spin.View() + subtleStyle.Render(" thinking...")
	}
	if m.lastErr != nil {
		return errorStyle.Render("error: ") + subtleStyle.Render(m.lastErr.Error())
	}
	total := m.client.Ledger().Accumulated()
	hint := "enter to send, esc to quit"
	if total > 0 {
		return subtleStyle.Render(fmt.Sprintf("%s | total cost $%.6f", hint, total))
	}
	return subtleStyle.Render(hint)
}

// renderConversation renders the full history plus any in-flight
// partial assistant response.
func (m *Model) renderConversation() string {
	var b strings.Builder
	for _, msg := range m.history {
		switch msg.Role {
		case llm.RoleUser:
			b.WriteString(userLabelStyle.Render("you"))
		case llm.RoleAssistant:
			b.WriteString(modelLabelStyle.Render(m.client.Profile().Model))
		default:
			b.WriteString(subtleStyle.Render(string(msg.Role)))
		}
		b.WriteString("\n")
		b.WriteString(msg.Content)
		b.WriteString("\n\n")
	}
	if m.waiting && m.partial.Len() > 0 {
		b.WriteString(modelLabelStyle.Render(m.client.Profile().Model))
		b.WriteString("\n")
		b.WriteString(m.partial.String())
		b.WriteString("\n")
	}
	return b.String()
}
