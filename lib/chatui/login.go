// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Gregoor/matrix-neo/lib/tui"
)

// loginForm is the username and password prompt shown while logged
// out. The homeserver is not asked for: it comes from the configuration
// or from the server part of a full user ID.
type loginForm struct {
	username textinput.Model
	password textinput.Model
	// focused is 0 for username, 1 for password.
	focused int
}

func newLoginForm() loginForm {
	username := textinput.New()
	username.Placeholder = "@alice:example.org or alice"
	username.CharLimit = 255
	username.Width = 40
	username.Prompt = ""
	username.Focus()

	password := textinput.New()
	password.Placeholder = "Password"
	password.EchoMode = textinput.EchoPassword
	password.CharLimit = 1024
	password.Width = 40
	password.Prompt = ""

	return loginForm{username: username, password: password}
}

// credentials returns the trimmed username and the raw password. The
// password is not trimmed: whitespace may be part of it.
func (form loginForm) credentials() (username, password string) {
	return strings.TrimSpace(form.username.Value()), form.password.Value()
}

// complete reports whether both fields have content.
func (form loginForm) complete() bool {
	username, password := form.credentials()
	return username != "" && password != ""
}

// clearPassword empties the password field after a submit.
func (form *loginForm) clearPassword() {
	form.password.SetValue("")
}

// focusNext moves focus between the two fields.
func (form *loginForm) focusNext() {
	form.focused = (form.focused + 1) % 2
	if form.focused == 0 {
		form.password.Blur()
		form.username.Focus()
	} else {
		form.username.Blur()
		form.password.Focus()
	}
}

// update forwards a message to the focused field.
func (form loginForm) update(message tea.Msg) (loginForm, tea.Cmd) {
	var cmd tea.Cmd
	if form.focused == 0 {
		form.username, cmd = form.username.Update(message)
	} else {
		form.password, cmd = form.password.Update(message)
	}
	return form, cmd
}

// view renders the form box centered in a width by height screen.
// errorText is the last login or session failure; busy is set while a
// login request is in flight.
func (form loginForm) view(theme tui.Theme, width, height int, homeserver, errorText string, busy bool) string {
	label := lipgloss.NewStyle().Foreground(theme.FaintText)
	body := []string{
		label.Render("Username"),
		form.username.View(),
		"",
		label.Render("Password"),
		form.password.View(),
		"",
	}
	if homeserver != "" {
		body = append(body, label.Render("Homeserver: "+homeserver))
	} else {
		body = append(body, label.Render("Homeserver: taken from the user ID"))
	}
	switch {
	case busy:
		body = append(body, "", lipgloss.NewStyle().Foreground(theme.StatusConnecting).Render("Signing in…"))
	case errorText != "":
		body = append(body, "")
		for _, line := range capLines(wrapText(errorText, loginBoxWidth-4), 3) {
			body = append(body, lipgloss.NewStyle().Foreground(theme.ErrorText).Render(line))
		}
	}
	body = append(body, "", lipgloss.NewStyle().Foreground(theme.HelpText).Render("tab switch field · enter sign in · ctrl+c quit"))

	box := tui.RenderBox(theme, "Sign in to Matrix", body, loginBoxWidth)
	return tui.CenterOverlay(strings.Repeat("\n", max(height-1, 0)), box, width, height)
}

const loginBoxWidth = 52

// capLines keeps the first limit lines.
func capLines(lines []string, limit int) []string {
	if len(lines) > limit {
		return lines[:limit]
	}
	return lines
}
