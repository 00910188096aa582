package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/nhanzalone1/echo-app-sub000/internal/mode"
)

var (
	statusAddr  string
	statusToken string
)

var (
	nightStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 2).Foreground(lipgloss.Color("#E0E0FF")).Background(lipgloss.Color("#2B2D6E"))
	morningStyle = lipgloss.NewStyle().Bold(true).Padding(0, 2).Foreground(lipgloss.Color("#1A1A1A")).Background(lipgloss.Color("#FFC857"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Width(12)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func runStatus(cmd *cobra.Command, args []string) error {
	token := statusToken
	if token == "" {
		token = os.Getenv("AUTH_TOKEN")
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	snap, err := fetchStatus(ctx, http.DefaultClient, statusAddr, token)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderStatus(snap))
	return nil
}

func fetchStatus(ctx context.Context, client *http.Client, base, token string) (mode.Snapshot, error) {
	var env struct {
		Data  mode.Snapshot `json:"data"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+"/api/mode", nil)
	if err != nil {
		return mode.Snapshot{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := client.Do(req)
	if err != nil {
		return mode.Snapshot{}, fmt.Errorf("status: %w", err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return mode.Snapshot{}, fmt.Errorf("status: decode: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := resp.Status
		if env.Error != nil {
			msg = env.Error.Message
		}
		return mode.Snapshot{}, fmt.Errorf("status: %s", msg)
	}
	return env.Data, nil
}

func renderStatus(s mode.Snapshot) string {
	banner := nightStyle.Render("NIGHT")
	if s.Mode == mode.Morning {
		banner = morningStyle.Render("MORNING")
	}
	row := func(label, value string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
	}
	lines := []string{
		banner,
		"",
		row("window", s.MorningStartTime+" - "+s.NightStartTime),
		row("contract", yesNo(s.ContractSigned)),
		row("armed", yesNo(s.ProtocolArmed)),
	}
	if s.DevOverride {
		lines = append(lines, row("override", warnStyle.Render("forced")))
	}
	if s.LastArchivedAt != nil {
		lines = append(lines, row("archived", s.LastArchivedAt.Format(time.RFC822)))
	}
	if s.LastArchiveError != "" {
		lines = append(lines, row("error", warnStyle.Render(s.LastArchiveError)))
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
