package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/semlayer/semlayer/core/client"
	"github.com/semlayer/semlayer/core/logger"
)

// newAPIClient builds a gateway client from the persistent flags, falling
// back to SEMLAYER_* variables (.env files included)
func newAPIClient(command string) (*client.Client, string, error) {
	log := logger.New(command)
	LoadEnvFiles(".")

	token := apiToken
	if token == "" {
		token = os.Getenv("SEMLAYER_TOKEN")
	}
	if token == "" {
		return nil, "", log.Errorf("missing session token: pass --token or set SEMLAYER_TOKEN")
	}

	project := projectUUID
	if project == "" {
		project = os.Getenv("SEMLAYER_PROJECT")
	}
	if project == "" {
		return nil, "", log.Errorf("missing project: pass --project or set SEMLAYER_PROJECT")
	}

	return client.New(envOr("SEMLAYER_URL", "http://localhost:8080", apiURL), token), project, nil
}

// commandContext is cancelled on SIGINT/SIGTERM
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderTable(w io.Writer, headers []string, rows [][]any) error {
	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}

	tableRows := make([]table.Row, 0, len(rows))
	for _, row := range rows {
		tableRows = append(tableRows, table.Row(row))
	}

	t := table.NewWriter()
	t.AppendHeader(header)
	t.AppendRows(tableRows)
	t.SetStyle(table.StyleLight)
	t.Style().Format = table.FormatOptions{
		Footer: text.FormatDefault,
		Header: text.FormatDefault,
		Row:    text.FormatDefault,
	}
	t.Style().Options.DrawBorder = false

	_, err := fmt.Fprintln(w, t.Render())
	return err
}
