package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/drillmap/pkg/export"
	"github.com/vanderheijden86/drillmap/pkg/navigator"
)

// Source fetches asset bytes. internal/datasource.Fetcher satisfies it.
type Source interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// DefaultFetchTimeout bounds one map fetch started from the UI.
const DefaultFetchTimeout = 20 * time.Second

// MapLoadedMsg carries a completed map fetch back into Update.
type MapLoadedMsg struct {
	Result navigator.MapResult
}

// WarningMsg carries a diagnostic raised outside Update.
type WarningMsg struct {
	Text string
}

// SnapshotSavedMsg reports the outcome of a snapshot export.
type SnapshotSavedMsg struct {
	Path string
	Err  error
}

// FetchMapCmd fetches req in the background. A nil request yields nil.
func FetchMapCmd(src Source, req *navigator.MapRequest, timeout time.Duration) tea.Cmd {
	if req == nil || src == nil {
		return nil
	}
	r := *req
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		body, err := src.Fetch(ctx, r.URL)
		return MapLoadedMsg{Result: navigator.MapResult{Request: r, Markup: body, Err: err}}
	}
}

// WaitForWarningCmd blocks until the next warning arrives on ch.
func WaitForWarningCmd(ch <-chan string) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		text, ok := <-ch
		if !ok {
			return nil
		}
		return WarningMsg{Text: text}
	}
}

func saveSnapshotCmd(opts export.SnapshotOptions) tea.Cmd {
	return func() tea.Msg {
		return SnapshotSavedMsg{Path: opts.Path, Err: export.SaveSnapshot(opts)}
	}
}
