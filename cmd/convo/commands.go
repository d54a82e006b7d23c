package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/pders01/convo/internal/config"
	"github.com/pders01/convo/internal/search"
	"github.com/pders01/convo/internal/storage"
	"github.com/pders01/convo/internal/transcript"
	"github.com/pders01/convo/internal/tui"
	"github.com/pders01/convo/internal/validation"
)

const grepLimit = 20

func newImportCmd(o *rootOptions) *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a JSON or TOML transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := validation.NewPermissivePathHandler().TranscriptPath(args[0])
			if err != nil {
				return err
			}
			t, err := transcript.Load(path)
			if err != nil {
				return err
			}
			if title != "" {
				t.Title = title
			}

			e, err := o.open()
			if err != nil {
				return err
			}
			defer e.Close()

			session, err := transcript.Import(e.store, t, path)
			if err != nil {
				return fmt.Errorf("importing %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %q: %d messages (session %s)\n", session.Title, session.Count, session.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Session title (defaults to the transcript's own)")
	return cmd
}

func newSessionsCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List stored sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := o.open()
			if err != nil {
				return err
			}
			defer e.Close()

			sessions, err := e.store.ListSessions()
			if err != nil {
				return fmt.Errorf("listing sessions: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No sessions. Import one with: convo import FILE")
				return nil
			}

			rows := make([][]string, len(sessions))
			for i, s := range sessions {
				rows[i] = []string{s.ID, s.Title, strconv.Itoa(s.Count), s.UpdatedAt.Format("2006-01-02 15:04"), s.Source}
			}
			printTable(out, []string{"ID", "TITLE", "MESSAGES", "UPDATED", "SOURCE"}, rows)
			return nil
		},
	}
}

type grepOptions struct {
	caseSensitive bool
	regex         bool
}

func newGrepCmd(o *rootOptions) *cobra.Command {
	g := &grepOptions{}
	cmd := &cobra.Command{
		Use:   "grep QUERY",
		Short: "Find sessions mentioning a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := o.open()
			if err != nil {
				return err
			}
			defer e.Close()

			results, err := grepSessions(e, args[0], g)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintln(out, "No matches")
				return nil
			}
			rows := make([][]string, len(results))
			for i, r := range results {
				rows[i] = []string{r.session.ID, r.session.Title, strconv.Itoa(r.matches), strconv.Itoa(r.messages)}
			}
			printTable(out, []string{"ID", "TITLE", "MATCHES", "IN MESSAGES"}, rows)
			return nil
		},
	}
	cmd.Flags().BoolVar(&g.caseSensitive, "case-sensitive", false, "Match case exactly")
	cmd.Flags().BoolVar(&g.regex, "regex", false, "Treat QUERY as a regular expression")
	return cmd
}

type grepResult struct {
	session  *storage.Session
	matches  int
	messages int
}

// grepSessions narrows the candidates with the index and counts exact
// matches in each. The index only knows words, so regex queries scan every
// session.
func grepSessions(e *env, query string, g *grepOptions) ([]grepResult, error) {
	opts := search.Options{Query: query, CaseSensitive: g.caseSensitive, UseRegex: g.regex}
	if _, err := search.NewMatcher(opts); err != nil {
		return nil, err
	}

	var candidates []string
	if g.regex {
		sessions, err := e.store.ListSessions()
		if err != nil {
			return nil, fmt.Errorf("listing sessions: %w", err)
		}
		for _, s := range sessions {
			candidates = append(candidates, s.ID)
		}
	} else {
		idx, err := e.openIndex()
		if err != nil {
			return nil, fmt.Errorf("opening index: %w", err)
		}
		defer idx.Close()
		hits, err := idx.SearchSessions(query, grepLimit)
		if err != nil {
			return nil, fmt.Errorf("searching index: %w", err)
		}
		for _, h := range hits {
			candidates = append(candidates, h.SessionID)
		}
	}

	var results []grepResult
	for _, id := range candidates {
		session, err := e.store.GetSession(id)
		if err != nil {
			return nil, fmt.Errorf("loading session: %w", err)
		}
		msgs, err := e.store.GetMessages(id)
		if err != nil {
			return nil, fmt.Errorf("loading messages: %w", err)
		}
		matches, err := search.Index(msgs, opts)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			continue
		}
		results = append(results, grepResult{
			session:  session,
			matches:  len(matches),
			messages: len(search.CountByMessage(matches)),
		})
	}
	return results, nil
}

func newCompactCmd(o *rootOptions) *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "compact SESSION",
		Short: "Fold a session's older messages into a summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if keep < 0 {
				return fmt.Errorf("--keep must not be negative")
			}
			e, err := o.open()
			if err != nil {
				return err
			}
			defer e.Close()

			msgs, err := e.store.GetMessages(args[0])
			if err != nil {
				return fmt.Errorf("loading session: %w", err)
			}
			compacted, changed := transcript.Compact(msgs, keep)
			out := cmd.OutOrStdout()
			if !changed {
				fmt.Fprintln(out, tui.MsgNothingToFold)
				return nil
			}
			if err := e.store.ReplaceMessages(args[0], compacted); err != nil {
				return fmt.Errorf("compacting: %w", err)
			}
			fmt.Fprintln(out, tui.MsgCompacted(len(msgs), len(compacted)))
			return nil
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 10, "Number of trailing messages to keep")
	return cmd
}

func newConfigCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "generate",
		Short: "Write the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := validation.NewPermissivePathHandler().ConfigPath(o.configPath)
			if err != nil {
				return err
			}
			if err := config.GenerateDefaultConfig(path); err != nil {
				return fmt.Errorf("generating config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated default configuration at: %s\n", path)
			return nil
		},
	})
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "convo %s\n", Version)
			fmt.Fprintln(out, "Conversation viewer")
			fmt.Fprintln(out, "github.com/pders01/convo")
		},
	}
}

func printTable(w io.Writer, headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(tui.SeparatorStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tui.HeaderStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...).
		Rows(rows...)
	fmt.Fprintln(w, t.Render())
}
