package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CrowderSoup/kanban-board/config"
	"github.com/CrowderSoup/kanban-board/kanban"
	"github.com/CrowderSoup/kanban-board/services"
)

// errInconsistent is returned by board show --check when problems are found.
var errInconsistent = errors.New("board state is inconsistent")

func boardCmd(conf func() config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Manage boards in the local snapshot",
		Long: `Manage boards directly in the snapshot database.

Examples:
  kanban-board board list --json
  kanban-board board create "Sprint 1" --description "two weeks"
  kanban-board board export <board-id> > sprint.yaml
  kanban-board board import sprint.yaml
`,
	}
	cmd.AddCommand(
		boardListCmd(conf),
		boardShowCmd(conf),
		boardCreateCmd(conf),
		boardImportCmd(conf),
		boardExportCmd(conf),
	)
	return cmd
}

// withBoards opens the storage stack for one command.
func withBoards(cmd *cobra.Command, conf func() config.Config, fn func(*services.BoardService) error) error {
	a, err := openApp(cmd.Context(), conf(), nil)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a.boards)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func boardListCmd(conf func() config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List boards in creation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOutput, _ := cmd.Flags().GetBool("json")
			return withBoards(cmd, conf, func(s *services.BoardService) error {
				boards := s.ListBoards()
				out := cmd.OutOrStdout()
				if jsonOutput {
					return writeJSON(out, boards)
				}
				if len(boards) == 0 {
					fmt.Fprintln(out, "No boards found")
					return nil
				}
				for _, b := range boards {
					fmt.Fprintf(out, "%s  %s\n", b.ID, b.Name)
				}
				return nil
			})
		},
	}
	cmd.Flags().Bool("json", false, "Output in JSON format")
	return cmd
}

func boardShowCmd(conf func() config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <board-id>",
		Short: "Show a board with its columns and cards",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOutput, _ := cmd.Flags().GetBool("json")
			check, _ := cmd.Flags().GetBool("check")
			return withBoards(cmd, conf, func(s *services.BoardService) error {
				d, err := s.GetBoardDetails(args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOutput {
					if err := writeJSON(out, d); err != nil {
						return err
					}
				} else {
					printBoard(out, d)
				}
				if !check {
					return nil
				}

				problems := kanban.Validate(s.State())
				for _, p := range problems {
					fmt.Fprintln(cmd.ErrOrStderr(), p.String())
				}
				if len(problems) > 0 {
					return fmt.Errorf("%w: %d problem(s)", errInconsistent, len(problems))
				}
				return nil
			})
		},
	}
	cmd.Flags().Bool("json", false, "Output in JSON format")
	cmd.Flags().Bool("check", false, "Also validate the whole snapshot and fail on dangling references")
	return cmd
}

func printBoard(w io.Writer, d kanban.BoardDetails) {
	fmt.Fprintf(w, "%s (%s)\n", d.Board.Name, d.Board.ID)
	if d.Board.Description != "" {
		fmt.Fprintf(w, "%s\n", d.Board.Description)
	}
	for _, lane := range d.Lanes() {
		fmt.Fprintf(w, "\n%s [%d]\n", lane.Column.Title, len(lane.Cards))
		for _, c := range lane.Cards {
			var extra []string
			if c.DueDate != "" {
				extra = append(extra, "due "+c.DueDate)
			}
			if c.AssignedTo != "" {
				extra = append(extra, "@"+c.AssignedTo)
			}
			line := fmt.Sprintf("  - [%s] %s", c.Priority, c.Title)
			if len(extra) > 0 {
				line += " (" + strings.Join(extra, ", ") + ")"
			}
			fmt.Fprintln(w, line)
		}
	}
}

func boardCreateCmd(conf func() config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			description, _ := cmd.Flags().GetString("description")
			return withBoards(cmd, conf, func(s *services.BoardService) error {
				board, err := s.AddBoard(cmd.Context(), args[0], description)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), board.ID)
				return nil
			})
		},
	}
	cmd.Flags().String("description", "", "Board description")
	return cmd
}

func boardImportCmd(conf func() config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Create a board from a YAML template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			tmpl, err := services.DecodeTemplate(f)
			if err != nil {
				return err
			}
			return withBoards(cmd, conf, func(s *services.BoardService) error {
				board, err := s.Import(cmd.Context(), tmpl)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), board.ID)
				return nil
			})
		},
	}
}

func boardExportCmd(conf func() config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "export <board-id>",
		Short: "Write a board as a YAML template to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBoards(cmd, conf, func(s *services.BoardService) error {
				tmpl, err := s.Export(args[0])
				if err != nil {
					return err
				}
				return services.EncodeTemplate(cmd.OutOrStdout(), tmpl)
			})
		},
	}
}
