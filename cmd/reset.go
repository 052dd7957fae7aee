package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/studycoach/internal/session"
	"github.com/abhisek/studycoach/internal/store"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the pending quiz or all learner data",
	Long: `Clear the pending quiz without grading it (--pending), or replace the
whole state document with an empty one (--all). The previous document is kept
as the store backup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pending, _ := cmd.Flags().GetBool("pending")
		all, _ := cmd.Flags().GetBool("all")
		if pending == all {
			return errors.New("specify exactly one of --pending or --all")
		}

		statePath, err := resolveStatePath(cmd)
		if err != nil {
			return fmt.Errorf("resolve state path: %w", err)
		}
		st, err := store.Open(statePath, logger)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}

		if all {
			if err := st.Save(store.NewDocument()); err != nil {
				return err
			}
			fmt.Println("All learner data cleared.")
			return nil
		}

		doc := st.Load()
		p := session.New(doc, logger).Abandon()
		if p == nil {
			fmt.Println("No pending quiz.")
			return nil
		}
		if err := st.Save(doc); err != nil {
			return err
		}
		fmt.Printf("Dropped quiz %s on %q (%d answers).\n", p.SessionID, p.Title, len(p.Answers))
		return nil
	},
}

func init() {
	resetCmd.Flags().Bool("pending", false, "Drop the pending quiz without grading it")
	resetCmd.Flags().Bool("all", false, "Erase all topics, history and the pending quiz")
}
