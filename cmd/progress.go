package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/eduassist/internal/progress"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Record and show learner progress",
}

var progressRecordCmd = &cobra.Command{
	Use:   "record <user> <topic> <score>",
	Short: "Record a score for a topic",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		score, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid score %q: %w", args[2], err)
		}

		_, s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		p, err := progress.NewTracker(s.ProgressRepo()).Update(cmd.Context(), args[0], args[1], score)
		if err != nil {
			return fmt.Errorf("record progress: %w", err)
		}
		fmt.Printf("%s / %s: attempts %d, score %d\n", p.UserID, p.Topic, p.Attempts, p.Score)
		return nil
	},
}

var progressShowCmd = &cobra.Command{
	Use:   "show <user>",
	Short: "Show a user's progress across topics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		list, err := progress.NewTracker(s.ProgressRepo()).ForUser(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("No progress recorded.")
			return nil
		}

		fmt.Printf("%-24s  %8s  %6s  %s\n", "Topic", "Attempts", "Score", "Last reviewed")
		fmt.Println(strings.Repeat("─", 64))
		for _, p := range list {
			fmt.Printf("%-24s  %8d  %6d  %s\n",
				truncate(p.Topic, 24), p.Attempts, p.Score,
				p.LastReviewed.Local().Format("2006-01-02 15:04"))
		}
		return nil
	},
}

func init() {
	progressCmd.AddCommand(progressRecordCmd)
	progressCmd.AddCommand(progressShowCmd)
}
