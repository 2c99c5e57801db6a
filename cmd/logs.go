package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/eduassist/internal/interactions"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Inspect question/answer history",
}

var logsListCmd = &cobra.Command{
	Use:   "list <user>",
	Short: "List a user's recent questions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		_, s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		logs, err := interactions.NewLogger(s.LogRepo()).Recent(cmd.Context(), args[0], limit)
		if err != nil {
			return err
		}
		if len(logs) == 0 {
			fmt.Println("No interactions found.")
			return nil
		}

		sep := strings.Repeat("─", 60)
		for _, l := range logs {
			fmt.Println(sep)
			fmt.Printf("#%d  %s\n", l.ID, l.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			fmt.Printf("Q: %s\n", l.Question)
			fmt.Printf("A: %s\n", l.Answer)
		}
		return nil
	},
}

func init() {
	logsListCmd.Flags().IntP("limit", "n", interactions.DefaultRecentLimit, "Number of interactions to show")
	logsCmd.AddCommand(logsListCmd)
}
