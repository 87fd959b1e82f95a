package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var factsPuppetFilter bool

var factsCmd = &cobra.Command{
	Use:   "facts [name]",
	Short: "Collect host facts",
	Long: `Run the facts-collection binary and print the results. With a name
argument only that fact is collected and printed raw.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, agent, err := newAgent(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.close()

		if len(args) == 1 {
			value, err := agent.Fact(cmd.Context(), args[0], factsPuppetFilter)
			if err != nil {
				return err
			}
			fmt.Println(value)
			return nil
		}

		facts, err := agent.Facts(cmd.Context(), factsPuppetFilter)
		if err != nil {
			return err
		}
		return printJSON(facts)
	},
}

func init() {
	factsCmd.Flags().BoolVar(&factsPuppetFilter, "puppet", false, "restrict output to puppet-relevant facts")
	rootCmd.AddCommand(factsCmd)
}
