package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stigmer/overseer/pkg/grains"
)

var (
	grainsSanitize  bool
	grainsDelimiter string
	grainsDefault   string
)

var grainsCmd = &cobra.Command{
	Use:   "grains",
	Short: "Inspect the host-description dictionary",
}

var grainsGetCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Get a grain by delimited path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, rt, err := loadGrains()
		if err != nil {
			return err
		}
		defer rt.close()

		return printJSON(store.Get(args[0], grainsDefault, grainsDelimiter))
	},
}

var grainsItemsCmd = &cobra.Command{
	Use:   "items",
	Short: "List all grains",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, rt, err := loadGrains()
		if err != nil {
			return err
		}
		defer rt.close()

		return printJSON(store.Items(grainsSanitize))
	},
}

var grainsItemCmd = &cobra.Command{
	Use:   "item <name>...",
	Short: "Show one or more named grains",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, rt, err := loadGrains()
		if err != nil {
			return err
		}
		defer rt.close()

		return printJSON(store.Item(args, grainsSanitize))
	},
}

var grainsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List grain names",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, rt, err := loadGrains()
		if err != nil {
			return err
		}
		defer rt.close()

		for _, name := range store.Ls() {
			fmt.Println(name)
		}
		return nil
	},
}

func init() {
	grainsCmd.PersistentFlags().BoolVar(&grainsSanitize, "sanitize", false, "sanitize identifying grains")
	grainsCmd.PersistentFlags().StringVar(&grainsDelimiter, "delimiter", grains.DefaultDelimiter, "path delimiter for nested lookups")
	grainsGetCmd.Flags().StringVar(&grainsDefault, "default", "", "value returned when the path does not resolve")

	grainsCmd.AddCommand(grainsGetCmd, grainsItemsCmd, grainsItemCmd, grainsLsCmd)
	rootCmd.AddCommand(grainsCmd)
}

func loadGrains() (*grains.Store, *runtime, error) {
	rt, err := newRuntime()
	if err != nil {
		return nil, nil, err
	}

	store, err := grains.Load(rt.cfg.Grains)
	if err != nil {
		rt.close()
		return nil, nil, err
	}
	return store, rt, nil
}
