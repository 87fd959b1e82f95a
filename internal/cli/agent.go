package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/stigmer/overseer/internal/store"
	"github.com/stigmer/overseer/pkg/execshell"
	"github.com/stigmer/overseer/pkg/puppet"
)

var agentOptions []string

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Drive the configuration agent",
}

var agentRunCmd = &cobra.Command{
	Use:   "run [agent|apply] [args...]",
	Short: "Execute an agent run",
	Long: `Execute a run of the configuration agent. The first argument may name
the run mode (agent or apply); apply requires a manifest path. Remaining
arguments become bare flags and repeated --option key=value pairs become
options. Exit code 2 from the agent (changes applied) is remapped to 0.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAgent(cmd.Context(), args, false)
	},
}

var agentNoopCmd = &cobra.Command{
	Use:   "noop [agent|apply] [args...]",
	Short: "Execute a no-op agent run",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAgent(cmd.Context(), args, true)
	},
}

var agentEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enable the configuration agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, agent, err := newAgent(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.close()

		changed, err := agent.Enable()
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"changed": changed})
	},
}

var disableMessage string

var agentDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable the configuration agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, agent, err := newAgent(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.close()

		changed, err := agent.Disable(disableMessage)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"changed": changed})
	},
}

var agentStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the agent status",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, agent, err := newAgent(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.close()

		fmt.Println(agent.Status())
		return nil
	},
}

var agentSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show a summary of the last agent run",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, agent, err := newAgent(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.close()

		summary, err := agent.Summary()
		if err != nil {
			return err
		}
		return printJSON(summary)
	},
}

var agentSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync plugins from the master",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, agent, err := newAgent(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.close()

		out, err := agent.PluginSync(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

func init() {
	agentRunCmd.Flags().StringArrayVar(&agentOptions, "option", nil, "agent option as key=value (repeatable)")
	agentNoopCmd.Flags().StringArrayVar(&agentOptions, "option", nil, "agent option as key=value (repeatable)")
	agentDisableCmd.Flags().StringVar(&disableMessage, "message", "", "message recorded in the disable lock file")

	agentCmd.AddCommand(agentRunCmd, agentNoopCmd, agentEnableCmd, agentDisableCmd,
		agentStatusCmd, agentSummaryCmd, agentSyncCmd)
	rootCmd.AddCommand(agentCmd)
}

func newAgent(ctx context.Context) (*runtime, *puppet.Agent, error) {
	rt, err := newRuntime()
	if err != nil {
		return nil, nil, err
	}

	agent, err := buildAgent(ctx, rt)
	if err != nil {
		rt.close()
		return nil, nil, err
	}
	return rt, agent, nil
}

func buildAgent(ctx context.Context, rt *runtime) (*puppet.Agent, error) {
	return puppet.New(ctx, puppet.Config{
		Binary: rt.cfg.Agent.Binary,
		Facter: rt.cfg.Agent.Facter,
		Runner: rt.runner,
		Logger: rt.log.Logger(),
	})
}

func runAgent(ctx context.Context, args []string, noop bool) error {
	rt, agent, err := newAgent(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	options, err := parseOptions(agentOptions)
	if err != nil {
		return err
	}

	started := time.Now()
	var out execshell.Result
	if noop {
		out, err = agent.Noop(ctx, args, options)
	} else {
		out, err = agent.Run(ctx, args, options)
	}
	if err != nil {
		return err
	}

	recordRun(ctx, rt, agent, args, out.ExitCode, started)
	return printJSON(map[string]any{
		"stdout":  out.Stdout,
		"stderr":  out.Stderr,
		"retcode": out.ExitCode,
	})
}

// recordRun appends the run to the history store. History failures are
// logged, never fatal to the run itself.
func recordRun(ctx context.Context, rt *runtime, agent *puppet.Agent, args []string, exitCode int, started time.Time) {
	sub := "agent"
	for _, arg := range args {
		if arg == "apply" {
			sub = "apply"
		}
	}

	log := rt.log.Logger()
	history, err := store.Open(rt.cfg.HistoryPath(), log)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to open history store")
		return
	}
	defer history.Close()

	if err := history.Init(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to init history store")
		return
	}

	summaryJSON := ""
	if summary, err := agent.Summary(); err == nil {
		if raw, err := json.Marshal(summary); err == nil {
			summaryJSON = string(raw)
		}
	}

	_, err = history.RecordRun(ctx, store.RunRecord{
		Subcommand:  sub,
		StartedAt:   started,
		FinishedAt:  time.Now(),
		ExitCode:    exitCode,
		SummaryJSON: summaryJSON,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to record run")
	}
}
