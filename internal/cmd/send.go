package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/swarmux/swarmux/internal/bus"
	"github.com/swarmux/swarmux/internal/config"
	"github.com/swarmux/swarmux/internal/orchestrator"
)

var sendCmd = &cobra.Command{
	Use:   "send MESSAGE...",
	Short: "Send a message to a teammate over the bus",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSend,
}

var (
	sendTo   string
	sendFrom string
)

func init() {
	sendCmd.Flags().StringVar(&sendTo, "to", "", "recipient teammate name (required)")
	sendCmd.Flags().StringVar(&sendFrom, "from", "team-lead", "sender name")
	_ = sendCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(sendCmd)
}

// getConfig returns the loaded configuration.
func getConfig() *config.Config {
	return config.Get()
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg := getConfig()
	orch := orchestrator.New(orchestrator.Options{
		Logger: newLogger(cfg),
		Config: cfg,
	})
	defer orch.Close()
	orch.Bus.SetSelfName(sendFrom)

	text := strings.Join(args, " ")
	delivered := orch.Bus.Send(sendTo, bus.NewMessage(sendFrom, text))
	if delivered {
		fmt.Printf("%s to %s\n", okStyle.Render("Delivered"), sendTo)
	} else {
		fmt.Printf("%s for %s (%d queued)\n",
			warnStyle.Render("Queued"), sendTo, orch.Bus.QueuedCount(sendTo))
	}
	return nil
}
