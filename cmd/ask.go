package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/crystaldolphin/blockhand/internal/agent"
	"github.com/crystaldolphin/blockhand/internal/dependency"
	"github.com/crystaldolphin/blockhand/internal/shared/cmdutils"
)

var (
	askMessage string
	askSender  string
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Interpret one chat line without connecting to a world",
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askMessage, "message", "m", "", "Chat line to interpret")
	askCmd.Flags().StringVarP(&askSender, "sender", "s", "cli", "Name of the player saying it")
	_ = askCmd.MarkFlagRequired("message")
}

func runAsk(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	c, err := dependency.New(ctx, cfg, dependency.Options{Logger: logger, Offline: true})
	if err != nil {
		return err
	}
	defer c.Close()

	fmt.Fprintf(os.Stderr, "  ↳ thinking...\n")
	res, err := c.Loop().ProcessDirect(ctx, askSender, askMessage)
	var ierr *agent.InterpretationError
	if errors.As(err, &ierr) {
		cmdutils.PrintResponse(cfg.Agent.Name, agent.ConfusedReply)
		fmt.Println(cmdutils.DimStyle.Render("  (" + ierr.Reason + ")"))
		return nil
	}
	if err != nil {
		return err
	}

	cmdutils.PrintResponse(cfg.Agent.Name, res.Reply)
	if res.Action == nil {
		fmt.Println("  action: none")
	} else {
		action, _ := json.Marshal(res.Action)
		fmt.Printf("  action: %s\n", action)
	}
	fmt.Printf("  path:   %s\n", res.Outcome)
	return nil
}
