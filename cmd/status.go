package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/crystaldolphin/blockhand/internal/audit"
	"github.com/crystaldolphin/blockhand/internal/persona"
	"github.com/crystaldolphin/blockhand/internal/providers"
	"github.com/crystaldolphin/blockhand/internal/shared/cmdutils"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show blockhand status",
	RunE:  runStatus,
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfgPath := configPath()

	fmt.Println(cmdutils.HeaderStyle.Render(cmdutils.Logo + " blockhand status"))
	fmt.Println()

	_, statErr := os.Stat(cfgPath)
	fmt.Printf("%s%s %s\n", cmdutils.LabelStyle.Render("Config:"), cfgPath, cmdutils.Mark(statErr == nil))

	cfg, err := loadConfig()
	if err != nil {
		fmt.Println(cmdutils.FailStyle.Render(fmt.Sprintf("  (could not load config: %v)", err)))
		return nil
	}

	ws := cfg.WorkspacePath()
	_, wsErr := os.Stat(ws)
	fmt.Printf("%s%s %s\n", cmdutils.LabelStyle.Render("Workspace:"), ws, cmdutils.Mark(wsErr == nil))
	_, personaErr := os.Stat(filepath.Join(ws, persona.FileName))
	fmt.Printf("%s%s %s\n", cmdutils.LabelStyle.Render("Persona:"), persona.FileName, cmdutils.Mark(personaErr == nil))
	fmt.Printf("%s%s\n", cmdutils.LabelStyle.Render("Model:"), cfg.Agent.Model)
	fmt.Printf("%s%s\n\n", cmdutils.LabelStyle.Render("World:"), cfg.World.URL)

	match := cfg.MatchProvider("")
	fmt.Println(cmdutils.HeaderStyle.Render("Providers"))
	for _, spec := range providers.PROVIDERS {
		p := cfg.ProviderByName(spec.Name)
		if p == nil {
			continue
		}
		label := spec.Label()
		if spec.Name == match.Name {
			label += " *"
		}
		key := providers.ResolveAPIKey(spec.Name, p.APIKey)
		switch {
		case spec.IsLocal && p.APIBase != "":
			fmt.Printf("  %-22s %s %s\n", label, cmdutils.Mark(true), p.APIBase)
		case key != "":
			fmt.Printf("  %-22s %s\n", label, cmdutils.Mark(true))
		default:
			fmt.Printf("  %-22s %s\n", label, cmdutils.DimStyle.Render("(not set)"))
		}
	}
	fmt.Println()

	return printAuditSummary(cfg.AuditPath())
}

func printAuditSummary(path string) error {
	fmt.Println(cmdutils.HeaderStyle.Render("Actions"))
	if _, err := os.Stat(path); err != nil {
		fmt.Println(cmdutils.DimStyle.Render("  no actions recorded yet"))
		return nil
	}

	rec, err := audit.Open(path, logger)
	if err != nil {
		return err
	}
	defer rec.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	counts, err := rec.CountByTool(ctx)
	if err != nil {
		return err
	}
	if len(counts) == 0 {
		fmt.Println(cmdutils.DimStyle.Render("  no actions recorded yet"))
		return nil
	}
	tools := make([]string, 0, len(counts))
	for t := range counts {
		tools = append(tools, t)
	}
	sort.Strings(tools)
	for _, t := range tools {
		fmt.Printf("  %-10s %d\n", t, counts[t])
	}

	last, err := rec.Recent(ctx, 1)
	if err != nil {
		return err
	}
	if len(last) == 1 {
		fmt.Printf("\n%s%s\n", cmdutils.LabelStyle.Render("Last:"), formatEntry(last[0]))
	}
	return nil
}
