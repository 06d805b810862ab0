package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/crystaldolphin/blockhand/internal/config"
	"github.com/crystaldolphin/blockhand/internal/persona"
	"github.com/crystaldolphin/blockhand/internal/shared/cmdutils"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize configuration and persona",
	RunE:  runOnboard,
}

func runOnboard(_ *cobra.Command, _ []string) error {
	cfgPath := configPath()

	var cfg *config.Config
	if _, err := os.Stat(cfgPath); err == nil {
		fmt.Printf("Config already exists at %s\n", cfgPath)
		fmt.Printf("Press Enter to refresh (keep existing values) or Ctrl+C to cancel: ")
		fmt.Scanln()
		existing, loadErr := config.Load(cfgPath)
		if loadErr != nil {
			def := config.DefaultConfig()
			existing = &def
		}
		if err := config.Save(existing, cfgPath); err != nil {
			return err
		}
		cfg = existing
		fmt.Printf("%s Config refreshed at %s\n", cmdutils.Mark(true), cfgPath)
	} else {
		def := config.DefaultConfig()
		if err := config.Save(&def, cfgPath); err != nil {
			return err
		}
		cfg = &def
		fmt.Printf("%s Created config at %s\n", cmdutils.Mark(true), cfgPath)
	}

	workspace := cfg.WorkspacePath()
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	fmt.Printf("%s Workspace at %s\n", cmdutils.Mark(true), workspace)

	personaPath := filepath.Join(workspace, persona.FileName)
	if _, err := os.Stat(personaPath); os.IsNotExist(err) {
		if err := os.WriteFile(personaPath, []byte(persona.Default().Render()), 0o644); err != nil {
			return fmt.Errorf("write persona: %w", err)
		}
		fmt.Printf("  Created %s\n", persona.FileName)
	}

	fmt.Printf("\n%s blockhand is ready!\n\n", cmdutils.Logo)
	fmt.Println("Next steps:")
	fmt.Printf("  1. Add your API key to %s (or export DEEPSEEK_API_KEY)\n", cfgPath)
	fmt.Printf("  2. Point world.url at your world gateway\n")
	fmt.Printf("  3. Try it offline: blockhand ask -m \"follow me\"\n")
	fmt.Printf("  4. Connect: blockhand run\n")
	return nil
}
