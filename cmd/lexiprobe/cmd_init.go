package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/probelab/lexiprobe/internal/config"
)

var initDefaults bool

const envExample = `# lexiprobe credentials — copy to .env and fill in
XAI_API_KEY=
# Optional endpoint override (default: ` + config.DefaultBaseURL + `)
#LEXIPROBE_BASE_URL=
`

func newInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold study.yaml and .env.example",
		Long: `Write a study.yaml seeded with the built-in study and an .env.example
for credentials. Without --defaults an interactive form collects the study
name, model and data directory first.`,
		Args: cobra.NoArgs,
		RunE: initCommandE,
	}

	cmd.Flags().BoolVar(&initDefaults, "defaults", false, "Skip the interactive form and use built-in defaults")

	return cmd
}

func initCommandE(_ *cobra.Command, _ []string) error {
	study := config.DefaultStudy()

	if !initDefaults {
		if err := runInitForm(study); err != nil {
			return err
		}
	}

	if _, err := os.Stat("study.yaml"); err == nil {
		return fmt.Errorf("study.yaml already exists; refusing to overwrite")
	}

	data, err := yaml.Marshal(study)
	if err != nil {
		return fmt.Errorf("marshal study: %w", err)
	}
	if err := os.WriteFile("study.yaml", data, 0o644); err != nil {
		return fmt.Errorf("write study.yaml: %w", err)
	}
	if err := os.WriteFile(".env.example", []byte(envExample), 0o644); err != nil {
		return fmt.Errorf("write .env.example: %w", err)
	}

	fmt.Println("Wrote study.yaml and .env.example")
	fmt.Println("Next: copy .env.example to .env, set XAI_API_KEY, then run: lexiprobe probe")
	return nil
}

func runInitForm(study *config.Study) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Study name").
				Description("Identifies this probe study in reports").
				Value(&study.Name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("study name must not be empty")
					}
					return nil
				}),
			huh.NewInput().
				Title("Model").
				Description("Model identifier sent with every probe").
				Value(&study.Model),
			huh.NewInput().
				Title("Data directory").
				Description("Where the ledger, cursor and raw artifacts live").
				Value(&study.DataDir),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("init wizard: %w", err)
	}
	return nil
}
