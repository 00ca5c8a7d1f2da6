package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/vigneshmj1997/CodingAgent/internal/app"
	"github.com/vigneshmj1997/CodingAgent/internal/config"
)

var (
	plainFlag   bool
	threadFlag  string
	profileFlag string
)

var rootCmd = &cobra.Command{
	Use:   "swi",
	Short: "A terminal coding agent",
	Long: `swi is a coding assistant for the terminal. It reads and edits files, runs
commands and fetches pages on your behalf, and asks before it changes anything.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if profileFlag != "" {
			if err := cfg.UseProfile(profileFlag); err != nil {
				return err
			}
		}
		return runChat(cfg)
	},
}

func runChat(cfg *config.Config) error {
	application, err := app.NewApplication(cfg, app.Options{
		Plain:    plainFlag || !interactive(),
		ThreadID: threadFlag,
	})
	if errors.Is(err, config.ErrNoCredentials) {
		return fmt.Errorf("%w\nRun 'swi profile add' or set SWI_API_KEY", err)
	}
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer application.Stop()

	return application.Start()
}

func interactive() bool {
	for _, f := range []*os.File{os.Stdin, os.Stdout} {
		if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
			return false
		}
	}
	return true
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&plainFlag, "plain", false, "use the line-oriented console instead of the full-screen UI")
	rootCmd.PersistentFlags().StringVar(&threadFlag, "thread", "", "conversation thread to resume (needs checkpoint_dir to outlive the process)")
	rootCmd.Flags().StringVar(&profileFlag, "profile", "", "profile to use for this session without switching to it")

	// Add subcommands
	rootCmd.AddCommand(profileCmd)
}
