package cmd

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/vigneshmj1997/CodingAgent/internal/config"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage model profiles",
	Long:  `Manage profiles: which provider, model, endpoint and key swi talks to.`,
}

var listProfilesCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Active Profile: %s\n\n", cfg.ActiveProfile)
		fmt.Fprintln(out, "Available Profiles:")
		for _, name := range cfg.ProfileNames() {
			marker := ""
			if name == cfg.ActiveProfile {
				marker = " (active)"
			}
			fmt.Fprintf(out, "  %s%s\n", name, marker)
			printProfile(out, "    ", cfg.Profiles[name])
			fmt.Fprintln(out)
		}
		return nil
	},
}

var showProfileCmd = &cobra.Command{
	Use:   "show [profile-name]",
	Short: "Show profile details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		profile, exists := cfg.Profiles[args[0]]
		if !exists {
			return fmt.Errorf("profile '%s' does not exist", args[0])
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Profile: %s\n", args[0])
		printProfile(cmd.OutOrStdout(), "", profile)
		return nil
	},
}

func printProfile(out io.Writer, indent string, p config.Profile) {
	fmt.Fprintf(out, "%sProvider: %s\n", indent, p.ProviderName())
	fmt.Fprintf(out, "%sModel: %s\n", indent, p.Model)
	if p.BaseURL != "" {
		fmt.Fprintf(out, "%sBase URL: %s\n", indent, p.BaseURL)
	}
	hasKey := "Not set"
	if p.APIKey != "" {
		hasKey = "Set (hidden)"
	}
	fmt.Fprintf(out, "%sAPI Key: %s\n", indent, hasKey)
}

var addProfileCmd = &cobra.Command{
	Use:   "add [profile-name]",
	Short: "Add a new profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		var profileName string
		if len(args) > 0 {
			profileName = args[0]
		} else {
			prompt := promptui.Prompt{
				Label:    "Profile name",
				Validate: nonEmpty,
			}
			if profileName, err = prompt.Run(); err != nil {
				return fmt.Errorf("prompt failed: %w", err)
			}
		}
		if _, exists := cfg.Profiles[profileName]; exists {
			return fmt.Errorf("profile '%s' already exists", profileName)
		}

		profile, err := promptProfile(config.DefaultProfile())
		if err != nil {
			return err
		}
		cfg.Profiles[profileName] = profile
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Profile '%s' added successfully!\n", profileName)
		return nil
	},
}

var editProfileCmd = &cobra.Command{
	Use:   "edit [profile-name]",
	Short: "Edit an existing profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		profileName, err := profileArg(cfg, args, "Select profile to edit", "")
		if err != nil {
			return err
		}
		profile, err := promptProfile(cfg.Profiles[profileName])
		if err != nil {
			return err
		}
		cfg.Profiles[profileName] = profile
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Profile '%s' updated successfully!\n", profileName)
		return nil
	},
}

var deleteProfileCmd = &cobra.Command{
	Use:   "delete [profile-name]",
	Short: "Delete a profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		profileName, err := profileArg(cfg, args, "Select profile to delete", "")
		if err != nil {
			return err
		}

		confirmPrompt := promptui.Prompt{
			Label:     fmt.Sprintf("Delete profile '%s'", profileName),
			IsConfirm: true,
		}
		if _, err := confirmPrompt.Run(); err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Deletion cancelled")
			return nil
		}

		delete(cfg.Profiles, profileName)
		if len(cfg.Profiles) == 0 {
			cfg.Profiles["default"] = config.DefaultProfile()
		}
		if cfg.ActiveProfile == profileName {
			cfg.ActiveProfile = cfg.ProfileNames()[0]
		}
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Profile '%s' deleted successfully!\n", profileName)
		return nil
	},
}

var switchProfileCmd = &cobra.Command{
	Use:   "switch [profile-name]",
	Short: "Switch to a different profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		profileName, err := profileArg(cfg, args, "Select profile to switch to", cfg.ActiveProfile)
		if err != nil {
			return err
		}
		if err := cfg.UseProfile(profileName); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Switched to profile '%s'\n", profileName)
		return nil
	},
}

// profileArg returns the named profile, or lets the user pick one other
// than exclude.
func profileArg(cfg *config.Config, args []string, label, exclude string) (string, error) {
	if len(args) > 0 {
		if _, exists := cfg.Profiles[args[0]]; !exists {
			return "", fmt.Errorf("profile '%s' does not exist", args[0])
		}
		return args[0], nil
	}

	names := slices.DeleteFunc(cfg.ProfileNames(), func(name string) bool { return name == exclude })
	if len(names) == 0 {
		return "", errors.New("no profiles to choose from")
	}
	prompt := promptui.Select{
		Label: label,
		Items: names,
	}
	_, name, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("selection failed: %w", err)
	}
	return name, nil
}

// promptProfile asks for every profile field, offering current values as
// defaults, and validates the result.
func promptProfile(current config.Profile) (config.Profile, error) {
	var p config.Profile

	providerPrompt := promptui.Select{
		Label:     "Provider",
		Items:     config.Providers,
		CursorPos: max(slices.Index(config.Providers, current.ProviderName()), 0),
	}
	_, provider, err := providerPrompt.Run()
	if err != nil {
		return p, fmt.Errorf("selection failed: %w", err)
	}
	p.Provider = provider

	modelPrompt := promptui.Prompt{
		Label:     "Model",
		Default:   current.Model,
		AllowEdit: true,
		Validate:  nonEmpty,
	}
	if p.Model, err = modelPrompt.Run(); err != nil {
		return p, fmt.Errorf("prompt failed: %w", err)
	}

	apiKeyPrompt := promptui.Prompt{
		Label: "API Key (leave empty to keep the current one)",
		Mask:  '*',
	}
	if p.APIKey, err = apiKeyPrompt.Run(); err != nil {
		return p, fmt.Errorf("prompt failed: %w", err)
	}
	if p.APIKey == "" {
		p.APIKey = current.APIKey
	}

	baseURLPrompt := promptui.Prompt{
		Label:     "Base URL (optional)",
		Default:   current.BaseURL,
		AllowEdit: true,
	}
	if p.BaseURL, err = baseURLPrompt.Run(); err != nil {
		return p, fmt.Errorf("prompt failed: %w", err)
	}

	if err := config.ValidateProfile(p); err != nil {
		return p, fmt.Errorf("invalid profile: %w", err)
	}
	return p, nil
}

func nonEmpty(s string) error {
	if s == "" {
		return errors.New("must not be empty")
	}
	return nil
}

func init() {
	// Add subcommands to profile
	profileCmd.AddCommand(listProfilesCmd)
	profileCmd.AddCommand(showProfileCmd)
	profileCmd.AddCommand(addProfileCmd)
	profileCmd.AddCommand(editProfileCmd)
	profileCmd.AddCommand(deleteProfileCmd)
	profileCmd.AddCommand(switchProfileCmd)
}
