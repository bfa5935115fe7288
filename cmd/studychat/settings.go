package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/studychat/internal/adapters/storage"
	"github.com/PabloGalante/studychat/internal/app/settings"
	"github.com/PabloGalante/studychat/internal/config"
	"github.com/PabloGalante/studychat/internal/domain"
)

var (
	revealKeys bool
	openAIKey  string
	geminiKey  string
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the stored API keys",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored API keys, masked unless --reveal is given",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSettings(cmd, func(svc *settings.Service) error {
			keys, err := svc.Get(cmd.Context(), revealKeys)
			if err != nil {
				return err
			}
			printKeys(cmd.OutOrStdout(), keys)
			return nil
		})
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store API keys. Keys whose flag is omitted keep their value",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("openai") && !cmd.Flags().Changed("gemini") {
			return fmt.Errorf("nothing to set, pass --openai and/or --gemini")
		}
		return withSettings(cmd, func(svc *settings.Service) error {
			current, err := svc.Get(cmd.Context(), true)
			if err != nil {
				return err
			}
			next := mergeKeys(*current, cmd.Flags().Changed("openai"), openAIKey, cmd.Flags().Changed("gemini"), geminiKey)

			saved, err := svc.Save(cmd.Context(), next)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "API keys saved")
			printKeys(cmd.OutOrStdout(), &domain.APIKeys{
				OpenAI: settings.Mask(saved.OpenAI),
				Gemini: settings.Mask(saved.Gemini),
			})
			return nil
		})
	},
}

func init() {
	settingsShowCmd.Flags().BoolVar(&revealKeys, "reveal", false, "print keys in clear text")
	settingsSetCmd.Flags().StringVar(&openAIKey, "openai", "", "OpenAI API key")
	settingsSetCmd.Flags().StringVar(&geminiKey, "gemini", "", "Gemini API key")

	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func withSettings(cmd *cobra.Command, fn func(*settings.Service) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	store, closeStore, err := storage.OpenSettings(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	return fn(settings.NewService(store))
}

// mergeKeys overwrites only the keys whose flag was given.
func mergeKeys(current domain.APIKeys, setOpenAI bool, openai string, setGemini bool, gemini string) domain.APIKeys {
	if setOpenAI {
		current.OpenAI = openai
	}
	if setGemini {
		current.Gemini = gemini
	}
	return current
}

func printKeys(w io.Writer, keys *domain.APIKeys) {
	fmt.Fprintf(w, "openai: %s\n", orNotSet(keys.OpenAI))
	fmt.Fprintf(w, "gemini: %s\n", orNotSet(keys.Gemini))
}

func orNotSet(v string) string {
	if v == "" {
		return "(not set)"
	}
	return v
}
