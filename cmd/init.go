package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"showtimes-console/config"
	"showtimes-console/service"
)

func newInitCmd(opts *rootOptions) *cobra.Command {
	var skipDetect bool
	c := &cobra.Command{
		Use:   "init",
		Short: "Create a config file interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if _, err := os.Stat(path); err == nil {
				if !confirm(fmt.Sprintf("%s exists, overwrite", path)) {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing written.")
					return nil
				}
			}

			var guess service.Whereabouts
			if !skipDetect {
				ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
				guess, _ = service.DetectWhereabouts(ctx, nil)
				cancel()
				if guess.City != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Detected location: %s (%s)\n", guess.LocationQuery(), guess.Source)
				}
			}

			cfg, err := runWizard(guess)
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return finish(cmd, context.Canceled)
			}
			if err != nil {
				return err
			}
			if err := cfg.Save(path); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s with %d theater(s).\n", path, len(cfg.Theaters))
			return nil
		},
	}
	c.Flags().BoolVar(&skipDetect, "no-detect", false, "do not guess location and timezone from your IP address")
	return c
}

func runWizard(guess service.Whereabouts) (*config.Config, error) {
	cfg := &config.Config{Theaters: []config.Theater{}}

	envKey := strings.TrimSpace(os.Getenv(config.APIKeyEnv))
	keyPrompt := promptui.Prompt{
		Label: "SerpAPI key",
		Mask:  '*',
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" && envKey == "" {
				return errors.New("api key is required")
			}
			return nil
		},
	}
	if envKey != "" {
		keyPrompt.Label = fmt.Sprintf("SerpAPI key (blank to use $%s)", config.APIKeyEnv)
	}
	key, err := keyPrompt.Run()
	if err != nil {
		return nil, err
	}
	cfg.APIKey = strings.TrimSpace(key)

	location := guess.LocationQuery()
	for {
		name, err := (&promptui.Prompt{Label: "Theater name", Validate: required("theater name")}).Run()
		if err != nil {
			return nil, err
		}
		loc, err := (&promptui.Prompt{Label: "Location", Default: location, AllowEdit: true, Validate: required("location")}).Run()
		if err != nil {
			return nil, err
		}
		location = strings.TrimSpace(loc)
		cfg.Theaters = append(cfg.Theaters, config.Theater{Name: strings.TrimSpace(name), Location: location})

		if !confirm("Add another theater") {
			break
		}
	}

	tz, err := (&promptui.Prompt{Label: "Timezone (IANA name, blank for UTC)", Default: guess.Timezone, AllowEdit: true, Validate: validTimezone}).Run()
	if err != nil {
		return nil, err
	}
	cfg.Timezone = strings.TrimSpace(tz)

	hl, err := (&promptui.Prompt{Label: "Language (hl)", Default: config.DefaultHL, AllowEdit: true}).Run()
	if err != nil {
		return nil, err
	}
	gl, err := (&promptui.Prompt{Label: "Country (gl)", Default: config.DefaultGL, AllowEdit: true}).Run()
	if err != nil {
		return nil, err
	}
	cfg.HL = strings.TrimSpace(hl)
	cfg.GL = strings.TrimSpace(gl)
	return cfg, nil
}

func confirm(label string) bool {
	_, err := (&promptui.Prompt{Label: label, IsConfirm: true}).Run()
	return err == nil
}

func required(what string) func(string) error {
	return func(input string) error {
		if strings.TrimSpace(input) == "" {
			return fmt.Errorf("%s is required", what)
		}
		return nil
	}
}

func validTimezone(input string) error {
	name := strings.TrimSpace(input)
	if name == "" {
		return nil
	}
	if _, err := time.LoadLocation(name); err != nil {
		return fmt.Errorf("unknown timezone %q", name)
	}
	return nil
}
