package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"vidcompress/config"
)

func newProfilesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the built-in encoding profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), renderProfiles())
			return nil
		},
	}
}

func renderProfiles() string {
	profiles := config.AvailableProfiles()
	rows := make([][]string, 0, len(profiles))
	for _, p := range profiles {
		s := config.GetProfile(p)
		rows = append(rows, []string{
			string(p),
			strconv.Itoa(s.CRF),
			s.Preset,
			s.HeightLabel(),
			s.AudioBitrate,
			config.ProfileDescription(p),
		})
	}
	return renderTable(
		[]string{"Profile", "CRF", "Preset", "Height", "Audio", "Description"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignRight, alignLeft},
	)
}
