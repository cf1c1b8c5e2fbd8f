package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"vidcompress/probe"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <input-file>",
		Short: "Show what ffprobe reports about a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			info, err := probe.New(cfg.FFprobe()).Probe(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderProbe(info))
			return nil
		},
	}
}

func renderProbe(info probe.Info) string {
	format := info.Result.Format
	summary := renderTable(
		[]string{"Property", "Value"},
		[][]string{
			{"File", format.Filename},
			{"Container", format.FormatName},
			{"Duration", formatSeconds(info.Duration)},
			{"Height", strconv.Itoa(info.Height) + "p"},
			{"Size", formatSize(info.Result.SizeBytes())},
			{"Bitrate", formatBitrate(format.BitRate)},
		},
		[]columnAlignment{alignLeft, alignLeft},
	)

	rows := make([][]string, 0, len(info.Result.Streams))
	for _, s := range info.Result.Streams {
		resolution := ""
		if s.Width > 0 && s.Height > 0 {
			resolution = fmt.Sprintf("%dx%d", s.Width, s.Height)
		}
		rows = append(rows, []string{
			strconv.Itoa(s.Index),
			s.CodecType,
			s.CodecName,
			resolution,
			formatBitrate(s.BitRate),
		})
	}
	streams := renderTable(
		[]string{"#", "Type", "Codec", "Resolution", "Bitrate"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight},
	)

	return summary + "\n" + streams
}

func formatSeconds(seconds float64) string {
	return time.Duration(seconds * float64(time.Second)).Round(time.Second).String()
}

func formatSize(size int64) string {
	if size <= 0 {
		return "-"
	}
	return humanize.IBytes(uint64(size))
}

func formatBitrate(raw string) string {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || value <= 0 {
		return "-"
	}
	return humanize.SI(value, "b/s")
}
