package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newMediaCmd(get func() *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:       "media <speech|audio|video> <id>",
		Short:     "Resolve a media record to its URL, optionally downloading it",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"speech", "audio", "video"},
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			id, err := parseID(args[1])
			if err != nil {
				return err
			}

			var resolve func(context.Context, int64) (string, error)
			switch args[0] {
			case "speech":
				resolve = a.gateway.SpeechURL
			case "audio":
				resolve = a.gateway.AudioURL
			case "video":
				resolve = a.gateway.VideoURL
			default:
				return fmt.Errorf("unknown media kind %q", args[0])
			}

			url, err := resolve(cmd.Context(), id)
			if err != nil {
				return err
			}
			if out == "" {
				fmt.Fprintln(cmd.OutOrStdout(), url)
				return nil
			}

			f, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
			if err != nil {
				return err
			}
			n, err := a.gateway.DownloadMedia(cmd.Context(), url, f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d bytes to %s\n", n, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "download the media to this file")
	return cmd
}
