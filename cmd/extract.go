package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/kolscout/internal/contact"
)

func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract [bio...]",
		Short: "Prints the email and phone found in each bio",
		Long: `Runs contact extraction over each argument, or over each line of stdin when
no arguments are given, and prints one JSON object per bio.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			if len(args) > 0 {
				for _, bio := range args {
					if err := enc.Encode(contact.Extract(bio)); err != nil {
						return fmt.Errorf("write result: %w", err)
					}
				}
				return nil
			}
			return extractLines(cmd.InOrStdin(), enc)
		},
	}
}

func extractLines(r io.Reader, enc *json.Encoder) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := enc.Encode(contact.Extract(scanner.Text())); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	return nil
}
