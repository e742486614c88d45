package main

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/ownlingo/gamelingo/translator/book"
	"github.com/ownlingo/gamelingo/translator/dialog"
	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check BOOK...",
		Short: "Report speaker names missing from the dictionary",
		Long: `Run the dialog recognizers over every untranslated line and list each
speaker name the dictionary cannot resolve, as book|line and key. Exits
non-zero when anything is missing. No provider is contacted.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(args)
			if err != nil {
				return err
			}

			s := book.NewService(nil, nil, ws.dict)
			err = s.Check(cmd.Context(), ws.books)
			var missing *dialog.MissingNamesError
			if errors.As(err, &missing) {
				printMissing(cmd, missing)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "all names resolved (%d dictionary entries)\n", ws.dict.Len())
			return nil
		},
	}
}

func printMissing(cmd *cobra.Command, missing *dialog.MissingNamesError) {
	out := cmd.OutOrStdout()
	for _, m := range missing.Missing {
		fmt.Fprintf(out, "%s\t%s\n", m.Location(), m.Key)
	}
	fmt.Fprintf(out, "%d missing names: %v\n", len(missing.Keys()), missing.Keys())
}

func newNamesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "names BOOK...",
		Short: "List dictionary entries used by the books",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(args)
			if err != nil {
				return err
			}

			used := book.NewService(nil, nil, ws.dict).NameUsage(ws.books)
			for _, k := range slices.Sorted(maps.Keys(used)) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", k, used[k])
			}
			return nil
		},
	}
}
