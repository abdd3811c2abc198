package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codyseavey/card-lookup/internal/models"
	"github.com/codyseavey/card-lookup/internal/services"
)

func newLookupCommand(ctx *commandContext) *cobra.Command {
	var (
		limit  int
		detail bool
		lang   string
		jp     bool
	)

	cmd := &cobra.Command{
		Use:   "lookup <query...>",
		Short: "Find the card best matching a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.cardService()
			if err != nil {
				return err
			}
			if err := svc.Load(cmd.Context()); err != nil {
				return err
			}

			query := strings.Join(args, " ")
			out := cmd.OutOrStdout()

			res := svc.FuzzyMatch(cmd.Context(), query, limit)
			printMatch(out, query, res)
			if !detail || !res.Found() {
				return nil
			}

			resolved, err := svc.Resolve(cmd.Context(), query, services.ResolveOptions{Language: lang, ForceSecondary: jp})
			if errors.Is(err, services.ErrCardNotFound) {
				fmt.Fprintf(out, "Match too weak to resolve (score %s)\n", formatScore(res))
				return nil
			}
			if err != nil {
				return err
			}
			printDetail(out, resolved.Detail)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 8, "Maximum number of candidates")
	cmd.Flags().BoolVarP(&detail, "detail", "d", false, "Also print the resolved card details")
	cmd.Flags().StringVar(&lang, "lang", "", "Locale for the card details (e.g. en, ja)")
	cmd.Flags().BoolVar(&jp, "jp", false, "Print Japanese card details regardless of locale")

	return cmd
}

func printMatch(out io.Writer, query string, res models.MatchResult) {
	if !res.Found() {
		fmt.Fprintf(out, "No match for %q\n", query)
		return
	}

	rows := [][]string{
		{"Query", query},
		{"Best", res.Best},
		{"ID", strconv.Itoa(res.BestID)},
		{"Score", formatScore(res)},
		{"Tier", string(res.Tier)},
	}
	for i, c := range res.Candidates {
		rows = append(rows, []string{fmt.Sprintf("Candidate %d", i+1), c})
	}
	fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))
}

func printDetail(out io.Writer, d *models.CardDetail) {
	rows := [][]string{
		{"Name", d.Name},
		{"Language", string(d.Language)},
		{"Type", d.TypeLine},
		{"Attribute", d.Attribute},
		{"Level", d.Level},
		{"ATK / DEF", d.ATK + " / " + d.DEF},
	}
	if d.ImageURL != "" {
		rows = append(rows, []string{"Image", d.ImageURL})
	}
	fmt.Fprintln(out, renderTable([]string{"Card", "Value"}, rows, nil))
	if d.Description != "" {
		fmt.Fprintln(out, d.Description)
	}
}

func formatScore(res models.MatchResult) string {
	if !res.Found() {
		return "-"
	}
	return strconv.FormatFloat(res.Score, 'f', 4, 64)
}
