package main

import (
	"fmt"
	"math/rand/v2"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/codyseavey/card-lookup/internal/models"
)

// trickyQueries are lookups that have regressed before: short names that are
// contained in longer ones, partial names and bare Japanese fragments.
var trickyQueries = []string{
	"exodia",
	"contract with exodia",
	"black luster soldier",
	"purrely",
	"epurrely",
	"blue-eyes",
	"red eyes",
	"dark magician",
	"召喚",
	"天使",
	"ドラゴン",
}

func newStressCommand(ctx *commandContext) *cobra.Command {
	var (
		random int
		seed   uint64
	)

	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Run tricky and randomly corrupted queries against the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.cardService()
			if err != nil {
				return err
			}
			if err := svc.Load(cmd.Context()); err != nil {
				return err
			}

			entries := svc.All()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Loaded cards: %d\n", len(entries))

			rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
			queries := stressQueries(entries, random, rng)

			var failures []string
			rows := make([][]string, 0, len(queries))
			for _, q := range queries {
				res := svc.FuzzyMatch(cmd.Context(), q.query, 5)
				status := "ok"
				if !res.Found() {
					status = "FAIL"
					failures = append(failures, q.query)
				}
				rows = append(rows, []string{q.query, q.expect, res.Best, formatID(res), formatScore(res), status})
			}

			fmt.Fprintln(out, renderTable(
				[]string{"Query", "Expected", "Best", "ID", "Score", "Result"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))

			if len(failures) > 0 {
				return fmt.Errorf("%d of %d queries found nothing: %q", len(failures), len(queries), failures)
			}
			fmt.Fprintln(out, "All queries matched")
			return nil
		},
	}

	cmd.Flags().IntVarP(&random, "random", "r", 200, "Number of randomly corrupted card names to try")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "Seed for the random queries")

	return cmd
}

type stressQuery struct {
	query  string
	expect string
}

// stressQueries returns the fixed tricky queries followed by n primary names
// with one rune replaced by '*'.
func stressQueries(entries []*models.MergedEntry, n int, rng *rand.Rand) []stressQuery {
	queries := make([]stressQuery, 0, len(trickyQueries)+n)
	for _, q := range trickyQueries {
		queries = append(queries, stressQuery{query: q})
	}
	if len(entries) == 0 {
		return queries
	}

	for i := 0; i < n; i++ {
		pick := entries[rng.IntN(len(entries))]
		name, ok := pick.Name(models.LanguagePrimary)
		if !ok {
			continue
		}
		queries = append(queries, stressQuery{query: mutate(name, rng), expect: name})
	}
	return queries
}

func mutate(s string, rng *rand.Rand) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	runes[rng.IntN(len(runes))] = '*'
	return string(runes)
}

func formatID(res models.MatchResult) string {
	if !res.Found() {
		return "-"
	}
	return strconv.Itoa(res.BestID)
}
