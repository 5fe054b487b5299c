package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/refuel-athletics/gelstore/internal/domain/formula"
)

func newQuizCmd() *cobra.Command {
	answers := make(map[formula.QuestionID]*string)
	var list bool
	cmd := &cobra.Command{
		Use:   "quiz",
		Short: "Map quiz answers to a starting recipe and price it",
		Long: "Each question is a flag taking the answer label, e.g.\n" +
			"  gelctl quiz --duration \"2–3 hours\" --sweat Heavy --gut Normal\n" +
			"Unanswered questions keep the default recipe value.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			if list {
				for _, q := range formula.Questions() {
					fmt.Fprintf(w, "--%s  %s\n", q.ID, q.Text)
					for _, o := range q.Options {
						fmt.Fprintf(w, "    %s\n", o)
					}
				}
				return nil
			}
			a := make(formula.Answers, len(answers))
			for id, v := range answers {
				if *v != "" {
					a[id] = *v
				}
			}
			printQuote(w, formula.MapQuiz(a), 10)
			return nil
		},
	}
	for _, q := range formula.Questions() {
		answers[q.ID] = cmd.Flags().String(string(q.ID), "", q.Text)
	}
	cmd.Flags().BoolVar(&list, "list", false, "print the questions and their answers")
	return cmd
}
