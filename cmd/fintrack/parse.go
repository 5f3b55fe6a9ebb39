package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/api/option"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/enrich"
)

func parseCmd(a *app) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "parse [message]",
		Short: "Guess an expense from a free-text transaction message",
		Long: `Parse sends a bank or payment notification to the enrichment model and
prints the guessed description, amount and category. Without an argument,
messages are read from stdin one per line. An unusable guess is reported
and the next line is processed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if a.cfg.GeminiAPIKey == "" {
				return errors.New("GEMINI_API_KEY is not set")
			}
			s, err := a.openSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			results := cache.NewLRUCache[enrich.Suggestion](a.cfg.EnrichCacheSize, a.cfg.EnrichCacheTTL)
			janitor := cache.NewJanitor(a.logger)
			janitor.Register(results)
			jctx, stop := context.WithCancel(ctx)
			defer stop()
			go janitor.Run(jctx, time.Minute)

			parser, err := enrich.NewGeminiParser(ctx,
				[]option.ClientOption{option.WithAPIKey(a.cfg.GeminiAPIKey)},
				enrich.WithModel(a.cfg.GeminiModel),
				enrich.WithCache(results),
				enrich.WithLogger(a.logger))
			if err != nil {
				return err
			}

			p := &parseRun{parser: parser, session: s, save: save, out: os.Stdout}
			if len(args) == 1 {
				return p.one(ctx, args[0])
			}
			return p.lines(ctx, os.Stdin)
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "record each usable guess as an expense dated today")
	return cmd
}

type parseRun struct {
	parser  enrich.Parser
	session *session
	save    bool
	out     io.Writer
}

func (p *parseRun) lines(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) == "" {
			continue
		}
		if err := p.one(ctx, sc.Text()); err != nil {
			if !errors.Is(err, core.ErrEnrichmentFailed) {
				return err
			}
			fmt.Fprintln(p.out, "could not parse:", err)
		}
	}
	return sc.Err()
}

func (p *parseRun) one(ctx context.Context, text string) error {
	categories := p.session.store.Categories.All()
	s, err := p.parser.Parse(ctx, text, enrich.Names(categories))
	if err != nil {
		return err
	}
	form := s.Form(categories)
	fmt.Fprintf(p.out, "%s\t%s\t%s\n", form.Description, form.Amount, categoryName(categories, form.CategoryID))
	if !p.save {
		return nil
	}
	e, err := form.Parse(p.session.loc)
	if err != nil {
		return err
	}
	created, err := p.session.store.Expenses.Add(ctx, e)
	if err != nil {
		return err
	}
	fmt.Fprintf(p.out, "saved %s\n", created.ID)
	return nil
}

func categoryName(categories []core.Category, id string) string {
	for _, c := range categories {
		if c.ID == id {
			return c.Name
		}
	}
	return "(no category)"
}
