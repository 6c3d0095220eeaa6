package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/starford/hours/internal/client"
	"github.com/starford/hours/internal/filter"
	"github.com/starford/hours/internal/models"
	"github.com/starford/hours/internal/overlay"
	"github.com/starford/hours/internal/selection"
)

func clientFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "addr",
			Usage:   "Base URL of a running server (overrides client.base_url)",
			Sources: cli.EnvVars("HOURS_ADDR"),
		},
		&cli.StringFlag{
			Name:    "token",
			Usage:   "Bearer token for mutating requests",
			Sources: cli.EnvVars("HOURS_TOKEN"),
		},
	}
}

func newSession(ctx context.Context, cmd *cli.Command) (*client.Session, *client.Client, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel}))

	opts := cfg.Client.Options(logger)
	if addr := cmd.String("addr"); addr != "" {
		opts.BaseURL = addr
	}
	if token := cmd.String("token"); token != "" {
		opts.Token = token
	}
	c := client.New(opts)
	s := client.NewSession(c)
	if err := s.Load(ctx); err != nil {
		return nil, nil, fmt.Errorf("load catalog from %s: %w", opts.BaseURL, err)
	}
	return s, c, nil
}

func parsePrinciples(names []string) ([]models.Principle, error) {
	var out []models.Principle
	for _, name := range names {
		for _, part := range strings.Split(name, ",") {
			if part = strings.TrimSpace(part); part == "" {
				continue
			}
			p, err := models.ParsePrinciple(strings.ToLower(part))
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
	}
	return out, nil
}

func splitIDs(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func itemsCommand() *cli.Command {
	return &cli.Command{
		Name:  "items",
		Usage: "List items from a running server, filtered and ordered by principle",
		Flags: append([]cli.Flag{
			&cli.BoolFlag{Name: "known", Usage: "Only known items"},
			&cli.StringSliceFlag{Name: "principle", Aliases: []string{"p"}, Usage: "Principle to filter and order by (repeatable)"},
			&cli.StringSliceFlag{Name: "aspect", Aliases: []string{"a"}, Usage: "Aspect the item must have (repeatable)"},
			&cli.BoolFlag{Name: "include-zero", Usage: "Treat a principle value of 0 as present"},
			&cli.StringSliceFlag{Name: "select", Usage: "Item ids to total (repeatable)"},
			&cli.StringFlag{Name: "assistant", Usage: "Assistant whose base principles join the totals"},
		}, clientFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			principles, err := parsePrinciples(cmd.StringSlice("principle"))
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}
			session, c, err := newSession(ctx, cmd)
			if err != nil {
				return err
			}

			spec := filter.Spec{
				Known:       cmd.Bool("known"),
				Principles:  principles,
				Aspects:     splitIDs(cmd.StringSlice("aspect")),
				IncludeZero: cmd.Bool("include-zero"),
			}
			items := filter.Items(session.Items(), spec)
			if err := renderItems(cmd.Root().Writer, items, principles); err != nil {
				return err
			}

			ids := splitIDs(cmd.StringSlice("select"))
			if len(ids) == 0 {
				return nil
			}
			var base []models.PrincipleCount
			if name := cmd.String("assistant"); name != "" {
				assistants, err := c.Assistants(ctx)
				if err != nil {
					return err
				}
				found := false
				for _, a := range assistants {
					if a.ID == name {
						base, found = a.BasePrinciples, true
						break
					}
				}
				if !found {
					return cli.Exit(fmt.Sprintf("unknown assistant %q", name), 2)
				}
			}
			return renderTotals(cmd.Root().Writer, session.Items(), ids, base)
		},
	}
}

func skillsCommand() *cli.Command {
	return &cli.Command{
		Name:  "skills",
		Usage: "List skills from a running server",
		Flags: append([]cli.Flag{
			&cli.StringSliceFlag{Name: "principle", Aliases: []string{"p"}, Usage: "Principle to filter by (repeatable); without one only learned skills are listed"},
			&cli.BoolFlag{Name: "by-level", Usage: "Sort by level, highest first"},
		}, clientFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			principles, err := parsePrinciples(cmd.StringSlice("principle"))
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}
			session, _, err := newSession(ctx, cmd)
			if err != nil {
				return err
			}
			skills := overlay.SortSkills(filter.Skills(session.Skills(), principles), cmd.Bool("by-level"))
			return renderSkills(cmd.Root().Writer, skills)
		},
		Commands: []*cli.Command{
			{
				Name:      "up",
				Usage:     "Raise a skill by one level",
				ArgsUsage: "<id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() != 1 {
						return cli.Exit("usage: hours skills up <id>", 2)
					}
					session, _, err := newSession(ctx, cmd)
					if err != nil {
						return err
					}
					skill, err := session.IncrementSkill(ctx, cmd.Args().First())
					if err != nil {
						if client.IsNotFound(err) {
							return cli.Exit(fmt.Sprintf("unknown skill %q", cmd.Args().First()), 1)
						}
						return err
					}
					fmt.Fprintf(cmd.Root().Writer, "%s is now level %d\n", skill.ID, skill.Level)
					return nil
				},
			},
		},
	}
}

// renderItems prints one row per item. With principles given, their
// values are the columns; otherwise every present principle is listed.
func renderItems(w io.Writer, items []models.Item, principles []models.Principle) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := []string{"ID", "NAME", "KNOWN"}
	for _, p := range principles {
		header = append(header, strings.ToUpper(string(p)))
	}
	if len(principles) == 0 {
		header = append(header, "PRINCIPLES")
	}
	header = append(header, "ASPECTS")
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, it := range items {
		row := []string{it.ID, it.Name, yesNo(it.Known)}
		for _, p := range principles {
			if v, ok := it.Value(p); ok {
				row = append(row, strconv.Itoa(v))
			} else {
				row = append(row, "-")
			}
		}
		if len(principles) == 0 {
			var parts []string
			for _, p := range it.Values.Present() {
				parts = append(parts, fmt.Sprintf("%s %d", p, it.Values[p]))
			}
			row = append(row, strings.Join(parts, ", "))
		}
		row = append(row, strings.Join(it.AspectIDs(), ", "))
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// renderTotals selects ids one by one and prints the summed principles.
func renderTotals(w io.Writer, items []models.Item, ids []string, base []models.PrincipleCount) error {
	store := selection.NewStore()
	for _, id := range ids {
		store.Dispatch(selection.Toggle{ID: id, Selected: true})
	}
	totals := selection.Totals(items, store.Selected(), base)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "\nTOTAL (%d selected)\n", len(store.State()))
	for _, pc := range totals {
		fmt.Fprintf(tw, "%s\t%d\n", pc.Principle, pc.Count)
	}
	return tw.Flush()
}

func renderSkills(w io.Writer, skills []models.Skill) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tLEVEL\tPRINCIPLES\tWISDOMS")
	for _, s := range skills {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s, %s\t%s\n",
			s.ID, s.Name, s.Level, s.Primary.ID, s.Secondary.ID, strings.Join(models.RefIDs(s.Wisdoms), ", "))
	}
	return tw.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
