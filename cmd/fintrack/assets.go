package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"fintrack/internal/assetcache"
)

func assetsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Manage offline cache generations of the application shell",
	}
	cmd.AddCommand(assetsInstallCmd(a), assetsActivateCmd(a), assetsStatusCmd(a))
	return cmd
}

func assetsInstallCmd(a *app) *cobra.Command {
	var activate bool
	cmd := &cobra.Command{
		Use:   "install [version]",
		Short: "Fetch every manifest asset into a new generation",
		Long: `Install fetches every asset listed in the manifest into a new cache
generation. Any failed fetch abandons the whole generation and the store is
left unchanged. With --activate the new generation replaces the current one
and older generations are evicted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tag := a.cfg.CacheVersion
			if len(args) == 1 {
				tag = args[0]
			}
			c, cleanup, err := a.openAssetCache(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = cleanup() }()

			bar := progressbar.NewOptions(len(c.Manifest()),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("Caching "+tag),
				progressbar.OptionClearOnFinish(),
			)
			progress := func(done, _ int) { _ = bar.Set(done) }

			if err := c.Install(ctx, tag, progress); err != nil {
				return err
			}
			_ = bar.Finish()
			fmt.Printf("Installed %s (%d assets)\n", tag, len(c.Manifest()))
			if !activate {
				return nil
			}
			return activateAndReport(cmd, c, tag)
		},
	}
	cmd.Flags().BoolVar(&activate, "activate", false, "activate the generation after installing")
	return cmd
}

func assetsActivateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "activate <version>",
		Short: "Make an installed generation active and evict the others",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cleanup, err := a.openAssetCache(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = cleanup() }()
			return activateAndReport(cmd, c, args[0])
		},
	}
}

func activateAndReport(cmd *cobra.Command, c *assetcache.Cache, tag string) error {
	evicted, err := c.Activate(cmd.Context(), tag)
	if err != nil {
		return err
	}
	fmt.Printf("Active generation: %s\n", tag)
	for _, e := range evicted {
		fmt.Printf("Evicted %s\n", e)
	}
	return nil
}

func assetsStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List stored generations and their entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, cleanup, err := a.openAssetCache(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = cleanup() }()

			snap, err := c.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			if len(snap) == 0 {
				fmt.Println("No generations stored. Use 'fintrack assets install --activate' to create one.")
				return nil
			}
			tags := make([]string, 0, len(snap))
			for tag := range snap {
				tags = append(tags, tag)
			}
			sort.Strings(tags)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tSTATE\tENTRIES")
			for _, tag := range tags {
				state := "installed"
				if tag == c.Active() {
					state = "active"
				}
				fmt.Fprintf(w, "%s\t%s\t%d\n", tag, state, len(snap[tag]))
			}
			return w.Flush()
		},
	}
}
