package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/nftkit/allowlist-go/pkg/allowlist"
	"github.com/nftkit/allowlist-go/pkg/persistence"
)

func snapshotsCommand() *cli.Command {
	return &cli.Command{
		Name:  "snapshots",
		Usage: "Inspect stored tree snapshots",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List stored snapshots, oldest first",
				Action: func(c *cli.Context) error {
					return withAppContext(c, func(ac *appContext) error {
						snapshots, err := ac.store.ListSnapshots()
						if err != nil {
							return err
						}
						for _, s := range snapshots {
							fmt.Printf("%s  %s  members=%d  %s  %s\n",
								s.Key, s.Root, len(s.Members),
								time.Unix(s.CreatedAt, 0).UTC().Format(time.RFC3339), s.Name)
						}
						return nil
					})
				},
			},
			{
				Name:      "show",
				Usage:     "Print a snapshot by cache key or root and check it still rebuilds to its root",
				ArgsUsage: "<key|root>",
				Action: func(c *cli.Context) error {
					return withAppContext(c, func(ac *appContext) error {
						s, err := findSnapshot(ac.store, c.Args().First())
						if err != nil {
							return err
						}
						out := map[string]any{"snapshot": s}
						if _, err := allowlist.FromSnapshot(s); err != nil {
							out["rebuildError"] = err.Error()
						} else {
							out["rebuildOK"] = true
						}
						return printJSON(out)
					})
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a snapshot by cache key",
				ArgsUsage: "<key>",
				Action: func(c *cli.Context) error {
					key := c.Args().First()
					if key == "" {
						return fmt.Errorf("snapshot key is required")
					}
					return withAppContext(c, func(ac *appContext) error {
						return ac.store.DeleteSnapshot(key)
					})
				},
			},
		},
	}
}

// findSnapshot looks arg up as a cache key first, then as a root.
func findSnapshot(store persistence.ITreePersistence, arg string) (*persistence.TreeSnapshot, error) {
	if arg == "" {
		return nil, fmt.Errorf("snapshot key or root is required")
	}

	s, err := store.LoadSnapshot(arg)
	if err != nil {
		return nil, err
	}
	if s == nil {
		if s, err = store.LoadSnapshotByRoot(arg); err != nil {
			return nil, err
		}
	}
	if s == nil {
		return nil, fmt.Errorf("no snapshot found for %s", arg)
	}
	return s, nil
}
