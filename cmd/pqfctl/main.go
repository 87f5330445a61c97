// Copyright (c) Facebook, Inc. and its affiliates. All Rights Reserved

package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/go-pqf/pqf"
	"github.com/go-pqf/pqf/internal/check"
	"github.com/go-pqf/pqf/internal/randhash"
	"github.com/go-pqf/pqf/internal/store"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "pqfctl",
		Usage: "operate on a persistent quotient filter pool",
		Commands: []*cli.Command{
			initCommand(),
			insertCommand(),
			lookupCommand(),
			removeCommand(),
			mergeCommand(),
			iterateCommand(),
			describeCommand(),
			checkCommand(),
			snapshotLookupCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func poolFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "pool",
			Aliases:  []string{"p"},
			Usage:    "path to the pool file",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "name",
			Aliases: []string{"n"},
			Value:   "default",
			Usage:   "name the filter is bound to in the pool's root object",
		},
	}
}

func openPoolAndRoot(c *cli.Context) (*store.Pool, *store.Root, error) {
	pool, err := store.Open(c.String("pool"))
	if err != nil {
		return nil, nil, fmt.Errorf("open pool: %w", err)
	}
	root, err := store.OpenRoot(pool)
	if err != nil {
		_ = pool.Close()
		return nil, nil, fmt.Errorf("open root: %w", err)
	}
	return pool, root, nil
}

func initCommand() *cli.Command {
	flags := append(poolFlags(),
		&cli.UintFlag{Name: "q", Usage: "quotient bits", Required: true},
		&cli.UintFlag{Name: "r", Usage: "remainder bits", Value: 8},
	)
	return &cli.Command{
		Name:  "init",
		Usage: "create a new filter in a pool",
		Flags: flags,
		Action: func(c *cli.Context) error {
			pool, root, err := openPoolAndRoot(c)
			if err != nil {
				return err
			}
			defer pool.Close()

			f, err := pqf.Init(pool, root, c.String("name"), uint(c.Uint("q")), uint(c.Uint("r")))
			if err != nil {
				return fmt.Errorf("init: %w", err)
			}
			f.DebugDump(false)
			return nil
		},
	}
}

func insertCommand() *cli.Command {
	flags := append(poolFlags(),
		&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "file to read terms from (default stdin)"},
	)
	return &cli.Command{
		Name:  "insert",
		Usage: "insert newline-separated terms read from a file or stdin",
		Flags: flags,
		Action: func(c *cli.Context) error {
			pool, root, err := openPoolAndRoot(c)
			if err != nil {
				return err
			}
			defer pool.Close()

			f, err := pqf.Open(pool, root, c.String("name"))
			if err != nil {
				return fmt.Errorf("insert: %w", err)
			}

			var reader io.Reader = os.Stdin
			if c.IsSet("input") {
				in, err := os.Open(c.String("input"))
				if err != nil {
					return err
				}
				defer in.Close()
				reader = in
			}

			inserted, rejected := 0, 0
			scanner := bufio.NewScanner(reader)
			for scanner.Scan() {
				term := strings.TrimSpace(scanner.Text())
				if term == "" {
					continue
				}
				if f.Insert(randhash.Murmur64([]byte(term))) {
					inserted++
				} else {
					rejected++
				}
			}
			if err := scanner.Err(); err != nil {
				return err
			}
			log.Printf("inserted %d terms (%d rejected: filter full)", inserted, rejected)
			return nil
		},
	}
}

func lookupCommand() *cli.Command {
	return &cli.Command{
		Name:  "lookup",
		Usage: "test whether a term may be a member of the filter",
		Flags: poolFlags(),
		Action: func(c *cli.Context) error {
			pool, root, err := openPoolAndRoot(c)
			if err != nil {
				return err
			}
			defer pool.Close()

			f, err := pqf.Open(pool, root, c.String("name"))
			if err != nil {
				return fmt.Errorf("lookup: %w", err)
			}

			term := strings.Join(c.Args().Slice(), " ")
			found := f.MayContain(randhash.Murmur64([]byte(term)))
			fmt.Printf("lookup %q: %t\n", term, found)
			return nil
		},
	}
}

func removeCommand() *cli.Command {
	return &cli.Command{
		Name:  "remove",
		Usage: "remove a term from the filter, if present",
		Flags: poolFlags(),
		Action: func(c *cli.Context) error {
			pool, root, err := openPoolAndRoot(c)
			if err != nil {
				return err
			}
			defer pool.Close()

			f, err := pqf.Open(pool, root, c.String("name"))
			if err != nil {
				return fmt.Errorf("remove: %w", err)
			}

			term := strings.Join(c.Args().Slice(), " ")
			// Remove rejects bits above q+r, so pass only the fingerprint bits.
			fp := randhash.Murmur64([]byte(term)) & (uint64(1)<<(f.QBits()+f.RBits()) - 1)
			removed := f.Remove(fp)
			fmt.Printf("remove %q: %t\n", term, removed)
			return nil
		},
	}
}

func mergeCommand() *cli.Command {
	return &cli.Command{
		Name:  "merge",
		Usage: "merge two named filters in a pool into a third",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "pool", Aliases: []string{"p"}, Required: true},
			&cli.StringFlag{Name: "a", Required: true, Usage: "name of the first input filter"},
			&cli.StringFlag{Name: "b", Required: true, Usage: "name of the second input filter"},
			&cli.StringFlag{Name: "out", Required: true, Usage: "name to bind the merged filter to"},
		},
		Action: func(c *cli.Context) error {
			pool, root, err := openPoolAndRoot(c)
			if err != nil {
				return err
			}
			defer pool.Close()

			fa, err := pqf.Open(pool, root, c.String("a"))
			if err != nil {
				return fmt.Errorf("merge: open %q: %w", c.String("a"), err)
			}
			fb, err := pqf.Open(pool, root, c.String("b"))
			if err != nil {
				return fmt.Errorf("merge: open %q: %w", c.String("b"), err)
			}

			out, err := pqf.Merge(pool, root, c.String("out"), fa, fb)
			if err != nil {
				return fmt.Errorf("merge: %w", err)
			}
			out.DebugDump(false)
			return nil
		},
	}
}

func iterateCommand() *cli.Command {
	return &cli.Command{
		Name:  "iterate",
		Usage: "print every fingerprint stored in the filter",
		Flags: poolFlags(),
		Action: func(c *cli.Context) error {
			pool, root, err := openPoolAndRoot(c)
			if err != nil {
				return err
			}
			defer pool.Close()

			f, err := pqf.Open(pool, root, c.String("name"))
			if err != nil {
				return fmt.Errorf("iterate: %w", err)
			}

			it := pqf.NewIterator(f)
			count := 0
			for !it.Done() {
				fmt.Println(it.Next())
				count++
			}
			log.Printf("%d fingerprints", count)
			return nil
		},
	}
}

func describeCommand() *cli.Command {
	return &cli.Command{
		Name:  "describe",
		Usage: "print a filter's header and slot-array summary",
		Flags: append(poolFlags(), &cli.BoolFlag{Name: "full", Usage: "dump every non-empty slot"}),
		Action: func(c *cli.Context) error {
			pool, root, err := openPoolAndRoot(c)
			if err != nil {
				return err
			}
			defer pool.Close()

			f, err := pqf.Open(pool, root, c.String("name"))
			if err != nil {
				return fmt.Errorf("describe: %w", err)
			}
			f.DebugDump(c.Bool("full"))
			return nil
		},
	}
}

func snapshotLookupCommand() *cli.Command {
	return &cli.Command{
		Name:  "snapshot-lookup",
		Usage: "test membership against a pool's last checkpoint without taking its writer lock",
		Flags: poolFlags(),
		Action: func(c *cli.Context) error {
			snap, err := pqf.OpenSnapshot(c.String("pool"), c.String("name"))
			if err != nil {
				return fmt.Errorf("snapshot-lookup: %w", err)
			}

			term := strings.Join(c.Args().Slice(), " ")
			found := snap.MayContain(randhash.Murmur64([]byte(term)))
			fmt.Printf("snapshot lookup %q: %t (as of last checkpoint, %d entries)\n", term, found, snap.Entries())
			return nil
		},
	}
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "walk a filter's slot array and report invariant violations",
		Flags: poolFlags(),
		Action: func(c *cli.Context) error {
			pool, root, err := openPoolAndRoot(c)
			if err != nil {
				return err
			}
			defer pool.Close()

			f, err := pqf.Open(pool, root, c.String("name"))
			if err != nil {
				return fmt.Errorf("check: %w", err)
			}

			violations := check.Walk(f)
			if len(violations) == 0 {
				fmt.Println("ok: no invariant violations found")
				return nil
			}
			for _, v := range violations {
				fmt.Println(v.String())
			}
			return fmt.Errorf("check: %d violations found", len(violations))
		},
	}
}
