package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newKeysCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys [pattern]",
		Short: "List keys matching a glob pattern",
		Long: "List keys matching a glob pattern (default \"*\").\n" +
			"Use --page/--size for page-based or --skip/--take for offset-based listing.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := "*"
			if len(args) == 1 {
				pattern = args[0]
			}
			f := cmd.Flags()
			page, _ := f.GetInt("page")
			size, _ := f.GetInt("size")
			skip, _ := f.GetInt("skip")
			take, _ := f.GetInt("take")
			paged := f.Changed("page") || f.Changed("size")
			ranged := f.Changed("skip") || f.Changed("take")

			out := cmd.OutOrStdout()
			switch {
			case paged && ranged:
				return errors.New("use either --page/--size or --skip/--take")
			case paged:
				p, err := a.svc.KeysPage(cmd.Context(), pattern, page, size)
				if err != nil {
					return err
				}
				printKeys(cmd, p.Keys)
				fmt.Fprintf(out, "(page %d, %d of %d)\n", page, len(p.Keys), p.Total)
			case ranged:
				p, err := a.svc.KeysRange(cmd.Context(), pattern, skip, take)
				if err != nil {
					return err
				}
				printKeys(cmd, p.Keys)
				fmt.Fprintf(out, "(skip %d, %d of %d)\n", skip, len(p.Keys), p.Total)
			default:
				keys, err := a.svc.Keys(cmd.Context(), pattern)
				if err != nil {
					return err
				}
				sort.Strings(keys)
				printKeys(cmd, keys)
			}
			return nil
		},
	}
	cmd.Flags().Int("page", 0, "0-based page index")
	cmd.Flags().Int("size", 50, "page size")
	cmd.Flags().Int("skip", 0, "keys to skip")
	cmd.Flags().Int("take", 50, "keys to return")
	return cmd
}

func printKeys(cmd *cobra.Command, keys []string) {
	for _, k := range keys {
		fmt.Fprintln(cmd.OutOrStdout(), k)
	}
}

func newGetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print the raw value (or hash fields with --hash) stored under key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if hash, _ := cmd.Flags().GetBool("hash"); hash {
				m, err := a.svc.HashGetAll(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if len(m) == 0 {
					fmt.Fprintln(out, "(nil)")
					return nil
				}
				printSorted(cmd, m)
				return nil
			}
			raw, ok, err := a.svc.Store().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(out, "(nil)")
				return nil
			}
			fmt.Fprintln(out, string(raw))
			return nil
		},
	}
	cmd.Flags().Bool("hash", false, "read the key as a hash")
	return cmd
}

func newDelCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "del <key>...",
		Short: "Delete keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var n int
			for _, k := range args {
				ok, err := a.svc.Delete(cmd.Context(), k)
				if err != nil {
					return err
				}
				if ok {
					n++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d\n", n)
			return nil
		},
	}
}

func newDelPatternCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "del-pattern <pattern>",
		Short: "Delete every key matching a glob pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.svc.DeleteByPattern(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d\n", n)
			return nil
		},
	}
}

func newExistsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exists <key>",
		Short: "Report whether key exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := a.svc.Exists(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			return nil
		},
	}
}

func newInfoCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info [field]",
		Short: "Show backend server info",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if raw, _ := cmd.Flags().GetBool("raw"); raw {
				s, err := a.svc.RawInfo(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprint(out, s)
				return nil
			}
			m, err := a.svc.Info(cmd.Context())
			if err != nil {
				return err
			}
			if len(args) == 1 {
				v, ok := m[args[0]]
				if !ok {
					return fmt.Errorf("no info field %q", args[0])
				}
				fmt.Fprintln(out, v)
				return nil
			}
			printSorted(cmd, m)
			return nil
		},
	}
	cmd.Flags().Bool("raw", false, "print the unparsed info text")
	return cmd
}

func newFlushCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flush",
		Short: "Remove every key on every reachable endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return errors.New("flush removes every key; pass --yes to confirm")
			}
			if err := a.svc.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
	cmd.Flags().Bool("yes", false, "confirm the flush")
	return cmd
}

func printSorted(cmd *cobra.Command, m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", k, m[k])
	}
}
