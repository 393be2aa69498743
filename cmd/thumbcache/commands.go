package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/c2h5oh/datasize"
	flag "github.com/spf13/pflag"

	"github.com/meigma/thumbcache"
)

var (
	errUsage     = errors.New("wrong number of arguments")
	errNotCached = errors.New("not cached")
)

// command is a subcommand with its own flags.
type command struct {
	Flags *flag.FlagSet
	Usage string
	Short string
	Exec  func(c *thumbcache.Cache, stdout io.Writer, args []string) error
}

// Name returns the command name, the first word of Usage.
func (cmd *command) Name() string {
	name, _, _ := strings.Cut(cmd.Usage, " ")
	return name
}

// HelpLine returns the short help line for the usage listing.
func (cmd *command) HelpLine() string {
	return fmt.Sprintf("  %-36s %s", cmd.Usage, cmd.Short)
}

// Run parses flags and executes the command. Returns the exit code.
func (cmd *command) Run(c *thumbcache.Cache, stdout, stderr io.Writer, args []string) int {
	if cmd.Flags == nil {
		cmd.Flags = flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	}
	cmd.Flags.SetOutput(io.Discard)
	if err := cmd.Flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			cmd.printHelp(stdout)
			return 0
		}
		fmt.Fprintln(stderr, "error:", err)
		cmd.printHelp(stderr)
		return 1
	}
	if err := cmd.Exec(c, stdout, cmd.Flags.Args()); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		if errors.Is(err, errUsage) {
			cmd.printHelp(stderr)
		}
		return 1
	}
	return 0
}

func (cmd *command) printHelp(w io.Writer) {
	fmt.Fprintln(w, "Usage: thumbcache", cmd.Usage)
	fmt.Fprintln(w)
	fmt.Fprintln(w, cmd.Short)
	if cmd.Flags.HasFlags() {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Flags:")
		var buf strings.Builder
		cmd.Flags.SetOutput(&buf)
		cmd.Flags.PrintDefaults()
		cmd.Flags.SetOutput(io.Discard)
		fmt.Fprint(w, buf.String())
	}
}

var commandOrder = []string{"stats", "insert", "lookup", "invalidate", "clear", "bench"}

func commands() map[string]*command {
	cmds := []*command{
		statsCmd(),
		insertCmd(),
		lookupCmd(),
		invalidateCmd(),
		clearCmd(),
		benchCmd(),
	}
	m := make(map[string]*command, len(cmds))
	for _, cmd := range cmds {
		m[cmd.Name()] = cmd
	}
	return m
}

func statsCmd() *command {
	return &command{
		Usage: "stats",
		Short: "Show cache location, budget and usage",
		Exec: func(c *thumbcache.Cache, stdout io.Writer, args []string) error {
			if len(args) != 0 {
				return errUsage
			}
			s, err := c.Stats()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "dir\t%s\n", s.Dir)
			fmt.Fprintf(tw, "group\t%s\n", s.Group)
			fmt.Fprintf(tw, "thumbnail\t%dx%d\n", s.Width, s.Height)
			fmt.Fprintf(tw, "entries\t%d\n", s.Entries)
			fmt.Fprintf(tw, "size\t%s\n", datasize.ByteSize(s.Bytes).HumanReadable()) //nolint:gosec // sizes are never negative
			fmt.Fprintf(tw, "max size\t%s\n", datasize.ByteSize(s.MaxBytes).HumanReadable())
			return tw.Flush()
		},
	}
}

func insertCmd() *command {
	return &command{
		Usage: "insert <book-id> <timestamp> <file>",
		Short: "Store the contents of file as a book's thumbnail",
		Exec: func(c *thumbcache.Cache, stdout io.Writer, args []string) error {
			if len(args) != 3 {
				return errUsage
			}
			id, err := parseBookID(args[0])
			if err != nil {
				return err
			}
			ts, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid timestamp %q: %w", args[1], err)
			}
			data, err := os.ReadFile(args[2])
			if err != nil {
				return err
			}
			if err := c.Insert(id, ts, data); err != nil {
				return err
			}
			ok, err := c.Contains(id)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintf(stdout, "book %d: not stored (%d bytes exceeds the budget)\n", id, len(data))
				return nil
			}
			fmt.Fprintf(stdout, "book %d: stored %d bytes\n", id, len(data))
			return nil
		},
	}
}

func lookupCmd() *command {
	var out string
	fs := flag.NewFlagSet("lookup", flag.ContinueOnError)
	fs.StringVarP(&out, "output", "o", "", "write the thumbnail to this file")
	return &command{
		Flags: fs,
		Usage: "lookup <book-id> [-o file]",
		Short: "Look up a book's thumbnail",
		Exec: func(c *thumbcache.Cache, stdout io.Writer, args []string) error {
			if len(args) != 1 {
				return errUsage
			}
			id, err := parseBookID(args[0])
			if err != nil {
				return err
			}
			thumb, ok, err := c.Lookup(id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("book %d: %w", id, errNotCached)
			}
			if out != "" {
				if err := os.WriteFile(out, thumb.Data, 0o600); err != nil {
					return err
				}
			}
			fmt.Fprintf(stdout, "book %d: %d bytes, timestamp %s\n",
				id, len(thumb.Data), strconv.FormatFloat(thumb.Timestamp, 'f', -1, 64))
			return nil
		},
	}
}

func invalidateCmd() *command {
	return &command{
		Usage: "invalidate <book-id>...",
		Short: "Drop the thumbnails of the given books",
		Exec: func(c *thumbcache.Cache, _ io.Writer, args []string) error {
			if len(args) == 0 {
				return errUsage
			}
			ids := make([]int64, len(args))
			for i, a := range args {
				id, err := parseBookID(a)
				if err != nil {
					return err
				}
				ids[i] = id
			}
			return c.Invalidate(ids...)
		},
	}
}

func clearCmd() *command {
	return &command{
		Usage: "clear",
		Short: "Remove every cached thumbnail",
		Exec: func(c *thumbcache.Cache, _ io.Writer, args []string) error {
			if len(args) != 0 {
				return errUsage
			}
			return c.Clear()
		},
	}
}

func parseBookID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid book id %q", s)
	}
	return id, nil
}
