// Command thumbcache inspects and maintains a thumbnail cache directory.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/c2h5oh/datasize"
	flag "github.com/spf13/pflag"

	"github.com/meigma/thumbcache"
	"github.com/meigma/thumbcache/internal/config"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type globals struct {
	configPath string
	location   string
	name       string
	maxSize    string
	minDiskMB  int
	width      int
	height     int
	group      string
	verbose    bool
}

func globalFlags(g *globals) *flag.FlagSet {
	fs := flag.NewFlagSet("thumbcache", flag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.StringVarP(&g.configPath, "config", "c", "", "JSONC config file")
	fs.StringVar(&g.location, "location", "", "parent directory of the cache")
	fs.StringVar(&g.name, "name", "", "cache directory name")
	fs.StringVar(&g.maxSize, "max-size", "", "byte budget (e.g. 512MB)")
	fs.IntVar(&g.minDiskMB, "min-disk-cache-mb", 0, "disable the cache at or below this budget")
	fs.IntVar(&g.width, "width", 0, "thumbnail width")
	fs.IntVar(&g.height, "height", 0, "thumbnail height")
	fs.StringVarP(&g.group, "group", "g", "", "group id")
	fs.BoolVarP(&g.verbose, "verbose", "v", false, "log debug messages")
	return fs
}

// resolve layers explicitly set flags over the config file.
func resolve(fs *flag.FlagSet, g *globals) (config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if fs.Changed("location") {
		cfg.Location = g.location
	}
	if fs.Changed("name") {
		cfg.Name = g.name
	}
	if fs.Changed("max-size") {
		var size datasize.ByteSize
		if err := size.UnmarshalText([]byte(g.maxSize)); err != nil {
			return config.Config{}, fmt.Errorf("--max-size: %w", err)
		}
		cfg.MaxSize = size
	}
	if fs.Changed("min-disk-cache-mb") {
		cfg.MinDiskCacheMB = g.minDiskMB
	}
	if fs.Changed("width") {
		cfg.ThumbnailWidth = g.width
	}
	if fs.Changed("height") {
		cfg.ThumbnailHeight = g.height
	}
	if fs.Changed("group") {
		cfg.GroupID = g.group
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	var g globals
	fs := globalFlags(&g)
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printUsage(stdout, fs)
			return 0
		}
		fmt.Fprintln(stderr, "error:", err)
		printUsage(stderr, fs)
		return 1
	}

	rest := fs.Args()
	if len(rest) == 0 {
		printUsage(stderr, fs)
		return 1
	}
	cmd, ok := commands()[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "error: unknown command %q\n", rest[0])
		printUsage(stderr, fs)
		return 1
	}

	cfg, err := resolve(fs, &g)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}

	level := slog.LevelWarn
	if g.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	c, err := thumbcache.New(append(cfg.Options(), thumbcache.WithLogger(logger))...)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}

	code := cmd.Run(c, stdout, stderr, rest[1:])
	if err := c.Shutdown(); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return code
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "Usage: thumbcache [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	cmds := commands()
	for _, name := range commandOrder {
		fmt.Fprintln(w, cmds[name].HelpLine())
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	var buf strings.Builder
	fs.SetOutput(&buf)
	fs.PrintDefaults()
	fs.SetOutput(io.Discard)
	fmt.Fprint(w, buf.String())
}
