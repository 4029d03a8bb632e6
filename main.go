package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dacsang97/mdbind/internal/config"
	"github.com/dacsang97/mdbind/internal/downloader"
	mdhttp "github.com/dacsang97/mdbind/internal/http"
	"github.com/dacsang97/mdbind/internal/models"
	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "[-] %v\n", err)
	}
	base, warnings := config.FromEnv()
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "[-] warning: %v\n", w)
	}

	app := &cli.App{
		Name:    "mdbind",
		Usage:   "Bind MangaDex chapters into a single PDF.",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:      "bind",
				Usage:     "Download the selected chapters of a work and bind their pages.",
				ArgsUsage: "<work-id-or-url>",
				Flags:     bindFlags(base),
				Action: func(c *cli.Context) error {
					return runBindAction(c, base)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func bindFlags(base config.Config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "chapter",
			Aliases: []string{"c"},
			Usage:   `Chapters to bind, e.g. "5", "1,4,9" or "3-8".`,
			Value:   base.Selector,
		},
		&cli.StringFlag{
			Name:    "language",
			Aliases: []string{"l"},
			Usage:   "Translation language code.",
			Value:   base.Language,
			EnvVars: []string{config.EnvLanguage},
		},
		&cli.BoolFlag{
			Name:    "fast",
			Aliases: []string{"f"},
			Usage:   "Use the compressed (data-saver) page images.",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output PDF file, or directory for the default name.",
			Value:   base.Output,
			EnvVars: []string{config.EnvOutput},
		},
		&cli.StringFlag{
			Name:  "title",
			Usage: "Document title, also used for the default file name.",
		},
		&cli.BoolFlag{
			Name:  "dump",
			Usage: "Save the page images instead of binding a PDF.",
		},
		&cli.IntFlag{
			Name:  "prefetch",
			Usage: "Number of page images downloaded ahead of assembly.",
			Value: base.Prefetch,
		},
		&cli.BoolFlag{
			Name:  "no-prefilter",
			Usage: "Ask for the full catalog instead of the selected language only.",
		},
		&cli.StringFlag{
			Name:    "api",
			Usage:   "MangaDex API base URL.",
			Value:   base.APIBase,
			EnvVars: []string{config.EnvAPI},
		},
		&cli.Float64Flag{
			Name:    "rate",
			Usage:   "Maximum API requests per second, 0 disables pacing.",
			Value:   base.RateLimit,
			EnvVars: []string{config.EnvRate},
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Usage:   "Per-request timeout.",
			Value:   base.Timeout,
			EnvVars: []string{config.EnvTimeout},
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Log every request and page.",
		},
		&cli.Float64Flag{
			Name:  "px-to-mm",
			Usage: "Page size in millimetres per image pixel.",
			Value: base.Geometry.PixelToMM,
		},
		&cli.Float64Flag{
			Name:  "image-scale",
			Usage: "Scale applied to images placed at the placement density.",
			Value: base.Geometry.ImageScale,
		},
		&cli.Float64Flag{
			Name:  "placement-dpi",
			Usage: "Density images are placed at.",
			Value: base.Geometry.PlacementDPI,
		},
	}
}

func runBindAction(c *cli.Context, base config.Config) error {
	if c.Args().Len() != 1 {
		return cli.Exit("error: work identifier or URL is required", 1)
	}

	cfg := base
	cfg.WorkID = c.Args().First()
	cfg.Selector = c.String("chapter")
	cfg.Language = c.String("language")
	cfg.Output = c.String("output")
	cfg.Title = c.String("title")
	cfg.Dump = c.Bool("dump")
	cfg.Prefetch = c.Int("prefetch")
	cfg.Prefilter = !c.Bool("no-prefilter")
	cfg.Verbose = c.Bool("verbose")
	cfg.APIBase = c.String("api")
	cfg.RateLimit = c.Float64("rate")
	cfg.Timeout = c.Duration("timeout")
	cfg.Geometry.PixelToMM = c.Float64("px-to-mm")
	cfg.Geometry.ImageScale = c.Float64("image-scale")
	cfg.Geometry.PlacementDPI = c.Float64("placement-dpi")
	if c.Bool("fast") {
		cfg.Quality = models.QualityCompressed
	}

	if err := cfg.Validate(); err != nil {
		return cli.Exit(fmt.Sprintf("error: invalid arguments: %v", err), 1)
	}

	opts := cfg.ClientOptions()
	if cfg.Verbose {
		opts.Trace = os.Stdout
	}
	client := mdhttp.NewClient(opts)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	dl := downloader.NewDownloader(cfg, client)
	if err := dl.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return cli.Exit("error: interrupted, nothing was written", 130)
		}
		return cli.Exit("error: "+err.Error(), 1)
	}

	return nil
}
