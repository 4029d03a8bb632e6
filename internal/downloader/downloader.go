package downloader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dacsang97/mdbind/internal/catalog"
	"github.com/dacsang97/mdbind/internal/config"
	"github.com/dacsang97/mdbind/internal/dump"
	"github.com/dacsang97/mdbind/internal/models"
	"github.com/dacsang97/mdbind/internal/pdf"
	"github.com/dacsang97/mdbind/internal/resolver"
	"github.com/dacsang97/mdbind/pkg/utils"
	"github.com/google/renameio/v2"
	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"
)

// Service is the remote side of a run. *http.Client implements it.
type Service interface {
	catalog.AggregateSource
	resolver.MetaSource
	GetChapterPages(ctx context.Context, chapterID string, quality models.Quality) ([]string, error)
	GetBytes(ctx context.Context, url string) ([]byte, error)
}

// Downloader runs one catalog, resolve, fetch and bind pass
type Downloader struct {
	cfg    config.Config
	client Service
	out    io.Writer
}

// NewDownloader creates a Downloader writing progress to stdout. cfg is
// expected to be validated.
func NewDownloader(cfg config.Config, client Service) *Downloader {
	return &Downloader{
		cfg:    cfg,
		client: client,
		out:    os.Stdout,
	}
}

// SetOutput redirects progress lines
func (d *Downloader) SetOutput(w io.Writer) {
	d.out = w
}

func (d *Downloader) logf(format string, args ...any) {
	fmt.Fprintf(d.out, format, args...)
}

func (d *Downloader) verbosef(format string, args ...any) {
	if d.cfg.Verbose {
		d.logf(format, args...)
	}
}

// Run executes the whole pipeline. Errors are *models.PhaseError. Nothing is
// written unless every phase succeeds.
func (d *Downloader) Run(ctx context.Context) error {
	cfg := d.cfg

	d.logf("[*] Retrieving chapter catalog for %s...\n", cfg.WorkID)
	var languages []string
	if cfg.Prefilter {
		languages = []string{cfg.Language}
	}
	cat, err := catalog.Fetch(ctx, d.client, cfg.WorkID, languages)
	if err != nil {
		return models.InPhase(models.PhaseCatalog, err)
	}
	d.logf("[+] Catalog lists %d chapters\n", cat.Len())

	sel, warnings := resolver.ParseSelector(cfg.Selector)
	for _, w := range warnings {
		d.logf("[-] warning: %v\n", w)
	}

	d.logf("[*] Resolving chapters %s (%s)...\n", sel, cfg.Language)
	res, err := resolver.New(d.client, d.verbosef).Resolve(ctx, sel, cfg.Language, cat)
	if err != nil {
		return models.InPhase(models.PhaseResolve, err)
	}
	if len(res.Missing) > 0 {
		d.logf("[-] Not in catalog: %v\n", res.Missing)
	}
	if len(res.Skipped) > 0 {
		d.logf("[-] No %s translation for chapters %v\n", cfg.Language, res.Skipped)
	}
	d.logf("[+] Resolved chapters %v (%d metadata requests)\n", res.Numbers(), res.Fetches)

	pages, err := d.fetchPages(ctx, res)
	if err != nil {
		return models.InPhase(models.PhasePages, err)
	}

	if cfg.Dump {
		return d.dump(ctx, res, pages)
	}
	return d.bind(ctx, res, pages)
}

// fetchPages returns the page URLs of every resolved chapter, keyed by
// position in res.Chapters.
func (d *Downloader) fetchPages(ctx context.Context, res resolver.Result) ([][]string, error) {
	pages := make([][]string, len(res.Chapters))
	for i, ch := range res.Chapters {
		urls, err := d.client.GetChapterPages(ctx, ch.ChapterID, d.cfg.Quality)
		if err != nil {
			return nil, err
		}
		d.logf("[*] Chapter %d: %d pages (%s)\n", ch.Number, len(urls), d.cfg.Quality)
		pages[i] = urls
	}

	if lo.SumBy(pages, func(urls []string) int { return len(urls) }) == 0 {
		return nil, &models.EmptyResolutionError{Stage: "pages", Selector: d.cfg.Selector, Language: d.cfg.Language}
	}
	return pages, nil
}

func (d *Downloader) bind(ctx context.Context, res resolver.Result, pages [][]string) error {
	urls := lo.Flatten(pages)
	title := d.title(res)

	opts := []pdf.Option{
		pdf.WithGeometry(d.cfg.Geometry),
		pdf.WithTitle(title),
		pdf.WithPrefetch(d.cfg.Prefetch),
	}
	if d.cfg.Verbose {
		opts = append(opts, pdf.WithLogf(d.logf))
	} else {
		bar := progressbar.NewOptions(len(urls),
			progressbar.OptionSetWriter(d.out),
			progressbar.OptionSetDescription("[*] Binding pages"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(d.out)
			}),
		)
		opts = append(opts, pdf.WithProgress(func(done, _ int) {
			_ = bar.Set(done)
		}))
	}

	doc, err := pdf.NewBinder(d.client, opts...).Assemble(ctx, urls)
	if err != nil {
		return models.InPhase(models.PhaseBind, err)
	}

	path, err := d.outputPath(res)
	if err != nil {
		return models.InPhase(models.PhaseOutput, err)
	}
	if err := renameio.WriteFile(path, doc.Bytes, 0644); err != nil {
		return models.InPhase(models.PhaseOutput, utils.WrapError(err, "write "+path))
	}

	d.logf("[+] Done: %s (%d pages, %d KB)\n", path, len(doc.Pages), len(doc.Bytes)/1024)
	return nil
}

func (d *Downloader) dump(ctx context.Context, res resolver.Result, pages [][]string) error {
	dir := lo.Ternary(d.cfg.Output != "", d.cfg.Output, ".")

	total := 0
	for i, ch := range res.Chapters {
		label := fmt.Sprintf("ch%d", ch.Number)
		d.logf("[*] Saving %d pages for %s...\n", len(pages[i]), label)

		files, err := dump.Dump(ctx, d.client, pages[i], dir, label)
		if err != nil {
			return models.InPhase(models.PhaseDump, err)
		}
		for _, f := range files {
			d.verbosef("[+] Saved: %s\n", f)
		}
		total += len(files)
	}

	d.logf("[+] Done: %d images in %s\n", total, dir)
	return nil
}

// title is the document title: the configured one, or the default file stem
func (d *Downloader) title(res resolver.Result) string {
	if d.cfg.Title != "" {
		return d.cfg.Title
	}
	return strings.TrimSuffix(DefaultFilename(d.cfg.WorkID, "", res.Numbers()), ".pdf")
}

// outputPath resolves cfg.Output against the default file name. An existing
// directory or a path ending in a separator receives the default name.
func (d *Downloader) outputPath(res resolver.Result) (string, error) {
	name := DefaultFilename(d.cfg.WorkID, d.cfg.Title, res.Numbers())
	out := d.cfg.Output

	switch {
	case out == "":
		return name, nil
	case utils.IsDir(out) || strings.HasSuffix(out, string(filepath.Separator)) || strings.HasSuffix(out, "/"):
		if err := os.MkdirAll(out, 0755); err != nil {
			return "", utils.WrapError(err, "create output directory")
		}
		return filepath.Join(out, name), nil
	default:
		if dir := filepath.Dir(out); !utils.IsDir(dir) {
			return "", fmt.Errorf("output directory %s does not exist", dir)
		}
		return out, nil
	}
}

// DefaultFilename is "<title or work id> ch<first>-<last>.pdf", made safe
// for the file system.
func DefaultFilename(workID, title string, numbers []int) string {
	stem := lo.Ternary(strings.TrimSpace(title) != "", title, workID)
	if len(numbers) == 0 {
		return utils.EscapeFilename(stem) + ".pdf"
	}
	first, last := lo.Min(numbers), lo.Max(numbers)
	return utils.EscapeFilename(fmt.Sprintf("%s ch%d-%d", stem, first, last)) + ".pdf"
}
