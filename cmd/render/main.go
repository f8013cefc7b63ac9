package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/wudi/reportkit/observability"
	"github.com/wudi/reportkit/report"
	"github.com/wudi/reportkit/resources"
	"github.com/wudi/reportkit/template"
	"github.com/wudi/reportkit/writer"
)

type options struct {
	templatePath string
	dataPath     string
	outPath      string
	baseDir      string
	title        string
	uncompressed bool
	verbose      bool
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "render: %v\n", err)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "render: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: go run ./cmd/render [flags] <template.json>\n")
		flag.PrintDefaults()
	}
	flag.StringVar(&opts.dataPath, "data", "", "JSON file bound as the report data")
	flag.StringVar(&opts.outPath, "out", "report.pdf", "Output PDF path")
	flag.StringVar(&opts.baseDir, "base", "", "Directory relative font and image paths resolve against (default: template directory)")
	flag.StringVar(&opts.title, "title", "", "Override the document title")
	flag.BoolVar(&opts.uncompressed, "uncompressed", false, "Write page content streams without Flate compression")
	flag.BoolVar(&opts.verbose, "v", false, "Log page placement at debug level")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return options{}, fmt.Errorf("missing template path")
	}
	opts.templatePath = flag.Arg(0)
	if opts.baseDir == "" {
		opts.baseDir = filepath.Dir(opts.templatePath)
	}
	return opts, nil
}

func run(ctx context.Context, opts options) error {
	tpl, err := template.LoadFile(opts.templatePath)
	if err != nil {
		return err
	}
	var data any
	if opts.dataPath != "" {
		raw, err := os.ReadFile(opts.dataPath)
		if err != nil {
			return fmt.Errorf("read data: %w", err)
		}
		if err := json.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("decode data %s: %w", opts.dataPath, err)
		}
	}

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := observability.NewSlog(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := writer.DefaultConfig
	cfg.Compress = !opts.uncompressed
	out, err := report.Render(ctx, tpl, data,
		report.WithLogger(logger),
		report.WithFontLoader(&resources.SourceLoader{BaseDir: opts.baseDir}),
		report.WithInfo(template.DocumentInfo{Title: opts.title}),
		report.WithWriterConfig(cfg),
	)
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.outPath, out.Bytes, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.outPath, err)
	}
	fmt.Printf("%s: %d pages, %d bytes\n", opts.outPath, out.PageCount, len(out.Bytes))
	return nil
}
