// Command featconv converts feature data between GML, ESRI shapefiles,
// GeoJSON, FlatGeobuf and WKT listings, and can serve the result over
// HTTP.
//
// Usage:
//
//	featconv [-config file] [-from format] [-to format] [-serve] input output
//
// Formats are taken from the file extensions unless given explicitly.
// GML, shapefile and FlatGeobuf can be read; every format can be written.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "featconv:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("featconv", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML configuration file")
	from := fs.String("from", "", "input format (gml, shp, fgb)")
	to := fs.String("to", "", "output format (gml, shp, geojson, fgb, wkt)")
	serve := fs.Bool("serve", false, "serve the output directory over HTTP after converting")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return errors.New("expected input and output paths")
	}
	input, output := fs.Arg(0), fs.Arg(1)

	cfg := DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = LoadConfigFile(*configPath); err != nil {
			return err
		}
	}
	logger, err := cfg.Logger(stderr)
	if err != nil {
		return err
	}

	inFormat, err := pickFormat(*from, input)
	if err != nil {
		return err
	}
	outFormat, err := pickFormat(*to, output)
	if err != nil {
		return err
	}

	c := &converter{cfg: cfg, logger: logger, stdout: stdout}
	features, err := c.read(input, inFormat)
	if err != nil {
		return fmt.Errorf("read %s: %w", input, err)
	}
	if err := c.write(output, outFormat, features); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	logger.Info("converted", "input", input, "output", output, "from", inFormat, "to", outFormat, "features", len(members(features)))

	if *serve && output != "-" {
		return serveDir(ctx, cfg.Serve.Addr, output, logger)
	}
	return nil
}

func pickFormat(explicit, path string) (Format, error) {
	if explicit != "" {
		return parseFormat(explicit)
	}
	return formatOf(path)
}
