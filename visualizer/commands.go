package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	mapvis "github.com/alice-fit/mapvisualizer_go/pkg"
	"github.com/spf13/cobra"
)

type app struct {
	configFile  string
	verbose     bool
	mappingsDir string
	mappingDB   bool
	config      mapvis.Configuration
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "mapvisualizer",
		Short:         "Visualize FIT detector ageing factors on the detector layout",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "Configuration file path (JSON or YAML)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Verbose output")
	root.PersistentFlags().StringVar(&a.mappingsDir, "mappings-dir", "", "Directory with mapping CSV files (default: built-in tables)")
	root.PersistentFlags().BoolVar(&a.mappingDB, "mapping-db", false, "Read mappings from the detector_mapping table")

	root.AddCommand(
		newRenderCmd(a),
		newValidateCmd(a),
		newGenerateCmd(a),
		newMappingsCmd(a),
		newPreviewCmd(a),
		newWatchCmd(a),
		newExportCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	config, err := LoadConfiguration(a.configFile)
	if err != nil {
		return fmt.Errorf("error reading configuration file: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("verbose") && a.verbose {
		config.Verbosity = max(config.Verbosity, 2)
	}
	if flags.Changed("mappings-dir") {
		config.MappingsDir = a.mappingsDir
	}
	if flags.Changed("mapping-db") {
		config.UseDB = a.mappingDB
	}
	a.config = config

	mapvis.SetConfiguration(config)
	mapvis.SetLogger(logger)
	if config.Verbosity > 0 {
		if a.configFile != "" {
			message := fmt.Sprintf("Reading configuration file: %s", a.configFile)
			logger.Info(message, "main")
		}
		printConfiguration(config, logger)
	}
	return nil
}

// registry picks the mapping source: the database, a directory or the
// tables compiled into the binary. The returned function releases it.
func (a *app) registry() (*mapvis.Registry, func(), error) {
	noop := func() {}
	switch {
	case a.config.UseDB:
		db, err := mapvis.ConnectToDatabase(a.config.User, a.config.Passwd, a.config.Host, a.config.DBName)
		if err != nil {
			return nil, noop, fmt.Errorf("error connecting to database: %w", err)
		}
		registry, err := mapvis.NewRegistry(&mapvis.DatabaseSource{DB: db})
		if err != nil {
			db.Close()
			return nil, noop, err
		}
		return registry, func() { db.Close() }, nil
	case a.config.MappingsDir != "":
		registry, err := mapvis.NewRegistry(mapvis.DirectorySource{Dir: a.config.MappingsDir})
		return registry, noop, err
	default:
		registry, err := mapvis.NewRegistry(mapvis.EmbeddedSource{})
		return registry, noop, err
	}
}

func (a *app) mapping(detector string) (*mapvis.Mapping, error) {
	if detector == "" {
		return nil, errors.New("a detector is required (--detector)")
	}
	registry, release, err := a.registry()
	defer release()
	if err != nil {
		return nil, err
	}
	return registry.Get(detector)
}

func (a *app) loadDocument() (*mapvis.Document, error) {
	if a.config.FileIn == "" {
		return nil, errors.New("an input file is required (--input)")
	}
	doc, _, err := mapvis.LoadFromFile(a.config.FileIn)
	return doc, err
}

// renderFlags are shared by the commands that build a grid. Values only
// override the configuration when the flag is given.
type renderFlags struct {
	input       string
	output      string
	detector    string
	date        string
	factor      string
	colormap    string
	colors      []string
	vmin        float64
	vmax        float64
	dpi         int
	gif         bool
	gifDuration int
	gifLoop     int
}

func (f *renderFlags) addGridFlags(cmd *cobra.Command) {
	defaults := mapvis.DefaultConfiguration()
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "Input JSON file with ageing factors")
	cmd.Flags().StringVarP(&f.detector, "detector", "d", "", "Detector mapping name (e.g. fta, ftc)")
	cmd.Flags().StringVar(&f.date, "date", "", "Dataset date (default: last dataset)")
	cmd.Flags().StringVar(&f.factor, "factor", defaults.FactorType, "Ageing factor kind")
	cmd.Flags().StringVar(&f.colormap, "colormap", defaults.Colormap, "Colormap name, \"_r\" suffix reverses it")
	cmd.Flags().StringSliceVar(&f.colors, "colors", nil, "Hex colours for the custom colormap")
	cmd.Flags().Float64Var(&f.vmin, "vmin", defaults.VMin, "Value mapped to the low end of the colormap")
	cmd.Flags().Float64Var(&f.vmax, "vmax", defaults.VMax, "Value mapped to the high end of the colormap")
}

func (f *renderFlags) addOutputFlags(cmd *cobra.Command, usage string) {
	cmd.Flags().StringVarP(&f.output, "output", "o", "", usage)
}

func (f *renderFlags) addImageFlags(cmd *cobra.Command) {
	defaults := mapvis.DefaultConfiguration()
	cmd.Flags().IntVar(&f.dpi, "dpi", defaults.DPI, "Image resolution")
	cmd.Flags().BoolVar(&f.gif, "gif", false, "Render every date into an animated GIF")
	cmd.Flags().IntVar(&f.gifDuration, "gif-duration", defaults.GIFDuration, "GIF frame duration in milliseconds")
	cmd.Flags().IntVar(&f.gifLoop, "gif-loop", defaults.GIFLoop, "GIF loop count (0 loops forever)")
}

func (f *renderFlags) apply(cmd *cobra.Command, config *mapvis.Configuration) {
	flags := cmd.Flags()
	set := func(name string, apply func()) {
		if flags.Lookup(name) != nil && flags.Changed(name) {
			apply()
		}
	}
	set("input", func() { config.FileIn = f.input })
	set("output", func() { config.FileOut = f.output })
	set("detector", func() { config.Detector = f.detector })
	set("date", func() { config.Date = f.date })
	set("factor", func() { config.FactorType = f.factor })
	set("colormap", func() { config.Colormap = f.colormap })
	set("colors", func() { config.CustomColors = f.colors })
	set("vmin", func() { config.VMin = f.vmin })
	set("vmax", func() { config.VMax = f.vmax })
	set("dpi", func() { config.DPI = f.dpi })
	set("gif", func() { config.GIF = f.gif })
	set("gif-duration", func() { config.GIFDuration = f.gifDuration })
	set("gif-loop", func() { config.GIFLoop = f.gifLoop })
	if len(config.CustomColors) > 0 && !flags.Changed("colormap") && config.Colormap == mapvis.DefaultConfiguration().Colormap {
		config.Colormap = mapvis.CustomColormap
	}
	mapvis.SetConfiguration(*config)
}

func newRenderCmd(a *app) *cobra.Command {
	f := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the ageing factor map to an image or animated GIF",
		RunE: func(cmd *cobra.Command, args []string) error {
			f.apply(cmd, &a.config)
			return a.render(cmd.OutOrStdout(), cmd.Flags().Changed("dpi"))
		},
	}
	f.addGridFlags(cmd)
	f.addOutputFlags(cmd, "Output image (png, jpg, svg, pdf, tif) or GIF file")
	f.addImageFlags(cmd)
	return cmd
}

// render writes a still image or, with GIF enabled, one frame per date.
// GIF frames use a lower resolution unless a DPI was requested explicitly.
func (a *app) render(out io.Writer, explicitDPI bool) error {
	config := a.config
	if config.FileOut == "" {
		return errors.New("an output file is required (--output)")
	}
	doc, err := a.loadDocument()
	if err != nil {
		return err
	}
	mapping, err := a.mapping(config.Detector)
	if err != nil {
		return err
	}

	if config.GIF {
		anim := mapvis.AnimationOptions{DurationMs: config.GIFDuration, Loop: config.GIFLoop, DPI: mapvis.DefaultFrameDPI}
		if explicitDPI {
			anim.DPI = config.DPI
		}
		n, err := mapvis.SaveGIF(config.FileOut, doc, mapping, config.Options(), anim)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Animated GIF saved to: %s (%d frames)\n", config.FileOut, n)
		return nil
	}

	grid, err := mapvis.BuildGrid(doc, mapping, config.Options())
	if err != nil {
		return err
	}
	path, err := mapvis.NewFigure(grid).Save(config.FileOut, config.DPI)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Visualization saved to: %s (%d/%d cells with data)\n", path, grid.Populated(), len(grid.Cells))
	return nil
}

func newValidateCmd(a *app) *cobra.Command {
	f := &renderFlags{}
	var summary bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check an ageing factor file against the expected layout",
		RunE: func(cmd *cobra.Command, args []string) error {
			f.apply(cmd, &a.config)
			return a.validate(cmd.OutOrStdout(), summary)
		},
	}
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "Input JSON file with ageing factors")
	cmd.Flags().BoolVar(&summary, "summary", false, "Print a summary of the datasets")
	return cmd
}

func (a *app) validate(out io.Writer, summary bool) error {
	if a.config.FileIn == "" {
		return errors.New("an input file is required (--input)")
	}
	doc, report, err := mapvis.LoadFromFile(a.config.FileIn)
	if report != nil {
		for _, issue := range report.Errors {
			fmt.Fprintf(out, "error: %s\n", issue)
		}
		for _, issue := range report.Warnings {
			fmt.Fprintf(out, "warning: %s\n", issue)
		}
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s is valid (%d warnings)\n", a.config.FileIn, len(report.Warnings))

	if summary {
		s := mapvis.Summarize(doc)
		fmt.Fprintf(out, "Datasets: %d\n", s.TotalDatasets)
		fmt.Fprintf(out, "Dates: %s\n", strings.Join(s.Dates, ", "))
		fmt.Fprintf(out, "Modules: %s (%d unique)\n", strings.Join(s.Modules, ", "), s.UniqueModules)
		fmt.Fprintf(out, "Channels: %d\n", s.TotalChannels)
		fmt.Fprintf(out, "Parameters: %s\n", strings.Join(mapvis.AvailableParameters(doc), ", "))
	}
	return nil
}

func newGenerateCmd(a *app) *cobra.Command {
	var output string
	opts := mapvis.ExampleOptions{Detector: "fta", Datasets: 5, Modules: 3, Channels: 12}
	var seed int64
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic ageing factor file",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Seed = uint64(seed)
			if !cmd.Flags().Changed("seed") {
				opts.Seed = uint64(time.Now().UnixNano())
			}
			return generate(cmd.OutOrStdout(), output, opts)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output JSON file (default: stdout)")
	cmd.Flags().StringVarP(&opts.Detector, "detector", "d", opts.Detector, "Detector type (fta or ftc)")
	cmd.Flags().IntVar(&opts.Datasets, "datasets", opts.Datasets, "Number of datasets")
	cmd.Flags().IntVar(&opts.Modules, "modules", opts.Modules, "Modules per dataset")
	cmd.Flags().IntVar(&opts.Channels, "channels", opts.Channels, "Channels per module")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (default: time based)")
	return cmd
}

func generate(out io.Writer, output string, opts mapvis.ExampleOptions) error {
	doc, err := mapvis.GenerateExample(opts)
	if err != nil {
		return err
	}
	if output == "" || output == "-" {
		return mapvis.WriteDocument(out, doc)
	}

	file, err := os.Create(output)
	if err != nil {
		return &mapvis.ErrOpenFile{Filename: output, Err: err}
	}
	if err := mapvis.WriteDocument(file, doc); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Example data written to: %s\n", output)
	return nil
}

func newMappingsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mappings",
		Short: "List the available detector mappings",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, release, err := a.registry()
			defer release()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCHANNELS\tSOURCE")
			for _, info := range registry.Available() {
				fmt.Fprintf(w, "%s\t%d\t%s\n", info.Name, info.ChannelCount, info.Source)
			}
			return w.Flush()
		},
	}
}

func newPreviewCmd(a *app) *cobra.Command {
	f := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show the coloured grid in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			f.apply(cmd, &a.config)
			doc, err := a.loadDocument()
			if err != nil {
				return err
			}
			mapping, err := a.mapping(a.config.Detector)
			if err != nil {
				return err
			}
			grid, err := mapvis.BuildGrid(doc, mapping, a.config.Options())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderPreview(grid))
			return nil
		},
	}
	f.addGridFlags(cmd)
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	f := &renderFlags{}
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-render the output every time the input file changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			f.apply(cmd, &a.config)
			explicitDPI := cmd.Flags().Changed("dpi")
			out := cmd.OutOrStdout()
			if err := a.render(out, explicitDPI); err != nil {
				logger.Error(err.Error())
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			message := fmt.Sprintf("Watching %s, press Ctrl+C to stop", a.config.FileIn)
			logger.Info(message, "watch")
			watcher := NewWatcher(a.config.FileIn, debounce, func() error {
				return a.render(out, explicitDPI)
			})
			return watcher.Run(ctx)
		},
	}
	f.addGridFlags(cmd)
	f.addOutputFlags(cmd, "Output image or GIF file")
	f.addImageFlags(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", 300*time.Millisecond, "Quiet period before re-rendering")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	f := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every dated grid to an HDF5 file",
		RunE: func(cmd *cobra.Command, args []string) error {
			f.apply(cmd, &a.config)
			if a.config.FileOut == "" {
				return errors.New("an output file is required (--output)")
			}
			if ext := filepath.Ext(a.config.FileOut); ext != ".h5" && ext != ".hdf5" {
				message := fmt.Sprintf("Output %s does not have an HDF5 extension", a.config.FileOut)
				logger.Warn(message, "export")
			}
			doc, err := a.loadDocument()
			if err != nil {
				return err
			}
			mapping, err := a.mapping(a.config.Detector)
			if err != nil {
				return err
			}
			n, err := mapvis.ExportHDF5(a.config.FileOut, doc, mapping, a.config.Options())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "HDF5 file saved to: %s (%d frames)\n", a.config.FileOut, n)
			return nil
		},
	}
	f.addGridFlags(cmd)
	f.addOutputFlags(cmd, "Output HDF5 file")
	return cmd
}
