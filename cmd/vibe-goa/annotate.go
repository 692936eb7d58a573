package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-goa/internal/annotate"
	"github.com/inodb/vibe-goa/internal/batch"
	"github.com/inodb/vibe-goa/internal/duckdb"
	"github.com/inodb/vibe-goa/internal/gaf"
	"github.com/inodb/vibe-goa/internal/obo"
	"github.com/inodb/vibe-goa/internal/results"
)

func newAnnotateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "annotate [paths...]",
		Short: "Annotate result tables with GO biological-process terms",
		Long: `Annotate DESeq2-style result CSVs. Each directory argument contributes its
*.csv files; file arguments are used as is. For every input, significant genes
are split into down_regulated, up_regulated and both sheets, annotated, and
written to <dir>_ANNO/<name>_ANNO.xlsx.

With no arguments the directories in annotate.inputs are used.`,
		Example: `  vibe-goa annotate Hyperoxia/ Mutant/
  vibe-goa annotate --padj 0.01 --log2fc 2 results.csv
  vibe-goa annotate --duckdb annotations.duckdb --plot Hyperoxia/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnnotate(cmd.OutOrStdout(), args)
		},
	}

	f := cmd.Flags()
	f.Float64("padj", 0.05, "Keep genes with padj below this")
	f.Float64("log2fc", 1, "Keep genes with |log2FoldChange| above this")
	f.IntP("workers", "j", 1, "Annotation workers (1 = sequential)")
	f.Bool("plot", false, "Write a volcano plot next to each workbook")
	f.String("duckdb", "", "Record annotated rows in this DuckDB database")

	_ = viper.BindPFlag("annotate.padj", f.Lookup("padj"))
	_ = viper.BindPFlag("annotate.log2fc", f.Lookup("log2fc"))
	_ = viper.BindPFlag("annotate.workers", f.Lookup("workers"))
	_ = viper.BindPFlag("output.plot", f.Lookup("plot"))
	_ = viper.BindPFlag("output.duckdb", f.Lookup("duckdb"))

	return cmd
}

func runAnnotate(w io.Writer, args []string) error {
	inputs := args
	if len(inputs) == 0 {
		inputs = viper.GetStringSlice("annotate.inputs")
	}
	if len(inputs) == 0 {
		return &usageError{errors.New("no input paths given and annotate.inputs is not set")}
	}

	files, err := batch.Discover(inputs)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no result files found in %v", inputs)
	}

	ann, refs, err := loadAnnotator()
	if err != nil {
		return err
	}

	p := batch.NewProcessor(ann)
	p.SetLogger(logger)
	p.SetThresholds(results.Thresholds{
		Padj:   viper.GetFloat64("annotate.padj"),
		Log2FC: viper.GetFloat64("annotate.log2fc"),
	})
	p.SetWorkers(viper.GetInt("annotate.workers"))
	p.SetPlot(viper.GetBool("output.plot"))

	var store *duckdb.Store
	if dbPath := viper.GetString("output.duckdb"); dbPath != "" {
		store, err = duckdb.Open(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		p.SetStore(store)
	}

	sum, runErr := p.Run(files)
	if store != nil {
		if err := recordReferences(store, sum, refs); err != nil {
			return err
		}
	}
	if err := printRunSummary(w, sum); err != nil {
		return err
	}
	return runErr
}

func printRunSummary(w io.Writer, sum batch.RunSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "input\tsheet\tgenes\tunannotated\tmean_log2FC\tsd_log2FC")
	for _, rep := range sum.Reports {
		for _, s := range rep.Sheets {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
				rep.Input, s.Name, s.Rows, len(s.Failed), formatStat(s.MeanLog2FC), formatStat(s.StdDevLog2FC))
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	line := color.New()
	if sum.Failed > 0 {
		line = color.New(color.FgRed)
	}
	_, err := line.Fprintf(w, "\n%d file(s): %d annotated, %d failed\n", sum.Files, sum.Succeeded, sum.Failed)
	return err
}

func formatStat(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.3f", v)
}

// recordReferences stores which reference files annotated each input and
// notes inputs whose earlier annotation used different files.
func recordReferences(store *duckdb.Store, sum batch.RunSummary, refs duckdb.ReferenceSet) error {
	for _, rep := range sum.Reports {
		prev, ok, err := store.References(rep.Input)
		if err != nil {
			return err
		}
		if ok && !prev.Equal(refs) {
			logger.Info("reference files changed since last annotation",
				zap.String("input", rep.Input),
				zap.String("obo", refs.OBO.Path),
				zap.String("associations", refs.Associations.Path))
		}
		if err := store.RecordReferences(rep.Input, refs); err != nil {
			return err
		}
	}
	return nil
}

// loadAnnotator loads the OBO and association files named by the
// reference.* settings, falling back to the download location.
func loadAnnotator() (*annotate.Annotator, duckdb.ReferenceSet, error) {
	var refs duckdb.ReferenceSet
	oboPath, gafPath, err := referencePaths()
	if err != nil {
		return nil, refs, err
	}
	if refs.OBO, err = duckdb.StatFile(oboPath); err != nil {
		return nil, refs, fmt.Errorf("stat OBO file: %w", err)
	}
	if refs.Associations, err = duckdb.StatFile(gafPath); err != nil {
		return nil, refs, fmt.Errorf("stat gene association file: %w", err)
	}

	parser := obo.NewParser()
	parser.SetStrict(viper.GetBool("reference.strict"))
	parser.SetStanzaAware(viper.GetBool("reference.stanza_aware"))
	parser.SetLogger(logger)
	terms, err := parser.Load(oboPath)
	if err != nil {
		return nil, refs, err
	}
	index := obo.NewIndex(terms)

	loader := gaf.NewLoader()
	loader.SetSkipLines(viper.GetInt("reference.skip_lines"))
	loader.SetLogger(logger)
	table, err := loader.Load(gafPath)
	if err != nil {
		return nil, refs, err
	}

	logger.Info("loaded reference data",
		zap.String("obo", oboPath),
		zap.Int("terms", index.Len()),
		zap.String("associations", gafPath),
		zap.Int("rows", table.Len()))

	ann := annotate.NewAnnotator(table, index)
	ann.SetLogger(logger)
	return ann, refs, nil
}

func referencePaths() (oboPath, gafPath string, err error) {
	oboPath = viper.GetString("reference.obo")
	gafPath = viper.GetString("reference.associations")
	if oboPath != "" && gafPath != "" {
		return oboPath, gafPath, nil
	}

	foundOBO, foundGAF := FindReferenceFiles()
	if oboPath == "" {
		oboPath = foundOBO
	}
	if gafPath == "" {
		gafPath = foundGAF
	}
	if oboPath == "" {
		return "", "", errors.New("no OBO file: pass --obo or run 'vibe-goa download'")
	}
	if gafPath == "" {
		return "", "", errors.New("no gene association file: pass --associations or run 'vibe-goa download'")
	}
	return oboPath, gafPath, nil
}
