package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/vibe-goa/internal/duckdb"
	"github.com/inodb/vibe-goa/internal/output"
)

func newLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <gene>...",
		Short: "Print GO annotations for gene names",
		Long: `Resolve gene names against the association file and print the joined
OBO_names, FB_IDs and GO_IDs as tab-separated values. Genes without
association data print "-" in every field.`,
		Example: `  vibe-goa lookup Adh cno
  vibe-goa lookup --associations fb.gaf.gz --obo go-basic.obo Adh`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(cmd.OutOrStdout(), args)
		},
	}
}

func runLookup(w io.Writer, genes []string) error {
	ann, _, err := loadAnnotator()
	if err != nil {
		return err
	}

	tw := output.NewTabWriter(w)
	if err := tw.WriteHeader(); err != nil {
		return err
	}
	for _, l := range ann.AnnotateAll(genes, viper.GetInt("annotate.workers")) {
		if err := tw.Write(l); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func newQueryCmd() *cobra.Command {
	var gene, goID string

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Search annotated rows recorded in a DuckDB database",
		Long: `Search rows written by 'vibe-goa annotate --duckdb'. Exactly one of --gene
or --go-id must be given. The database defaults to output.duckdb.`,
		Example: `  vibe-goa query --duckdb annotations.duckdb --gene Adh
  vibe-goa query --duckdb annotations.duckdb --go-id GO:0006069`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (gene == "") == (goID == "") {
				return &usageError{errors.New("exactly one of --gene or --go-id is required")}
			}
			dbPath, _ := cmd.Flags().GetString("duckdb")
			if dbPath == "" {
				dbPath = viper.GetString("output.duckdb")
			}
			if dbPath == "" {
				return &usageError{errors.New("no database: pass --duckdb or set output.duckdb")}
			}
			return runQuery(cmd.OutOrStdout(), dbPath, gene, goID)
		},
	}

	cmd.Flags().StringVar(&gene, "gene", "", "Gene name")
	cmd.Flags().StringVar(&goID, "go-id", "", "GO ID, matched against whole GO_IDs entries")
	cmd.Flags().String("duckdb", "", "DuckDB database written by annotate")

	return cmd
}

func runQuery(w io.Writer, dbPath, gene, goID string) error {
	store, err := duckdb.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	var rows []duckdb.AnnotationRow
	if gene != "" {
		rows, err = store.SearchByGene(gene)
	} else {
		rows, err = store.SearchByGOID(goID)
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "source\tsheet\tgene\tpadj\tlog2FoldChange\tOBO_names\tFB_IDs\tGO_IDs")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%g\t%g\t%s\t%s\t%s\n",
			r.SourceFile, r.Sheet, r.Gene, r.Padj, r.Log2FoldChange,
			nullDash(r.OBONames.String, r.OBONames.Valid),
			nullDash(r.FBIDs.String, r.FBIDs.Valid),
			nullDash(r.GOIDs.String, r.GOIDs.Valid))
	}
	return tw.Flush()
}

func nullDash(s string, valid bool) string {
	if !valid {
		return "-"
	}
	return s
}
