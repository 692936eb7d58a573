package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Reference file sources
const (
	goBasicURL  = "http://purl.obolibrary.org/obo/go/go-basic.obo"
	flyBaseGAF  = "http://current.geneontology.org/annotations/fb.gaf.gz"
	oboFileName = "go-basic.obo"
	gafFileName = "fb.gaf.gz"
)

func newDownloadCmd() *cobra.Command {
	var (
		outputDir string
		force     bool
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download GO term definitions and FlyBase gene associations",
		Long: `Download go-basic.obo and the FlyBase gene association file (fb.gaf.gz).

Files downloaded:
  - go-basic.obo (~30MB)
  - fb.gaf.gz (~5MB)

After downloading, annotate and lookup find these files automatically.`,
		Example: `  vibe-goa download
  vibe-goa download --output /data/go`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd.OutOrStdout(), outputDir, force)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (default: ~/.vibe-goa/)")
	cmd.Flags().BoolVar(&force, "force", false, "Download even if the files already exist")

	return cmd
}

func runDownload(w io.Writer, outputDir string, force bool) error {
	if outputDir == "" {
		outputDir = defaultDataDir()
		if outputDir == "" {
			return fmt.Errorf("cannot determine home directory")
		}
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("cannot create directory %s: %w", outputDir, err)
	}

	fmt.Fprintf(w, "Downloading GO reference files...\n")
	fmt.Fprintf(w, "Destination: %s\n\n", outputDir)

	client := &http.Client{Timeout: 30 * time.Minute}
	for _, src := range []struct{ url, name string }{
		{goBasicURL, oboFileName},
		{flyBaseGAF, gafFileName},
	} {
		if err := downloadFile(client, w, src.url, filepath.Join(outputDir, src.name), force); err != nil {
			return fmt.Errorf("downloading %s: %w", src.name, err)
		}
	}

	color.New(color.FgGreen).Fprintf(w, "\nDownload complete!\n")
	fmt.Fprintf(w, "To annotate results, run:\n")
	fmt.Fprintf(w, "  vibe-goa annotate <result dir>\n")
	return nil
}

// downloadFile downloads a file from URL to the destination path with progress.
func downloadFile(client *http.Client, w io.Writer, url, destPath string, force bool) error {
	if info, err := os.Stat(destPath); err == nil && !force {
		color.New(color.FgYellow).Fprintf(w, "  %s already exists (%s), skipping\n", filepath.Base(destPath), formatSize(info.Size()))
		return nil
	}

	fmt.Fprintf(w, "  Downloading %s...\n", filepath.Base(destPath))

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %s", resp.Status)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	var downloaded int64
	pw := &progressWriter{
		out:        w,
		total:      resp.ContentLength,
		downloaded: &downloaded,
		lastPrint:  time.Now(),
	}

	_, err = io.Copy(f, io.TeeReader(resp.Body, pw))
	f.Close()

	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("download failed: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename file: %w", err)
	}

	fmt.Fprintf(w, "    Done: %s\n", formatSize(downloaded))
	return nil
}

// progressWriter tracks download progress.
type progressWriter struct {
	out        io.Writer
	total      int64
	downloaded *int64
	lastPrint  time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	*pw.downloaded += int64(n)

	if time.Since(pw.lastPrint) > time.Second {
		if pw.total > 0 {
			pct := float64(*pw.downloaded) / float64(pw.total) * 100
			fmt.Fprintf(pw.out, "\r    Progress: %s / %s (%.1f%%)  ",
				formatSize(*pw.downloaded), formatSize(pw.total), pct)
		} else {
			fmt.Fprintf(pw.out, "\r    Progress: %s  ", formatSize(*pw.downloaded))
		}
		pw.lastPrint = time.Now()
	}

	return n, nil
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FindReferenceFiles looks for downloaded reference files in the default
// location. Missing files are returned as empty strings.
func FindReferenceFiles() (oboPath, gafPath string) {
	dir := defaultDataDir()
	if dir == "" {
		return "", ""
	}
	if p := filepath.Join(dir, oboFileName); fileExists(p) {
		oboPath = p
	}
	if p := filepath.Join(dir, gafFileName); fileExists(p) {
		gafPath = p
	}
	return oboPath, gafPath
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
