// Package dataset builds feature CSV files for offline training: one
// row per audio file, columns filepath, feature_0..feature_{D-1}, and
// optionally a label. Files that fail to decode are skipped and
// reported so callers can audit omissions.
package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/voxkit/phraseprint/fingerprint"
	"github.com/voxkit/phraseprint/logging"
)

// Embedder turns an audio file into an embedding. *phraseprint.Recognizer
// satisfies it.
type Embedder interface {
	EmbedFile(ctx context.Context, path string) (fingerprint.Embedding, error)
	Dimension() int
}

// LabelFunc derives the label for an audio file from its path. When
// nil, no label column is written.
type LabelFunc func(path string) string

// SkippedFile records one file that could not be processed
type SkippedFile struct {
	Path string
	Err  error
}

// Report summarizes a dataset build or update
type Report struct {
	Processed int
	Skipped   []SkippedFile
}

// Builder writes and incrementally updates feature CSV files
type Builder struct {
	embedder Embedder
	labelFn  LabelFunc
	logger   logging.Logger
}

// NewBuilder creates a dataset builder. labelFn may be nil.
func NewBuilder(embedder Embedder, labelFn LabelFunc) *Builder {
	return &Builder{
		embedder: embedder,
		labelFn:  labelFn,
		logger:   logging.WithFields(logging.Fields{"component": "dataset_builder"}),
	}
}

// header builds the CSV header row for dimension d
func (b *Builder) header() []string {
	d := b.embedder.Dimension()
	row := make([]string, 0, d+2)
	row = append(row, "filepath")
	for i := 0; i < d; i++ {
		row = append(row, "feature_"+strconv.Itoa(i))
	}
	if b.labelFn != nil {
		row = append(row, "label")
	}
	return row
}

// row extracts one file's features and formats the CSV row. The
// filepath column holds the base name, matching how update detects
// already-processed files.
func (b *Builder) row(ctx context.Context, path string) ([]string, error) {
	embedding, err := b.embedder.EmbedFile(ctx, path)
	if err != nil {
		return nil, err
	}

	row := make([]string, 0, len(embedding)+2)
	row = append(row, filepath.Base(path))
	for _, v := range embedding {
		row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
	}
	if b.labelFn != nil {
		row = append(row, b.labelFn(path))
	}
	return row, nil
}

// Create generates the feature CSV from scratch, overwriting outPath
func (b *Builder) Create(ctx context.Context, files []string, outPath string) (*Report, error) {
	f, err := os.Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("dataset: create %s: %w", outPath, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(b.header()); err != nil {
		return nil, fmt.Errorf("dataset: write header: %w", err)
	}

	report := &Report{}
	if err := b.appendRows(ctx, w, files, report); err != nil {
		return nil, err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("dataset: flush %s: %w", outPath, err)
	}

	b.logger.Info("created dataset", logging.Fields{
		"path":      outPath,
		"processed": report.Processed,
		"skipped":   len(report.Skipped),
	})

	return report, nil
}

// Update processes only the audio files under dir that are not yet
// present in the CSV and appends their rows. A missing CSV is created
// from scratch.
func (b *Builder) Update(ctx context.Context, dir, csvPath string) (*Report, error) {
	files, err := findAudioFiles(dir)
	if err != nil {
		return nil, err
	}

	existing, err := existingFilepaths(csvPath)
	if err != nil {
		if os.IsNotExist(err) {
			return b.Create(ctx, files, csvPath)
		}
		return nil, err
	}

	var newFiles []string
	for _, path := range files {
		if _, seen := existing[filepath.Base(path)]; !seen {
			newFiles = append(newFiles, path)
		}
	}

	report := &Report{}
	if len(newFiles) == 0 {
		b.logger.Info("dataset is up to date", logging.Fields{"path": csvPath})
		return report, nil
	}

	f, err := os.OpenFile(csvPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s for append: %w", csvPath, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := b.appendRows(ctx, w, newFiles, report); err != nil {
		return nil, err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("dataset: flush %s: %w", csvPath, err)
	}

	b.logger.Info("updated dataset", logging.Fields{
		"path":      csvPath,
		"processed": report.Processed,
		"skipped":   len(report.Skipped),
	})

	return report, nil
}

// appendRows writes one row per file, skipping and reporting files that
// fail instead of aborting the batch
func (b *Builder) appendRows(ctx context.Context, w *csv.Writer, files []string, report *Report) error {
	for _, path := range files {
		row, err := b.row(ctx, path)
		if err != nil {
			b.logger.Warn("skipping file", logging.Fields{"path": path, "error": err.Error()})
			report.Skipped = append(report.Skipped, SkippedFile{Path: path, Err: err})
			continue
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("dataset: write row for %s: %w", path, err)
		}
		report.Processed++
	}
	return nil
}

// existingFilepaths reads the filepath column of an existing CSV
func existingFilepaths(csvPath string) (map[string]struct{}, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("dataset: read %s: %w", csvPath, err)
	}

	existing := make(map[string]struct{}, len(records))
	for i, record := range records {
		if i == 0 || len(record) == 0 {
			continue // header
		}
		existing[record[0]] = struct{}{}
	}
	return existing, nil
}

// findAudioFiles walks dir recursively collecting .wav files in
// deterministic order
func findAudioFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".wav") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dataset: walk %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}
