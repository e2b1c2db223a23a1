package louvain

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// OutputWriter interface for flexible output generation
type OutputWriter interface {
	WriteMapping(result *Result, path string) error
	WriteAssignment(result *Result, path string) error
	WriteSizes(result *Result, path string) error
	WriteReport(result *Result, path string) error
	WriteAll(result *Result, outputDir string, prefix string) error
}

// FileWriter implements OutputWriter for file-based output
type FileWriter struct {
	// MinRelevantSize is the size a community must exceed to be listed in the
	// report's relevant communities.
	MinRelevantSize int
	// TopRelevant caps the relevant communities in the report, 0 for all.
	TopRelevant int
}

// NewFileWriter creates a new file-based output writer
func NewFileWriter() *FileWriter {
	return &FileWriter{MinRelevantSize: 10, TopRelevant: 15}
}

// WriteAll writes all output files
func (fw *FileWriter) WriteAll(result *Result, outputDir string, prefix string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	files := []struct {
		ext   string
		write func(*Result, string) error
	}{
		{"mapping", fw.WriteMapping},
		{"assignment", fw.WriteAssignment},
		{"sizes", fw.WriteSizes},
		{"json", fw.WriteReport},
	}
	for _, f := range files {
		path := filepath.Join(outputDir, fmt.Sprintf("%s.%s", prefix, f.ext))
		if err := f.write(result, path); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.ext, err)
		}
	}
	return nil
}

// WriteMapping writes every final community as a block: its identifier,
// its member count and one member id per line.
func (fw *FileWriter) WriteMapping(result *Result, path string) error {
	return writeFile(path, func(w io.Writer) error { return EncodeMapping(w, result) })
}

// WriteAssignment writes "node community" per line in ascending node order.
func (fw *FileWriter) WriteAssignment(result *Result, path string) error {
	return writeFile(path, func(w io.Writer) error { return EncodeAssignment(w, result) })
}

// WriteSizes writes "community size" per line, largest first.
func (fw *FileWriter) WriteSizes(result *Result, path string) error {
	return writeFile(path, func(w io.Writer) error { return EncodeSizes(w, result) })
}

// WriteReport writes the JSON summary of the run.
func (fw *FileWriter) WriteReport(result *Result, path string) error {
	return writeFile(path, func(w io.Writer) error {
		return EncodeReport(w, result, fw.MinRelevantSize, fw.TopRelevant)
	})
}

func writeFile(path string, encode func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(file)
	if err := encode(bw); err != nil {
		file.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// communityLabel names a final community after the level it was found at.
func communityLabel(result *Result, comm int) string {
	return fmt.Sprintf("c0_l%d_%d", result.NumLevels, comm)
}

// EncodeMapping is the stream form of WriteMapping.
func EncodeMapping(w io.Writer, result *Result) error {
	for comm, members := range result.Partition.Members() {
		if _, err := fmt.Fprintf(w, "%s\n%d\n", communityLabel(result, comm), len(members)); err != nil {
			return err
		}
		for _, id := range members {
			if _, err := fmt.Fprintf(w, "%d\n", id); err != nil {
				return err
			}
		}
	}
	return nil
}

// EncodeAssignment is the stream form of WriteAssignment.
func EncodeAssignment(w io.Writer, result *Result) error {
	var err error
	result.Partition.ForEach(func(id, comm int) {
		if err == nil {
			_, err = fmt.Fprintf(w, "%d %d\n", id, comm)
		}
	})
	return err
}

// EncodeSizes is the stream form of WriteSizes.
func EncodeSizes(w io.Writer, result *Result) error {
	for _, cs := range RelevantCommunities(CommunitySizes(result.Partition), 0) {
		if _, err := fmt.Fprintf(w, "%d %d\n", cs.Community, cs.Size); err != nil {
			return err
		}
	}
	return nil
}

// Report is the JSON document written by WriteReport.
type Report struct {
	Modularity          float64         `json:"modularity"`
	BaselineModularity  float64         `json:"baseline_modularity"`
	NumLevels           int             `json:"num_levels"`
	NumCommunities      int             `json:"num_communities"`
	NumNodes            int             `json:"num_nodes"`
	Converged           bool            `json:"converged"`
	StopReason          StopReason      `json:"stop_reason"`
	Warning             string          `json:"warning,omitempty"`
	Levels              []LevelInfo     `json:"levels"`
	Statistics          Statistics      `json:"statistics"`
	SizeStats           SizeStats       `json:"size_stats"`
	RelevantCommunities []CommunitySize `json:"relevant_communities"`
}

// NewReport summarises result. Communities larger than minSize are listed,
// at most top of them when top > 0.
func NewReport(result *Result, minSize, top int) Report {
	relevant := RelevantCommunities(CommunitySizes(result.Partition), minSize)
	if top > 0 && len(relevant) > top {
		relevant = relevant[:top]
	}
	report := Report{
		Modularity:          result.Modularity,
		BaselineModularity:  result.BaselineModularity,
		NumLevels:           result.NumLevels,
		NumCommunities:      result.NumCommunities,
		NumNodes:            result.Partition.Len(),
		Converged:           result.Converged,
		StopReason:          result.StopReason,
		Levels:              result.Levels,
		Statistics:          result.Statistics,
		SizeStats:           CommunitySizeStats(result.Partition),
		RelevantCommunities: relevant,
	}
	if result.Warning != nil {
		report.Warning = result.Warning.Error()
	}
	return report
}

// EncodeReport is the stream form of WriteReport.
func EncodeReport(w io.Writer, result *Result, minSize, top int) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewReport(result, minSize, top))
}
