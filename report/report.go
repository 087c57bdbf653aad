// Package report - Renders per-frame results for people and for tools.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-detect/detector"
	"github.com/nvr-ai/go-detect/models/model"
	"github.com/nvr-ai/go-detect/models/postprocess"
)

// Format selects how frames are written.
type Format string

// Output formats.
const (
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatTable, FormatYAML:
		return f, nil
	default:
		return "", errors.Errorf("unknown output format %q", s)
	}
}

// Frame is the result of one input image.
type Frame struct {
	RunID      string                       `yaml:"run_id"`
	Path       string                       `yaml:"path"`
	Frame      int                          `yaml:"frame"`
	Detections []postprocess.Detection      `yaml:"detections,omitempty"`
	Classes    []postprocess.Classification `yaml:"classes,omitempty"`
	Timings    detector.Timings             `yaml:"timings"`
	Error      string                       `yaml:"error,omitempty"`
}

// Run groups the frames of one invocation under a random id.
type Run struct {
	ID     string
	Frames []Frame
}

// NewRun creates a run with n empty frames and a fresh id.
func NewRun(n int) *Run {
	return &Run{ID: uuid.NewString(), Frames: make([]Frame, n)}
}

// Set stores the frame at index i, stamped with the run id.
func (r *Run) Set(i int, f Frame) {
	f.RunID = r.ID
	r.Frames[i] = f
}

// Failed returns the number of frames that carry an error.
func (r *Run) Failed() int {
	n := 0
	for _, f := range r.Frames {
		if f.Error != "" {
			n++
		}
	}
	return n
}

// Write renders the run in the given format.
func (r *Run) Write(w io.Writer, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r.Frames); err != nil {
			return errors.Wrap(err, "error encoding frames")
		}
		return enc.Close()
	case FormatTable:
		return r.writeTable(w)
	default:
		return errors.Errorf("unknown output format %q", format)
	}
}

// writeTable writes one row per detection or class, grouped by frame.
func (r *Run) writeTable(w io.Writer) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("run " + r.ID)
	t.AppendHeader(table.Row{"Frame", "Path", "#", "Label", "Score", "Box", "Time"})

	for _, f := range r.Frames {
		total := f.Timings.Total().Round(time.Microsecond)
		switch {
		case f.Error != "":
			t.AppendRow(table.Row{f.Frame, f.Path, "", "error: " + f.Error, "", "", ""})
		case len(f.Classes) > 0:
			for i, c := range f.Classes {
				t.AppendRow(table.Row{f.Frame, f.Path, i + 1, label(c.Label, c.ClassID), score(c.Score), "", total})
			}
		case len(f.Detections) > 0:
			for i, d := range f.Detections {
				t.AppendRow(table.Row{f.Frame, f.Path, i + 1, label(d.Label, d.ClassID), score(d.Score), box(d.Box), total})
			}
		default:
			t.AppendRow(table.Row{f.Frame, f.Path, 0, "", "", "", total})
		}
		t.AppendSeparator()
	}

	t.AppendFooter(table.Row{"", "frames", len(r.Frames), "failed", r.Failed(), "", ""})
	t.Render()
	return nil
}

func label(name string, id int) string {
	if name == "" {
		return fmt.Sprintf("#%d", id)
	}
	return name
}

func score(s float32) string {
	return fmt.Sprintf("%.3f", s)
}

func box(b postprocess.Box) string {
	return fmt.Sprintf("%.0f,%.0f %.0fx%.0f", b.X, b.Y, b.Width, b.Height)
}

// WritePresets writes one row per model preset.
func WritePresets(w io.Writer, presets []model.Config) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Name", "Task", "Input", "Classes", "Strides", "Threshold", "Labels"})
	for _, p := range presets {
		g := p.Geometry
		labels := p.Labels
		if labels == "" {
			labels = "-"
		}
		t.AppendRow(table.Row{
			p.Name, p.Name.Task(), fmt.Sprintf("%dx%d", g.InputWidth, g.InputHeight),
			g.NumClasses, fmt.Sprint(g.Strides), g.ConfidenceThreshold, labels,
		})
	}
	t.Render()
}
