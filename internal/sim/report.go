package sim

import (
	"fmt"
	"io"
	"time"

	"github.com/casualjim/courier"
	"github.com/casualjim/courier/internal/config"
	"github.com/fatih/color"
	"github.com/go-openapi/strfmt"
	json "github.com/goccy/go-json"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const (
	StatusCompleted = "completed"
	StatusCrashed   = "crashed"
)

// Report is the outcome of a simulation run.
type Report struct {
	GeneratedAt strfmt.DateTime
	Elapsed     time.Duration
	Stats       StatsSnapshot
	Landmarks   []Landmark
	Fault       *Fault
	// LastFrames and Poses are only filled in when the run crashed.
	LastFrames []Frame
	Poses      []config.Pose
	Broker     courier.Stats
}

// Status is StatusCrashed when a sensor failed during the run.
func (r *Report) Status() string {
	if r.Fault != nil {
		return StatusCrashed
	}
	return StatusCompleted
}

// MarshalJSON writes the report with a fixed key order, so reports of
// different runs diff cleanly.
func (r *Report) MarshalJSON() ([]byte, error) {
	om := orderedmap.New[string, any]()
	om.Set("generated_at", r.GeneratedAt)
	om.Set("status", r.Status())
	om.Set("elapsed", r.Elapsed.String())
	om.Set("statistics", r.Stats)
	landmarks := r.Landmarks
	if landmarks == nil {
		landmarks = []Landmark{}
	}
	om.Set("landmarks", landmarks)
	if r.Fault != nil {
		om.Set("fault", r.Fault)
		frames := r.LastFrames
		if frames == nil {
			frames = []Frame{}
		}
		om.Set("last_frames", frames)
		poses := r.Poses
		if poses == nil {
			poses = []config.Pose{}
		}
		om.Set("poses", poses)
	}
	om.Set("broker", r.Broker)
	return json.Marshal(om)
}

// WriteJSON writes the indented report to w.
func (r *Report) WriteJSON(w io.Writer) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// WriteSummary prints a short human readable summary to w.
func (r *Report) WriteSummary(w io.Writer) {
	status := color.GreenString(r.Status())
	if r.Fault != nil {
		status = color.RedString(r.Status())
	}
	fmt.Fprintf(w, "%s: %s in %s\n", color.CyanString("Simulation"), status, r.Elapsed.Round(time.Millisecond))
	if r.Fault != nil {
		fmt.Fprintf(w, "%s: %s at tick %d\n", color.RedString("Fault"), r.Fault.Source, r.Fault.Time)
	}
	fmt.Fprintf(w, "%s: ticks=%d detected=%d tracked=%d landmarks=%d\n",
		color.YellowString("Statistics"),
		r.Stats.RuntimeTicks, r.Stats.DetectedObjects, r.Stats.TrackedObjects, r.Stats.Landmarks,
	)
	fmt.Fprintf(w, "%s: sent=%d dropped=%d completed=%d published=%d\n",
		color.MagentaString("Broker"),
		r.Broker.RequestsSent, r.Broker.RequestsDropped, r.Broker.RequestsCompleted, r.Broker.NotificationsPublished,
	)
}
