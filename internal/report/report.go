// Package report renders the end-of-run campaign summary: per-person
// attention times, aggregate statistics and the presence timeline.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/dooh-labs/attentiond/internal/tracker"
)

// EntityRow is one tracked person in the final report.
type EntityRow struct {
	TrackID       int
	IdentityID    int // 0 when re-identification never confirmed one
	AttentionTime time.Duration
	TotalTime     time.Duration
	StartTime     time.Duration
	EndTime       time.Duration
}

// TimelinePoint is one sample of the presence series.
type TimelinePoint struct {
	Elapsed     time.Duration
	ActiveCount int
}

// Summary is everything the report sink consumes at teardown.
type Summary struct {
	Campaign         string
	CampaignDuration time.Duration
	Entities         []EntityRow
	Timeline         []TimelinePoint
}

// BuildSummary flattens the tracker's all-time summary into sorted
// report rows.
func BuildSummary(campaign string, all map[int]tracker.Times, duration time.Duration, timeline []TimelinePoint) Summary {
	rows := make([]EntityRow, 0, len(all))
	for id, t := range all {
		rows = append(rows, EntityRow{
			TrackID:       id,
			IdentityID:    t.IdentityID,
			AttentionTime: t.AttentionTime,
			TotalTime:     t.TotalTime,
			StartTime:     t.StartTime,
			EndTime:       t.EndTime,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].TrackID < rows[j].TrackID })

	return Summary{
		Campaign:         campaign,
		CampaignDuration: duration,
		Entities:         rows,
		Timeline:         timeline,
	}
}

// TotalAttention sums attention across every entity ever seen.
func (s Summary) TotalAttention() time.Duration {
	var total time.Duration
	for _, e := range s.Entities {
		total += e.AttentionTime
	}
	return total
}

// AverageAttention is total attention divided by people watched.
func (s Summary) AverageAttention() time.Duration {
	if len(s.Entities) == 0 {
		return 0
	}
	return s.TotalAttention() / time.Duration(len(s.Entities))
}

func secs(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 2, 64)
}

// WriteCSV writes the per-person rows followed by the summary block.
func WriteCSV(w io.Writer, s Summary) error {
	cw := csv.NewWriter(w)

	records := [][]string{
		{"Face_ID", "Person_ID", "Attention_Time_s", "Start_Time_s", "End_Time_s", "Total_Time_s"},
	}
	for _, e := range s.Entities {
		person := ""
		if e.IdentityID > 0 {
			person = strconv.Itoa(e.IdentityID)
		}
		records = append(records, []string{
			strconv.Itoa(e.TrackID),
			person,
			secs(e.AttentionTime),
			secs(e.StartTime),
			secs(e.EndTime),
			secs(e.TotalTime),
		})
	}

	records = append(records,
		[]string{},
		[]string{"Summary"},
		[]string{"Total_People_Watched", strconv.Itoa(len(s.Entities))},
		[]string{"Total_Attention_Time_s", secs(s.TotalAttention())},
		[]string{"Average_Attention_Time_s", secs(s.AverageAttention())},
		[]string{"Campaign_Duration_s", secs(s.CampaignDuration)},
	)

	for _, rec := range records {
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTimelineCSV writes the presence series as (elapsed_s, active_count).
func WriteTimelineCSV(w io.Writer, timeline []TimelinePoint) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"Elapsed_s", "Active_Count"}); err != nil {
		return fmt.Errorf("failed to write csv record: %w", err)
	}
	for _, p := range timeline {
		if err := cw.Write([]string{secs(p.Elapsed), strconv.Itoa(p.ActiveCount)}); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Save writes the attention report and the timeline into dir with
// timestamped filenames and returns both paths.
func Save(dir string, s Summary) (reportPath, timelinePath string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create results dir: %w", err)
	}

	stamp := time.Now().Format("20060102_150405")

	reportPath = filepath.Join(dir, fmt.Sprintf("attention_report_%s.csv", stamp))
	f, err := os.Create(reportPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()
	if err := WriteCSV(f, s); err != nil {
		return "", "", err
	}

	timelinePath = filepath.Join(dir, fmt.Sprintf("people_vs_time_%s.csv", stamp))
	tf, err := os.Create(timelinePath)
	if err != nil {
		return "", "", fmt.Errorf("failed to create timeline file: %w", err)
	}
	defer tf.Close()
	if err := WriteTimelineCSV(tf, s.Timeline); err != nil {
		return "", "", err
	}

	return reportPath, timelinePath, nil
}

// Print writes the human-readable campaign summary.
func Print(w io.Writer, s Summary) {
	fmt.Fprintln(w, "\n===== Campaign Summary =====")
	if s.Campaign != "" {
		fmt.Fprintf(w, "Campaign                 : %s\n", s.Campaign)
	}
	fmt.Fprintf(w, "Total_People_Watched     : %d\n", len(s.Entities))
	fmt.Fprintf(w, "Total_Attention_Time_s   : %s\n", secs(s.TotalAttention()))
	fmt.Fprintf(w, "Average_Attention_Time_s : %s\n", secs(s.AverageAttention()))
	fmt.Fprintf(w, "Campaign_Duration_s      : %s\n", secs(s.CampaignDuration))
}
