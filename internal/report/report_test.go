package report

import (
	"bytes"
	"encoding/csv"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dooh-labs/attentiond/internal/tracker"
)

func sampleSummary() Summary {
	all := map[int]tracker.Times{
		2: {
			AttentionTime: 3 * time.Second,
			TotalTime:     9 * time.Second,
			StartTime:     10 * time.Second,
			EndTime:       19 * time.Second,
		},
		1: {
			AttentionTime: 5 * time.Second,
			TotalTime:     7 * time.Second,
			StartTime:     time.Second,
			EndTime:       8 * time.Second,
			IdentityID:    4,
		},
	}
	timeline := []TimelinePoint{
		{Elapsed: 0, ActiveCount: 0},
		{Elapsed: time.Second, ActiveCount: 1},
		{Elapsed: 2 * time.Second, ActiveCount: 2},
	}
	return BuildSummary("Kofola", all, 30*time.Second, timeline)
}

func TestBuildSummary_SortedByTrackID(t *testing.T) {
	s := sampleSummary()

	if len(s.Entities) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(s.Entities))
	}

	if s.Entities[0].TrackID != 1 || s.Entities[1].TrackID != 2 {
		t.Errorf("expected rows sorted by track id, got %d then %d",
			s.Entities[0].TrackID, s.Entities[1].TrackID)
	}

	if s.Entities[0].IdentityID != 4 {
		t.Errorf("expected identity 4 on row 1, got %d", s.Entities[0].IdentityID)
	}
}

func TestSummaryAggregates(t *testing.T) {
	s := sampleSummary()

	if s.TotalAttention() != 8*time.Second {
		t.Errorf("expected total attention 8s, got %v", s.TotalAttention())
	}

	if s.AverageAttention() != 4*time.Second {
		t.Errorf("expected average attention 4s, got %v", s.AverageAttention())
	}

	empty := Summary{}
	if empty.AverageAttention() != 0 {
		t.Errorf("expected zero average for empty summary, got %v", empty.AverageAttention())
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleSummary()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()

	wantLines := []string{
		"Face_ID,Person_ID,Attention_Time_s,Start_Time_s,End_Time_s,Total_Time_s",
		"1,4,5.00,1.00,8.00,7.00",
		"2,,3.00,10.00,19.00,9.00",
		"Total_People_Watched,2",
		"Total_Attention_Time_s,8.00",
		"Average_Attention_Time_s,4.00",
		"Campaign_Duration_s,30.00",
	}
	for _, want := range wantLines {
		if !strings.Contains(out, want) {
			t.Errorf("expected csv to contain %q, got:\n%s", want, out)
		}
	}
}

func TestWriteTimelineCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTimelineCSV(&buf, sampleSummary().Timeline); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := csv.NewReader(&buf)
	records, err := r.ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v", err)
	}

	if len(records) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(records))
	}

	if records[0][0] != "Elapsed_s" || records[0][1] != "Active_Count" {
		t.Errorf("unexpected header: %v", records[0])
	}

	if records[3][0] != "2.00" || records[3][1] != "2" {
		t.Errorf("unexpected last row: %v", records[3])
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()

	reportPath, timelinePath, err := Save(dir, sampleSummary())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, p := range []string{reportPath, timelinePath} {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("expected file %s: %v", p, err)
		}
		if info.Size() == 0 {
			t.Errorf("expected non-empty file %s", p)
		}
	}

	if !strings.Contains(reportPath, "attention_report_") {
		t.Errorf("unexpected report filename: %s", reportPath)
	}
	if !strings.Contains(timelinePath, "people_vs_time_") {
		t.Errorf("unexpected timeline filename: %s", timelinePath)
	}
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	Print(&buf, sampleSummary())

	out := buf.String()
	for _, want := range []string{"Campaign Summary", "Kofola", "Total_People_Watched     : 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}
