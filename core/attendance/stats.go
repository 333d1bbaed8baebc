package attendance

import (
	"context"
	"math"
	"sort"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/roster"
)

// Summary aggregates a record set into presence counts. Percentage is
// present/total*100 rounded to 2 decimals, 0 when total is 0.
type Summary struct {
	Total      int     `json:"total"`
	Present    int     `json:"present"`
	Absent     int     `json:"absent"`
	Percentage float64 `json:"percentage"`
}

func (s *Summary) add(rec Record) {
	s.Total++
	if rec.Present() {
		s.Present++
	} else {
		s.Absent++
	}
	s.Percentage = percentage(s.Present, s.Total)
}

func percentage(present, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(present)/float64(total)*10000) / 100
}

type SubjectSummary struct {
	Subject *roster.SubjectInfo `json:"subject,omitempty"`
	Summary
}

type StudentStats struct {
	General   Summary                    `json:"general"`
	BySubject map[string]*SubjectSummary `json:"by_subject"`
	Records   []Record                   `json:"records"`
}

type StudentReportEntry struct {
	Student *roster.StudentInfo `json:"student,omitempty"`
	Summary
	Records []Record `json:"records"`
}

type ReportSummary struct {
	TotalStudents int         `json:"total_students"`
	TotalRecords  int         `json:"total_records"`
	Filters       QueryFilter `json:"filters"`
}

type ClassReport struct {
	Summary  ReportSummary                  `json:"summary"`
	Students map[string]*StudentReportEntry `json:"students"`
}

// groupKeyFunc extracts the grouping key from the current record. Aggregation
// always keys buckets by this function's result for the record at hand, never
// by a variable shared across iterations; keeping the key extraction explicit
// is what guarantees distinct groups stay isolated.
type groupKeyFunc func(Record) string

func bySubjectID(r Record) string { return r.SubjectID }
func byStudentID(r Record) string { return r.StudentID }

// StudentStats derives per-subject presence summaries for one student over the
// filtered record set.
func (svc *Service) StudentStats(ctx context.Context, studentID string, filter QueryFilter) (StudentStats, error) {
	filter.StudentID = studentID
	records, err := svc.repo.FilterRecords(ctx, filter, []core.DBOrdering{
		{Field: "date"},
		{Field: "created_at"},
	})
	if err != nil {
		return StudentStats{}, err
	}

	stats := StudentStats{
		BySubject: make(map[string]*SubjectSummary),
		Records:   records,
	}
	for _, rec := range records {
		stats.General.add(rec)

		key := bySubjectID(rec)
		bucket, ok := stats.BySubject[key]
		if !ok {
			bucket = &SubjectSummary{Subject: rec.Subject}
			stats.BySubject[key] = bucket
		}
		bucket.add(rec)
	}
	return stats, nil
}

// ClassReport derives per-student presence summaries over the filtered record
// set, ordered by date ascending then student name ascending for a
// deterministic report layout.
func (svc *Service) ClassReport(ctx context.Context, filter QueryFilter) (ClassReport, error) {
	records, err := svc.repo.FilterRecords(ctx, filter, []core.DBOrdering{
		{Field: "date", Ascending: true},
		{Field: "created_at", Ascending: true},
	})
	if err != nil {
		return ClassReport{}, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date.Time) {
			return records[i].Date.Before(records[j].Date.Time)
		}
		return studentName(records[i]) < studentName(records[j])
	})

	report := ClassReport{
		Students: make(map[string]*StudentReportEntry),
	}
	for _, rec := range records {
		key := byStudentID(rec)
		bucket, ok := report.Students[key]
		if !ok {
			bucket = &StudentReportEntry{Student: rec.Student}
			report.Students[key] = bucket
		}
		bucket.add(rec)
		bucket.Records = append(bucket.Records, rec)
	}
	report.Summary = ReportSummary{
		TotalStudents: len(report.Students),
		TotalRecords:  len(records),
		Filters:       filter,
	}
	return report, nil
}

func studentName(r Record) string {
	if r.Student != nil {
		return r.Student.FullName
	}
	return ""
}
