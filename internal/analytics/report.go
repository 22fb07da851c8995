// Package analytics builds the attendance and enrollment reports.
//
// A Source does the first grouping and the joins in the database; the
// functions in this file regroup and filter those rows and hold no I/O.
package analytics

import (
	"sort"

	"studentrecords/internal/attendance"
)

// LowAttendanceThreshold is the highest present/total ratio still reported
// as low attendance.
const LowAttendanceThreshold = 0.75

// Filter narrows a report to students matching every set field. Zero values
// count as unset.
type Filter struct {
	Batch *int    `json:"batch"`
	Dept  *string `json:"dept"`
	Sem   *int    `json:"sem"`
}

func (f Filter) normalized() Filter {
	if f.Batch != nil && *f.Batch == 0 {
		f.Batch = nil
	}
	if f.Dept != nil && *f.Dept == "" {
		f.Dept = nil
	}
	if f.Sem != nil && *f.Sem == 0 {
		f.Sem = nil
	}
	return f
}

// GroupCount is the number of students in one (batch, dept).
type GroupCount struct {
	Batch int
	Dept  string
	Count int
}

// AttendanceTally is the record count and present count of one student over
// a date range.
type AttendanceTally struct {
	StudentID string
	Name      string
	Batch     int
	Dept      string
	Total     int
	Present   int
}

// IntakeRow pairs the enrollment of a (batch, dept) with its declared intake.
type IntakeRow struct {
	Batch    int
	Dept     string
	Enrolled int
	Intake   int
}

// YearDistribution is one batch of Report 1.
type YearDistribution struct {
	Batch         int            `json:"batch"`
	TotalStudents int            `json:"totalStudents"`
	StudentCount  map[string]int `json:"studentCount"`
}

// Absentee is one row of Report 2.
type Absentee struct {
	Date      attendance.Date `json:"date"`
	Name      string          `json:"name"`
	Sem       int             `json:"sem"`
	Branch    string          `json:"branch"`
	Batch     int             `json:"batch"`
	Email     string          `json:"email"`
	StudentID string          `json:"student_id"`
	Present   bool            `json:"present"`
}

// StudentDetails identifies a student in Report 3.
type StudentDetails struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Batch     int    `json:"batch"`
	Dept      string `json:"dept"`
}

// LowAttendance is one row of Report 3.
type LowAttendance struct {
	StudentDetails StudentDetails `json:"student_details"`
	Attendance     float64        `json:"attendance"`
}

// BranchIntake is one department of a batch in Report 4.
type BranchIntake struct {
	TotalStudents       int `json:"totalStudents"`
	TotalStudentsIntake int `json:"totalStudentsIntake"`
	AvailableIntake     int `json:"availableIntake"`
}

// BatchIntake is one batch of Report 4.
type BatchIntake struct {
	Batch               int                     `json:"batch"`
	TotalStudents       int                     `json:"totalStudents"`
	TotalStudentsIntake int                     `json:"totalStudentsIntake"`
	AvailableIntake     int                     `json:"availableIntake"`
	Branches            map[string]BranchIntake `json:"branches"`
}

// GroupByBatch folds per-(batch, dept) counts into one entry per batch,
// ordered by batch.
func GroupByBatch(rows []GroupCount) []YearDistribution {
	byBatch := map[int]*YearDistribution{}
	for _, r := range rows {
		y, ok := byBatch[r.Batch]
		if !ok {
			y = &YearDistribution{Batch: r.Batch, StudentCount: map[string]int{}}
			byBatch[r.Batch] = y
		}
		y.StudentCount[r.Dept] += r.Count
		y.TotalStudents += r.Count
	}
	out := make([]YearDistribution, 0, len(byBatch))
	for _, y := range byBatch {
		out = append(out, *y)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Batch < out[j].Batch })
	return out
}

// SelectLowAttendance keeps students whose present/total ratio is at or
// below the threshold. Students without records are never reported. Rows
// are ordered by ratio, then name.
func SelectLowAttendance(tallies []AttendanceTally) []LowAttendance {
	out := []LowAttendance{}
	for _, t := range tallies {
		if t.Total <= 0 {
			continue
		}
		ratio := float64(t.Present) / float64(t.Total)
		if ratio > LowAttendanceThreshold {
			continue
		}
		out = append(out, LowAttendance{
			StudentDetails: StudentDetails{StudentID: t.StudentID, Name: t.Name, Batch: t.Batch, Dept: t.Dept},
			Attendance:     ratio,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Attendance != out[j].Attendance {
			return out[i].Attendance < out[j].Attendance
		}
		return out[i].StudentDetails.Name < out[j].StudentDetails.Name
	})
	return out
}

// SummarizeIntake groups enrollment against intake per batch. When batch is
// set only that batch is returned.
func SummarizeIntake(rows []IntakeRow, batch *int) []BatchIntake {
	byBatch := map[int]*BatchIntake{}
	for _, r := range rows {
		b, ok := byBatch[r.Batch]
		if !ok {
			b = &BatchIntake{Batch: r.Batch, Branches: map[string]BranchIntake{}}
			byBatch[r.Batch] = b
		}
		b.Branches[r.Dept] = BranchIntake{
			TotalStudents:       r.Enrolled,
			TotalStudentsIntake: r.Intake,
			AvailableIntake:     r.Intake - r.Enrolled,
		}
		b.TotalStudents += r.Enrolled
		b.TotalStudentsIntake += r.Intake
	}
	out := make([]BatchIntake, 0, len(byBatch))
	for _, b := range byBatch {
		if batch != nil && b.Batch != *batch {
			continue
		}
		b.AvailableIntake = b.TotalStudentsIntake - b.TotalStudents
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Batch < out[j].Batch })
	return out
}
