package models

import "time"

// Status is the attendance state recorded for a student
type Status string

const (
	StatusPresent Status = "Present"
	StatusAbsent  Status = "Absent"
)

// ValidStatuses defines allowed attendance statuses
var ValidStatuses = map[Status]bool{
	StatusPresent: true,
	StatusAbsent:  true,
}

// Layouts used for the Date and Time columns
const (
	DateLayout = "02-01-2006"
	TimeLayout = "15:04:05"
)

// Header is the fixed first row of every attendance table
var Header = []string{"Name", "Date", "Time", "Status"}

// AttendanceRecord is one row of an attendance table
type AttendanceRecord struct {
	Name   string `json:"name" binding:"required"`
	Date   string `json:"date" binding:"required"`
	Time   string `json:"time" binding:"required"`
	Status Status `json:"status" binding:"required"`
}

// NewRecord builds a record stamped with the date and time of now
func NewRecord(name string, status Status, now time.Time) AttendanceRecord {
	return AttendanceRecord{
		Name:   name,
		Date:   now.Format(DateLayout),
		Time:   now.Format(TimeLayout),
		Status: status,
	}
}

// Row returns the record as CSV fields in header order
func (r AttendanceRecord) Row() []string {
	return []string{r.Name, r.Date, r.Time, string(r.Status)}
}

// RecordFromRow converts CSV fields back into a record.
// ok is false when the row does not have exactly four fields.
func RecordFromRow(row []string) (AttendanceRecord, bool) {
	if len(row) != len(Header) {
		return AttendanceRecord{}, false
	}
	return AttendanceRecord{
		Name:   row[0],
		Date:   row[1],
		Time:   row[2],
		Status: Status(row[3]),
	}, true
}

// Summary holds attendance counts for one scope
type Summary struct {
	Scope   Scope `json:"scope"`
	Total   int   `json:"total"`
	Present int   `json:"present"`
	Absent  int   `json:"absent"`
	Today   int   `json:"today"`
}

// MarkRequest is the request body for marking attendance
type MarkRequest struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
}
