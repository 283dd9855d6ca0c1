// Package visit defines the visit record stream produced by the crawler and
// the table formats it is persisted in.
package visit

const (
	// Done and NotDone are the two values of a questionnaire completion flag.
	Done    = "已填寫"
	NotDone = "未填寫"

	// NoVisitSession is the session label of the placeholder row written for
	// a work assignment without any recorded visit.
	NoVisitSession = "無訪次"
)

// Record is one interviewer visit attempt to a sample household. Every field
// is kept as the text it was extracted as.
type Record struct {
	SampleID          string
	WorkID            string
	Date              string
	Session           string
	ResultCode        string
	RecordURL         string
	ViewURL           string
	LogsURL           string
	InterviewerNo     string
	InterviewerName   string
	ContactMethod     string
	ContactAnsweredAt string
	T16Answer         string
	Sampling          string
	SamplingQ         string
	InterviewRecord   string
	HasFill           string
}

// Columns is the header of the record table, in file order.
var Columns = []string{
	"SampleID", "WorkID", "Date", "Session", "ResultCode", "RecordURL",
	"ViewURL", "LogsURL", "InterviewerNo", "InterviewerName",
	"ContactMethod", "ContactAnsweredAt", "T16Answer",
	"Sampling", "SamplingQ", "InterviewRecord", "HasFill",
}

// Values returns the record's fields in Columns order.
func (r Record) Values() []string {
	return []string{
		r.SampleID, r.WorkID, r.Date, r.Session, r.ResultCode, r.RecordURL,
		r.ViewURL, r.LogsURL, r.InterviewerNo, r.InterviewerName,
		r.ContactMethod, r.ContactAnsweredAt, r.T16Answer,
		r.Sampling, r.SamplingQ, r.InterviewRecord, r.HasFill,
	}
}

// field returns a pointer to the field stored under a column name, or nil
// for unknown columns.
func (r *Record) field(column string) *string {
	switch column {
	case "SampleID":
		return &r.SampleID
	case "WorkID":
		return &r.WorkID
	case "Date":
		return &r.Date
	case "Session":
		return &r.Session
	case "ResultCode":
		return &r.ResultCode
	case "RecordURL":
		return &r.RecordURL
	case "ViewURL":
		return &r.ViewURL
	case "LogsURL":
		return &r.LogsURL
	case "InterviewerNo":
		return &r.InterviewerNo
	case "InterviewerName":
		return &r.InterviewerName
	case "ContactMethod":
		return &r.ContactMethod
	case "ContactAnsweredAt":
		return &r.ContactAnsweredAt
	case "T16Answer":
		return &r.T16Answer
	case "Sampling":
		return &r.Sampling
	case "SamplingQ":
		return &r.SamplingQ
	case "InterviewRecord":
		return &r.InterviewRecord
	case "HasFill":
		return &r.HasFill
	}
	return nil
}

// Placeholder returns the row recorded for a work assignment that has no visits.
func Placeholder(sampleID, workID, recordURL, interviewerNo, interviewerName string) Record {
	return Record{
		SampleID:        sampleID,
		WorkID:          workID,
		Session:         NoVisitSession,
		RecordURL:       recordURL,
		InterviewerNo:   interviewerNo,
		InterviewerName: interviewerName,
		HasFill:         "0",
	}
}
