package esccapi

// WorkItem is one survey work assignment from the work listing.
type WorkItem struct {
	WorkID          string
	SampleID        string
	InterviewerNo   string
	InterviewerName string
}

// Visit is one row of a work's visit table. ViewURL and LogURL are the
// hrefs as they appear on the page, possibly relative.
type Visit struct {
	Date    string
	Session string
	Code    string
	ViewURL string
	LogURL  string
}

// Contact is the contact method (T03) answered in a visit's form result.
type Contact struct {
	Answer     string
	AnsweredAt string
}

// FormLink is a questionnaire listed on a work's record page.
type FormLink struct {
	Title string
	// Href is the form result link, empty when the form has no result yet.
	Href string
}

// FormKind is the questionnaire a record page form stands for.
type FormKind int

const (
	FormOther FormKind = iota
	FormVisitSurvey
	FormSampling
	FormSamplingQuestionnaire
	FormInterviewRecord
)

// QuestionnaireStatus is the completion of the three questionnaires of a work,
// each field is visit.Done or visit.NotDone.
type QuestionnaireStatus struct {
	Sampling        string
	SamplingQ       string
	InterviewRecord string
}
