package internal

// RawRow is one parsed line of the input. Column count varies row to row.
type RawRow []string

type Eligibility string

const (
	EligibleYes Eligibility = "Tak"
	EligibleNo  Eligibility = "Nie"
)

type Participant struct {
	FirstName string
	LastName  string
	Duration  string
}

type ClassifiedParticipant struct {
	LastName        string
	FirstName       string
	Eligibility     Eligibility
	Duration        string
	DurationMinutes *int
}

type InputType string

const (
	InputTSV  InputType = "tsv"
	InputXLSX InputType = "xlsx"
	InputHTML InputType = "html"
	InputEML  InputType = "eml"
)

type RunStatus string

const (
	RunWritten     RunStatus = "written"
	RunWriteFailed RunStatus = "write_failed"
)

type RunRow struct {
	ID           int
	TraceID      string
	ReportID     *int
	InputPath    string
	OutputPath   string
	Status       string
	ScannedRows  int
	Participants int
	Eligible     int
	CreatedAt    string
}

type ReportRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}
