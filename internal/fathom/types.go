package fathom

// Meeting is one recorded call. The API has shipped both id and
// recording_id; CallID resolves whichever is present.
type Meeting struct {
	ID                 string    `json:"id"`
	RecordingID        string    `json:"recording_id"`
	Title              string    `json:"title"`
	MeetingTitle       string    `json:"meeting_title"`
	CreatedAt          string    `json:"created_at"`
	RecordingStartTime string    `json:"recording_start_time"`
	RecordingEndTime   string    `json:"recording_end_time"`
	URL                string    `json:"url"`
	ShareURL           string    `json:"share_url"`
	DefaultSummary     string    `json:"default_summary"`
	Transcript         string    `json:"transcript"`
	ActionItems        []string  `json:"action_items"`
	RecordedBy         Recorder  `json:"recorded_by"`
	CalendarInvitees   []Invitee `json:"calendar_invitees"`
}

// CallID returns the stable identifier for the recording.
func (m Meeting) CallID() string {
	if m.RecordingID != "" {
		return m.RecordingID
	}
	return m.ID
}

// CallTitle returns the display title for the recording.
func (m Meeting) CallTitle() string {
	if m.Title != "" {
		return m.Title
	}
	if m.MeetingTitle != "" {
		return m.MeetingTitle
	}
	return "Unknown Meeting"
}

// Recorder is the host who ran the recording.
type Recorder struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Invitee is one calendar participant on a recorded call.
type Invitee struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	IsExternal *bool  `json:"is_external"`
}

type meetingList struct {
	Items      []Meeting `json:"items"`
	NextCursor string    `json:"next_cursor"`
}
