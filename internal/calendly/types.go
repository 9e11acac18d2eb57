package calendly

// User is a Calendly user resource. The authenticated user carries the
// organization URI every event listing is scoped to.
type User struct {
	URI                 string `json:"uri"`
	Name                string `json:"name"`
	Email               string `json:"email"`
	CurrentOrganization string `json:"current_organization"`
}

type userResponse struct {
	Resource User `json:"resource"`
}

// Event is a scheduled event. Invitees and the organizer are fetched
// separately and attached by the client.
type Event struct {
	URI              string            `json:"uri"`
	Name             string            `json:"name"`
	Status           string            `json:"status"`
	StartTime        string            `json:"start_time"`
	EventMemberships []EventMembership `json:"event_memberships"`

	Invitees  []Invitee `json:"-"`
	Organizer User      `json:"-"`
}

// EventMembership links an event to its host user.
type EventMembership struct {
	User string `json:"user"`
}

// Invitee is one booked participant on an event. no_show and
// cancellation come back as nested objects when set, null otherwise.
type Invitee struct {
	Email        string           `json:"email"`
	Name         string           `json:"name"`
	Status       string           `json:"status"`
	Rescheduled  bool             `json:"rescheduled"`
	NoShow       *NoShow          `json:"no_show"`
	Cancellation *Cancellation    `json:"cancellation"`
	Questions    []QuestionAnswer `json:"questions_and_answers"`
}

// NoShow marks an invitee who missed the call.
type NoShow struct {
	URI string `json:"uri"`
}

// Cancellation records who canceled the booking.
type Cancellation struct {
	CanceledBy string `json:"canceled_by"`
	Reason     string `json:"reason"`
}

// IsNoShow reports whether the invitee missed the call.
func (i Invitee) IsNoShow() bool { return i.NoShow != nil }

// IsCanceled reports whether the booking was canceled.
func (i Invitee) IsCanceled() bool { return i.Cancellation != nil || i.Status == "canceled" }

// QuestionAnswer is one booking-form response.
type QuestionAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type eventList struct {
	Collection []Event    `json:"collection"`
	Pagination pagination `json:"pagination"`
}

type inviteeList struct {
	Collection []Invitee  `json:"collection"`
	Pagination pagination `json:"pagination"`
}

type pagination struct {
	NextPageToken string `json:"next_page_token"`
}
