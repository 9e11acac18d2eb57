package intercom

// Contact is an Intercom contact as returned by the contacts API.
type Contact struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	Name             string         `json:"name"`
	CreatedAt        int64          `json:"created_at"`
	LastSeenAt       int64          `json:"last_seen_at"`
	Location         Location       `json:"location"`
	CustomAttributes map[string]any `json:"custom_attributes"`
}

// Location is the contact's geo block.
type Location struct {
	Country string `json:"country"`
	City    string `json:"city"`
}

type contactList struct {
	Data  []Contact `json:"data"`
	Pages pages     `json:"pages"`
}

type pages struct {
	Next *pageCursor `json:"next"`
}

type pageCursor struct {
	StartingAfter string `json:"starting_after"`
}

// Conversation is one support thread for a contact.
type Conversation struct {
	ID        string              `json:"id"`
	CreatedAt int64               `json:"created_at"`
	State     string              `json:"state"`
	Source    ConversationSource  `json:"source"`
	Rating    *ConversationRating `json:"conversation_rating"`
	Parts     ConversationParts   `json:"conversation_parts"`
}

// ConversationParts wraps the reply list.
type ConversationParts struct {
	Parts []ConversationPart `json:"conversation_parts"`
}

// ConversationPart is a single reply in a thread.
type ConversationPart struct {
	Body string `json:"body"`
}

// ConversationSource holds the opening message.
type ConversationSource struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ConversationRating is the CSAT block on a closed conversation.
type ConversationRating struct {
	Rating int `json:"rating"`
}

type conversationSearchResponse struct {
	Conversations []Conversation `json:"conversations"`
	Pages         pages          `json:"pages"`
}
