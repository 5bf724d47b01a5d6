package events

// Event is the one canonical event shape. Source documents arrive in
// several forms; everything is normalized to this at the adapter boundary
// and nothing downstream branches on the original shape.
type Event struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Discipline string `json:"discipline"`
	Region     string `json:"region"`
	Venue      string `json:"venue"`
	URL        string `json:"url"`
	StartDate  string `json:"start_date"` // calendar date, YYYY-MM-DD
	AddedAt    string `json:"added_at"`   // calendar date the event was first published/updated
}
