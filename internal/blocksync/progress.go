package blocksync

// EventID names one stage of the fixed progress taxonomy spec.md §4.6
// defines.
type EventID string

const (
	EventBlockInit       EventID = "block.init"
	EventBlockFile       EventID = "block.file"
	EventBlockMain       EventID = "block.main"
	EventTXOMain         EventID = "txoi.main"
	EventClaimsInit      EventID = "claims.init"
	EventClaimsInsert    EventID = "claims.insert"
	EventClaimsTakeovers EventID = "claims.takeovers"
	EventClaimsStakes    EventID = "claims.stakes"
	EventClaimsMain      EventID = "claims.main"
	EventSupportsInit    EventID = "supports.init"
	EventSupportsInsert  EventID = "supports.insert"
	EventSupportsMain    EventID = "supports.main"
)

// Event is one progress update, carrying how much of a unit of work is
// done against its total (spec.md §4.6: "{id, done, total, units}").
// The terminal event of a stream sets Done to -1. BlockFile and Height
// are only populated by incremental-sync events, which spec.md §4.6
// says carry "(block_file, height)" instead of a done/total pair.
type Event struct {
	ID        EventID
	Done      int64
	Total     int64
	Units     string
	BlockFile int
	Height    int32
}

// Terminal reports whether this is the stream-ending event.
func (e Event) Terminal() bool { return e.Done == -1 }

// TerminalEvent builds the terminal event for id.
func TerminalEvent(id EventID, total int64, units string) Event {
	return Event{ID: id, Done: -1, Total: total, Units: units}
}
