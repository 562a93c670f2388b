package enum

// Crew is the day-part or weekend pattern that dominates a user's activity.
//
//go:generate go tool enumer -type=Crew -trimprefix=Crew
type Crew int

const (
	// CrewMixed is used when no pattern dominates, or there is no activity at all.
	CrewMixed Crew = iota
	CrewNight
	CrewMorning
	CrewAfternoon
	CrewEvening
	// CrewWeekend takes priority over every day-part crew.
	CrewWeekend
)

// Label returns the display name of the crew.
func (c Crew) Label() string {
	if c == CrewMixed {
		return "Mixed"
	}
	return c.String() + " Crew"
}
