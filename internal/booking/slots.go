package booking

import "fmt"

const (
	firstSlotMinute = 9 * 60
	lastSlotMinute  = 17 * 60
	slotStepMinutes = 30
)

var slotSet = func() map[string]struct{} {
	set := make(map[string]struct{})
	for _, s := range TimeSlots() {
		set[s] = struct{}{}
	}
	return set
}()

// TimeSlots lists the bookable start times, 09:00 through 17:00 inclusive in
// half-hour steps.
func TimeSlots() []string {
	slots := make([]string, 0, (lastSlotMinute-firstSlotMinute)/slotStepMinutes+1)
	for m := firstSlotMinute; m <= lastSlotMinute; m += slotStepMinutes {
		slots = append(slots, fmt.Sprintf("%02d:%02d", m/60, m%60))
	}
	return slots
}

func IsValidSlot(slot string) bool {
	_, ok := slotSet[slot]
	return ok
}
