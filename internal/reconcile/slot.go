package reconcile

import (
	"errors"
	"fmt"
	"strings"
)

// Slot is a measurement time of day. One bucket exists per slot per date.
type Slot string

const (
	SlotWakeup  Slot = "wakeup"
	SlotMorning Slot = "morning"
	SlotNoon    Slot = "noon"
	SlotEvening Slot = "evening"
)

// Slots lists every slot in display order.
var Slots = []Slot{SlotWakeup, SlotMorning, SlotNoon, SlotEvening}

// ErrUnrecognizedLabel marks a server meal_type with no slot. Rows carrying
// one are skipped.
var ErrUnrecognizedLabel = errors.New("unrecognized meal_type label")

var slotLabels = map[Slot]string{
	SlotWakeup:  "기상직후",
	SlotMorning: "아침",
	SlotNoon:    "점심",
	SlotEvening: "저녁",
}

var labelSlots = map[string]Slot{
	"기상직후": SlotWakeup,
	"아침":   SlotMorning,
	"점심":   SlotNoon,
	"저녁":   SlotEvening,
}

// Label is the server-side meal_type for s.
func (s Slot) Label() string { return slotLabels[s] }

func (s Slot) Valid() bool {
	_, ok := slotLabels[s]
	return ok
}

// ParseSlot maps a server label or an English slot name to a Slot.
func ParseSlot(label string) (Slot, error) {
	label = strings.TrimSpace(label)
	if s, ok := labelSlots[label]; ok {
		return s, nil
	}
	if s := Slot(strings.ToLower(label)); s.Valid() {
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnrecognizedLabel, label)
}
