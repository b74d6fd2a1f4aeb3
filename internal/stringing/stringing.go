package stringing

import (
	"errors"
	"math"
)

// ColdTemperatureFactor models the worst-case rise of Voc on a cold morning.
const ColdTemperatureFactor = 1.12

var (
	ErrStringCountExceedsMPPT = errors.New("string count exceeds MPPT inputs")
	ErrNoValidStringing       = errors.New("no valid stringing configuration")
)

// Layout is a wiring of panels into series strings, one string per MPPT input.
type Layout struct {
	PanelsPerString int `json:"panels_per_string"`
	StringCount     int `json:"string_count"`
	TotalPanelsUsed int `json:"total_panels_used"`
}

// MaxPanelsPerString returns how many modules fit in series before the cold
// open-circuit voltage exceeds the inverter's DC input limit. Never less than 1.
func MaxPanelsPerString(maxDCVoltage, voc float64) int {
	if voc <= 0 || maxDCVoltage <= 0 {
		return 1
	}
	n := int(math.Floor(maxDCVoltage / (voc * ColdTemperatureFactor)))
	if n < 1 {
		return 1
	}
	return n
}

// Compute splits totalPanels evenly across the MPPT inputs. The returned
// layout may wire fewer panels than requested when the split is uneven;
// TotalPanelsUsed is the number actually wired. ok is false when no layout
// satisfies the per-string cap and the MPPT count together.
func Compute(totalPanels, maxPanelsPerString, mpptInputs int) (layout Layout, ok bool) {
	if totalPanels <= 0 || mpptInputs <= 0 || maxPanelsPerString <= 0 {
		return Layout{}, false
	}

	// Fewer panels than inputs: one single-panel string per panel.
	strings := mpptInputs
	if totalPanels < strings {
		strings = totalPanels
	}

	perString := totalPanels / strings
	if perString > maxPanelsPerString {
		capped := ceilDiv(totalPanels, maxPanelsPerString)
		if capped > mpptInputs {
			return Layout{}, false
		}
		return Layout{
			PanelsPerString: maxPanelsPerString,
			StringCount:     capped,
			TotalPanelsUsed: maxPanelsPerString * capped,
		}, true
	}

	return Layout{
		PanelsPerString: perString,
		StringCount:     strings,
		TotalPanelsUsed: perString * strings,
	}, true
}

// Diagnose explains why Compute rejected a request. It returns nil when a
// layout exists.
func Diagnose(totalPanels, maxPanelsPerString, mpptInputs int) error {
	if _, ok := Compute(totalPanels, maxPanelsPerString, mpptInputs); ok {
		return nil
	}
	if totalPanels > 0 && mpptInputs > 0 && maxPanelsPerString > 0 &&
		ceilDiv(totalPanels, maxPanelsPerString) > mpptInputs {
		return ErrStringCountExceedsMPPT
	}
	return ErrNoValidStringing
}

// RequiredStrings is the string count needed to keep every string at or
// under the voltage cap.
func RequiredStrings(totalPanels, maxPanelsPerString int) int {
	if maxPanelsPerString <= 0 {
		return 0
	}
	return ceilDiv(totalPanels, maxPanelsPerString)
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
