// Package validation evaluates the electrical compatibility of a PV module,
// an inverter and an optional battery wired in a given stringing layout.
// Every check is a pure function of its inputs; Validate runs them in a
// fixed order and folds the results into a single Outcome.
package validation

import (
	"errors"

	"pv-configurator/internal/equipment"
	"pv-configurator/internal/stringing"
)

// Fixed electrical limits.
const (
	MPPTWindowMinV   = 150.0
	MPPTWindowMaxV   = 850.0
	StartVoltageV    = 180.0
	MaxMPPTCurrentA  = 30.0
	DCACWarnRatio    = 1.3
	DCACBlockRatio   = 1.5
	VoltageClassEdge = 1000.0
)

// Input is everything the checks look at for one candidate.
type Input struct {
	Module   equipment.PVModule
	Inverter equipment.Inverter
	// InverterUnits is the number of parallel inverter units; 0 means 1.
	InverterUnits int
	Layout        stringing.Layout
	Battery       *equipment.Battery
	// ProjectPhases is the site grid phase count; 0 means unknown.
	ProjectPhases int
}

func (in Input) units() int {
	if in.InverterUnits < 1 {
		return 1
	}
	return in.InverterUnits
}

// MPPTInputs is the MPPT count across all parallel units.
func (in Input) MPPTInputs() int {
	return in.Inverter.MPPTCount * in.units()
}

// ACPowerW is the rated AC power across all parallel units.
func (in Input) ACPowerW() float64 {
	return in.Inverter.PowerW * float64(in.units())
}

// StringVoltage is the operating voltage of one string at max power.
func (in Input) StringVoltage() float64 {
	return in.Module.Vmp * float64(in.Layout.PanelsPerString)
}

// DCACRatio is installed DC watts over inverter AC watts. ok is false when
// the inverter has no rated AC power.
func (in Input) DCACRatio() (ratio float64, ok bool) {
	ac := in.ACPowerW()
	if ac <= 0 {
		return 0, false
	}
	return in.Module.PowerW * float64(in.Layout.TotalPanelsUsed) / ac, true
}

type check func(in Input, out *Outcome)

var checks = []check{
	checkVocCold,
	checkMPPTRange,
	checkStartVoltage,
	checkMPPTCurrent,
	checkStringCount,
	checkDCACRatio,
	checkHybrid,
	checkBatteryVoltage,
	checkVoltageClass,
	checkPhase,
}

// Validate runs every compatibility check against a feasible layout.
func Validate(in Input) Outcome {
	out := Pass()
	for _, c := range checks {
		c(in, &out)
	}
	return out
}

// Infeasible is the outcome for a candidate with no stringing layout. The
// electrical checks are not run.
func Infeasible(totalPanels, maxPanelsPerString, mpptInputs int) Outcome {
	out := Pass()
	err := stringing.Diagnose(totalPanels, maxPanelsPerString, mpptInputs)
	if errors.Is(err, stringing.ErrStringCountExceedsMPPT) {
		out.Add(CheckStringing, RankBlock,
			"String count (%d) exceeds MPPT inputs (%d)",
			stringing.RequiredStrings(totalPanels, maxPanelsPerString), mpptInputs)
		return out
	}
	out.Add(CheckStringing, RankBlock, "No valid stringing configuration for %d panels", totalPanels)
	return out
}

// Evaluate derives the layout for totalPanels and validates it, or returns
// the infeasible outcome. The layout is the zero value when infeasible.
func Evaluate(module equipment.PVModule, inverter equipment.Inverter, units, totalPanels int,
	battery *equipment.Battery, projectPhases int) (stringing.Layout, Outcome) {
	in := Input{
		Module:        module,
		Inverter:      inverter,
		InverterUnits: units,
		Battery:       battery,
		ProjectPhases: projectPhases,
	}
	maxPerString := stringing.MaxPanelsPerString(inverter.MaxDCVoltage, module.Voc)
	layout, ok := stringing.Compute(totalPanels, maxPerString, in.MPPTInputs())
	if !ok {
		return stringing.Layout{}, Infeasible(totalPanels, maxPerString, in.MPPTInputs())
	}
	in.Layout = layout
	return layout, Validate(in)
}
