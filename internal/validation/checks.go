package validation

import (
	"pv-configurator/internal/equipment"
	"pv-configurator/internal/stringing"
)

func checkVocCold(in Input, out *Outcome) {
	coldVoc := in.Module.Voc * stringing.ColdTemperatureFactor * float64(in.Layout.PanelsPerString)
	if coldVoc > in.Inverter.MaxDCVoltage {
		out.Add(CheckVocCold, RankBlock,
			"String Voc at low temperature (%.1fV) exceeds inverter max DC voltage (%.0fV)",
			coldVoc, in.Inverter.MaxDCVoltage)
	}
}

func checkMPPTRange(in Input, out *Outcome) {
	v := in.StringVoltage()
	if v < MPPTWindowMinV || v > MPPTWindowMaxV {
		out.Add(CheckMPPTRange, RankBlock,
			"String voltage (%.1fV) is outside the MPPT range (%.0f-%.0fV)",
			v, MPPTWindowMinV, MPPTWindowMaxV)
	}
}

func checkStartVoltage(in Input, out *Outcome) {
	v := in.StringVoltage()
	if v < StartVoltageV {
		out.Add(CheckStartVoltage, RankBlock,
			"String voltage (%.1fV) is below the inverter start voltage (%.0fV)", v, StartVoltageV)
	}
}

// Series strings carry the module current unchanged, so Imp is compared directly.
func checkMPPTCurrent(in Input, out *Outcome) {
	if in.Module.Imp > MaxMPPTCurrentA {
		out.Add(CheckMPPTCurrent, RankBlock,
			"Module current (%.1fA) exceeds the MPPT input current limit (%.0fA)",
			in.Module.Imp, MaxMPPTCurrentA)
	}
}

func checkStringCount(in Input, out *Outcome) {
	if in.Layout.StringCount > in.MPPTInputs() {
		out.Add(CheckStringCount, RankBlock,
			"String count (%d) exceeds MPPT inputs (%d)", in.Layout.StringCount, in.MPPTInputs())
	}
}

func checkDCACRatio(in Input, out *Outcome) {
	ratio, ok := in.DCACRatio()
	if !ok {
		return
	}
	switch {
	case ratio > DCACBlockRatio:
		out.Add(CheckDCACRatio, RankBlock,
			"DC/AC ratio %.2f exceeds the maximum of %.1f", ratio, DCACBlockRatio)
	case ratio > DCACWarnRatio:
		out.Add(CheckDCACRatio, RankWarning,
			"DC/AC ratio %.2f is above the recommended %.1f", ratio, DCACWarnRatio)
	}
}

func checkHybrid(in Input, out *Outcome) {
	if in.Battery == nil || in.Inverter.Type == equipment.InverterHybrid {
		return
	}
	out.Add(CheckHybrid, RankBlock,
		"Battery requires a HYBRID inverter (selected inverter is %s)", in.Inverter.Type)
}

func checkBatteryVoltage(in Input, out *Outcome) {
	if in.Battery == nil {
		return
	}
	low, high, ok := in.Inverter.BatteryVoltageBand()
	if !ok {
		return
	}
	v := in.Battery.NominalVoltage
	switch {
	case high <= 0 && v < low:
		out.Add(CheckBatteryVolt, RankBlock,
			"Battery voltage (%.0fV) is below the inverter battery minimum (%.0fV)", v, low)
	case high > 0 && (v < low || v > high):
		out.Add(CheckBatteryVolt, RankBlock,
			"Battery voltage (%.0fV) is outside the inverter battery range (%.0f-%.0fV)", v, low, high)
	}
}

func checkVoltageClass(in Input, out *Outcome) {
	stringHV := in.StringVoltage() > VoltageClassEdge
	inverterHV := in.Inverter.MaxDCVoltage > VoltageClassEdge
	if stringHV == inverterHV {
		return
	}
	out.Add(CheckVoltageClass, RankBlock,
		"Voltage class mismatch: string is %s (%.0fV) but inverter is %s (%.0fV max DC)",
		voltageClass(stringHV), in.StringVoltage(), voltageClass(inverterHV), in.Inverter.MaxDCVoltage)
}

func voltageClass(high bool) string {
	if high {
		return "high voltage"
	}
	return "low voltage"
}

func checkPhase(in Input, out *Outcome) {
	inv, site := in.Inverter.Phases, in.ProjectPhases
	switch {
	case inv == 1 && site == 3:
		out.Add(CheckPhase, RankBlock, "Single-phase inverter cannot serve a three-phase installation")
	case inv == 3 && site == 1:
		out.Add(CheckPhase, RankWarning, "Three-phase inverter on a single-phase installation")
	}
}
