package equipment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBattery_UsableCapacityKWh(t *testing.T) {
	assert.Equal(t, 8.0, Battery{CapacityKWh: 10, DepthOfDischarge: 80}.UsableCapacityKWh())
	assert.Equal(t, 9.0, Battery{CapacityKWh: 10, DepthOfDischarge: 90}.UsableCapacityKWh())
	// Missing DoD uses the default.
	assert.Equal(t, 4.0, Battery{CapacityKWh: 5}.UsableCapacityKWh())
}

func TestPVModule_FootprintM2(t *testing.T) {
	length, width := 2000.0, 1000.0
	m := PVModule{LengthMM: &length, WidthMM: &width}

	area, ok := m.FootprintM2()
	assert.True(t, ok)
	assert.InDelta(t, 2.0, area, 1e-9)

	_, ok = PVModule{LengthMM: &length}.FootprintM2()
	assert.False(t, ok)
}

func TestInverter_BatteryVoltageBand(t *testing.T) {
	tests := []struct {
		name     string
		inv      Inverter
		low      float64
		high     float64
		declared bool
	}{
		{"min and max", Inverter{BatteryMinVoltage: 40, BatteryMaxVoltage: 60, BatteryNominalVoltage: 48}, 40, 60, true},
		{"nominal only", Inverter{BatteryNominalVoltage: 48}, 48, 48, true},
		{"max with nominal", Inverter{BatteryMaxVoltage: 500, BatteryNominalVoltage: 400}, 400, 500, true},
		{"max only leaves low open", Inverter{BatteryMaxVoltage: 500}, 0, 500, true},
		{"nothing declared", Inverter{}, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			low, high, ok := tt.inv.BatteryVoltageBand()
			assert.Equal(t, tt.declared, ok)
			assert.Equal(t, tt.low, low)
			assert.Equal(t, tt.high, high)
		})
	}
}
