package validation

import (
	"encoding/json"
	"fmt"
)

// Rank classifies a candidate or a configuration.
type Rank string

const (
	RankPass    Rank = "PASS"
	RankWarning Rank = "WARNING"
	RankBlock   Rank = "BLOCK"
)

// Severity orders ranks for sorting: PASS < WARNING < BLOCK.
func (r Rank) Severity() int {
	switch r {
	case RankPass:
		return 0
	case RankWarning:
		return 1
	default:
		return 2
	}
}

// Worse returns the more severe of two ranks.
func (r Rank) Worse(other Rank) Rank {
	if other.Severity() > r.Severity() {
		return other
	}
	return r
}

func (r Rank) Valid() bool {
	return r == RankPass || r == RankWarning || r == RankBlock
}

func (r *Rank) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if !Rank(s).Valid() {
		return fmt.Errorf("invalid rank %q", s)
	}
	*r = Rank(s)
	return nil
}

// Check identifies one compatibility rule.
type Check string

const (
	CheckStringing     Check = "stringing"
	CheckVocCold       Check = "voc_cold"
	CheckMPPTRange     Check = "mppt_range"
	CheckStartVoltage  Check = "start_voltage"
	CheckMPPTCurrent   Check = "mppt_current"
	CheckStringCount   Check = "string_count"
	CheckDCACRatio     Check = "dc_ac_ratio"
	CheckHybrid        Check = "hybrid_required"
	CheckBatteryVolt   Check = "battery_voltage"
	CheckVoltageClass  Check = "lv_hv_mismatch"
	CheckPhase         Check = "phase"
	CheckStorageTarget Check = "storage_target"
)

// Reason is the explanation attached to a non-PASS check result.
type Reason struct {
	Check    Check  `json:"check"`
	Severity Rank   `json:"severity"`
	Message  string `json:"message"`
}

// Outcome is the overall rank of a candidate and the reasons behind it.
type Outcome struct {
	Rank    Rank     `json:"rank"`
	Reasons []Reason `json:"reasons"`
}

func Pass() Outcome {
	return Outcome{Rank: RankPass, Reasons: []Reason{}}
}

// Add records a failed check and raises the rank if needed.
func (o *Outcome) Add(check Check, severity Rank, format string, args ...any) {
	o.Reasons = append(o.Reasons, Reason{
		Check:    check,
		Severity: severity,
		Message:  fmt.Sprintf(format, args...),
	})
	if o.Rank == "" {
		o.Rank = RankPass
	}
	o.Rank = o.Rank.Worse(severity)
}

// Messages returns the human readable reasons in check order.
func (o Outcome) Messages() []string {
	out := make([]string, 0, len(o.Reasons))
	for _, r := range o.Reasons {
		out = append(out, r.Message)
	}
	return out
}

// Blocked reports whether downstream commercial actions must be refused.
func (o Outcome) Blocked() bool {
	return o.Rank == RankBlock
}
