package session

// AxisStatus mirrors the per-axis hardware state from the last poll.
type AxisStatus struct {
	Idle  bool    `json:"isIdle"`
	Speed float64 `json:"speed"`
	Pos   float64 `json:"pos"`
}

// LimitStatus holds the safety and limit-switch inputs, refreshed on
// the heavy poll tick.
type LimitStatus struct {
	EmergencyStop bool `json:"emergencyStop"`
	DoorSwitch    bool `json:"doorSwitch"`
	XPlus         bool `json:"xPlus"`
	XMinus        bool `json:"xMinus"`
	YPlus         bool `json:"yPlus"`
	YMinus        bool `json:"yMinus"`
	ZPlus         bool `json:"zPlus"`
	ZMinus        bool `json:"zMinus"`
}

// Status is the externally observable controller snapshot.
type Status struct {
	Open   bool        `json:"open"`
	X      AxisStatus  `json:"x"`
	Y      AxisStatus  `json:"y"`
	Z      AxisStatus  `json:"z"`
	Limits LimitStatus `json:"limits"`
}

func (s Status) Moving() bool {
	return s.Open && !(s.X.Idle && s.Y.Idle && s.Z.Idle)
}
