package hardware

// Motor is a driver handle for one motor on the bus. Readings are cached and
// only change on Update.
type Motor interface {
	// CurrentControl takes a normalised current in [-1, 1].
	CurrentControl(out float32)
	GetAngle() float32   // rad
	GetSpeed() float32   // rotor rpm
	GetCurrent() float32 // A
	GetTemp() float32    // degC
	// Update consumes pending feedback without waiting for more.
	Update()
	Model() Model
}

// Monitor is implemented by drivers that report their own health.
type Monitor interface {
	Monitor()
}

// MotorState is a snapshot of the cached readings of a motor.
type MotorState struct {
	Model   string  `json:"model"`
	Angle   float32 `json:"angle"`
	RPM     float32 `json:"rpm"`
	Omega   float32 `json:"omega"`
	Current float32 `json:"current"`
	Temp    float32 `json:"temp"`
}
