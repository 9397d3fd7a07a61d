package regulator

// stubCapability returns scripted results and records its inputs.
type stubCapability struct {
	comp   []float64
	pid    []float64
	compIn []CompensationInput
	pidIn  []PIDInput
	resets int
	tuner  *stubTuner
}

func newStubCapability() *stubCapability {
	return &stubCapability{tuner: &stubTuner{}}
}

// next pops the head of a script; the last value repeats.
func next(script *[]float64) float64 {
	s := *script
	if len(s) == 0 {
		return 0
	}
	v := s[0]
	if len(s) > 1 {
		*script = s[1:]
	}
	return v
}

func (c *stubCapability) Compensation(in CompensationInput) float64 {
	c.compIn = append(c.compIn, in)
	return next(&c.comp)
}

func (c *stubCapability) PID(in PIDInput) float64 {
	c.pidIn = append(c.pidIn, in)
	return next(&c.pid)
}

func (c *stubCapability) ResetPIDIntegral() { c.resets++ }

func (c *stubCapability) Tuner() Tuner { return c.tuner }

// stubTuner is a scripted Tuner. onStep, when set, runs on every Step.
type stubTuner struct {
	state    TunerState
	output   float64
	accuracy int
	gains    PIDGains
	onStep   func(*stubTuner)

	started []TunerParams
	fed     []float64
	steps   int
	resets  int
}

func (t *stubTuner) Start(p TunerParams) {
	t.started = append(t.started, p)
	t.state = TunerRunning
}

func (t *stubTuner) Feed(sample float64) { t.fed = append(t.fed, sample) }

func (t *stubTuner) Step() {
	t.steps++
	if t.onStep != nil {
		t.onStep(t)
	}
}

func (t *stubTuner) State() TunerState { return t.state }
func (t *stubTuner) Output() float64   { return t.output }
func (t *stubTuner) Accuracy() int     { return t.accuracy }
func (t *stubTuner) Gains() PIDGains   { return t.gains }
func (t *stubTuner) Report() string    { return "stub" }

func (t *stubTuner) Reset() {
	t.resets++
	t.state = TunerIdle
}
