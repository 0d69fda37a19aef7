package consts

const (
	FlatVoltage  = 1.0  // Flat-start voltage magnitude (p.u.)
	DefaultSbase = 100  // Power base (MVA)
	DefaultTol   = 1e-6 // Power mismatch tolerance (p.u.)
	DefaultIters = 25   // Iteration cap for Newton-family solvers
	GaussIters   = 1000 // Gauss-Seidel converges far slower than NR
)
