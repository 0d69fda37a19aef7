package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/edp1096/toy-powerflow/pkg/circuit"
	"github.com/edp1096/toy-powerflow/pkg/driver"
	"github.com/edp1096/toy-powerflow/pkg/netlist"
	"github.com/edp1096/toy-powerflow/pkg/solver"
	"github.com/edp1096/toy-powerflow/pkg/util"
)

// buildLynn5Bus assembles the classic lynn 5-bus example: one slack
// generator at bus 1 and four loaded buses tied by seven lines. With
// ntime > 1 the loads follow a |sin| daily shape.
func buildLynn5Bus(ntime int) *circuit.NumericalCircuit {
	nc := circuit.New(circuit.Counts{
		Nbus:    5,
		Nbranch: 7,
		Nload:   4,
		Ngen:    1,
	}, 100, ntime)

	for i := 0; i < 5; i++ {
		nc.Bus.Names[i] = fmt.Sprintf("Bus%d", i+1)
		nc.Bus.Vnom[i] = 10
	}

	type line struct {
		name    string
		f, t    int
		r, x, b float64
		rate    float64
	}
	lines := []line{
		{"Line 1-2", 0, 1, 0.05, 0.11, 0.02, 50},
		{"Line 1-3", 0, 2, 0.05, 0.11, 0.02, 50},
		{"Line 1-5", 0, 4, 0.03, 0.08, 0.02, 80},
		{"Line 2-3", 1, 2, 0.04, 0.09, 0.02, 3},
		{"Line 2-5", 1, 4, 0.04, 0.09, 0.02, 10},
		{"Line 3-4", 2, 3, 0.06, 0.13, 0.03, 30},
		{"Line 4-5", 3, 4, 0.04, 0.09, 0.02, 30},
	}
	for k, ln := range lines {
		nc.Branch.Names[k] = ln.name
		nc.Branch.F[k] = ln.f
		nc.Branch.T[k] = ln.t
		nc.Branch.R[k] = ln.r
		nc.Branch.X[k] = ln.x
		nc.Branch.B[k] = ln.b
		for t := 0; t < ntime; t++ {
			nc.Branch.Rates[k][t] = ln.rate
		}
	}

	loads := []struct {
		bus  int
		p, q float64
	}{
		{1, 40, 20}, {2, 25, 15}, {3, 40, 20}, {4, 50, 20},
	}
	for k, ld := range loads {
		nc.Load.Names[k] = fmt.Sprintf("Load@Bus%d", ld.bus+1)
		nc.Load.Bus[k] = ld.bus
		for t := 0; t < ntime; t++ {
			shape := 1.0
			if ntime > 1 {
				shape = math.Abs(math.Sin(-math.Pi + 2*math.Pi*float64(t)/float64(ntime-1)))
			}
			nc.Load.S[k][t] = complex(ld.p*shape, ld.q*shape)
		}
	}

	nc.Gen.Names[0] = "gen"
	nc.Gen.Bus[0] = 0
	nc.Gen.IsSlack[0] = true
	// slack P stays zero; Vset defaults to 1.0 pu

	return nc
}

func main() {
	useGS := flag.Bool("gs", false, "solve with Gauss-Seidel instead of Newton-Raphson")
	parallel := flag.Bool("parallel", false, "solve islands on parallel workers")
	steps := flag.Int("steps", 24, "time steps for the time series sweep")
	file := flag.String("file", "", "grid description file (default: built-in lynn 5-bus)")
	flag.Parse()

	opts := solver.DefaultOptions()
	if *useGS {
		opts.Type = solver.GaussSeidel
	}
	opts.RetryWithOtherMethods = true

	// snapshot
	var nc *circuit.NumericalCircuit
	if *file != "" {
		text, err := os.ReadFile(*file)
		if err != nil {
			log.Fatalf("reading %s: %v", *file, err)
		}
		gd, err := netlist.Parse(string(text))
		if err != nil {
			log.Fatalf("parsing %s: %v", *file, err)
		}
		nc, err = gd.Build()
		if err != nil {
			log.Fatalf("building grid: %v", err)
		}
		fmt.Printf("Loaded %q: %d buses, %d branches\n\n", gd.Title, nc.Nbus, nc.Nbranch)
	} else {
		nc = buildLynn5Bus(1)
	}
	pf := driver.NewPowerFlowDriver(nc, opts)
	pf.Parallel = *parallel
	if err := pf.Run(); err != nil {
		log.Fatalf("power flow failed: %v", err)
	}

	res := pf.Results
	fmt.Printf("Run %s converged=%v\n\n", res.RunID, res.Converged)
	fmt.Println("Bus voltages:")
	for i, v := range res.Voltage {
		fmt.Printf("  %-6s %-5s V=%s S=%s\n", nc.Bus.Names[i], res.BusTypes[i],
			util.FormatPolar(v), util.FormatPower(res.Sbus[i]))
	}
	fmt.Println("\nBranch flows:")
	for k := range res.Sf {
		fmt.Printf("  %-9s Sf=%s loading=%s\n", nc.Branch.Names[k],
			util.FormatPower(res.Sf[k]), util.FormatPercent(res.Loading[k]))
	}
	for _, rep := range res.Reports {
		fmt.Printf("\nIsland %d: %s (%s, %d iterations, error=%s)\n",
			rep.IslandID, rep.State, rep.Method, rep.Iterations, util.FormatPerUnit(rep.Error))
	}
	if s := res.Logger.String(); s != "" {
		fmt.Printf("\nLog:\n%s", s)
	}

	// time series, built-in network only (files carry a single snapshot)
	if *file != "" {
		return
	}
	tsCircuit := buildLynn5Bus(*steps)
	ts := driver.NewTimeSeriesDriver(tsCircuit, opts, 0, *steps)
	ts.Parallel = *parallel
	if err := ts.Run(); err != nil {
		log.Fatalf("time series failed: %v", err)
	}

	fmt.Printf("\nTime series over %d steps, converged=%v\n", *steps, ts.Results.Converged)
	fmt.Println("  step   min |V|      max loading")
	for row := range ts.Results.Voltage {
		minV := math.Inf(1)
		for _, v := range ts.Results.Voltage[row] {
			if m := real(v)*real(v) + imag(v)*imag(v); m < minV {
				minV = m
			}
		}
		maxL := 0.0
		for _, l := range ts.Results.Loading[row] {
			if l > maxL {
				maxL = l
			}
		}
		fmt.Printf("  %4d   %8.5f   %s\n", row, math.Sqrt(minV), util.FormatPercent(maxL))
	}
}
