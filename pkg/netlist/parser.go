package netlist

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/edp1096/toy-powerflow/pkg/circuit"
	"github.com/edp1096/toy-powerflow/pkg/griddata"
)

// GridData is the parsed form of a plain-text grid description, before
// it is built into a numerical circuit. Buses are numbered in order of
// first appearance.
type GridData struct {
	Title string
	Sbase float64

	Buses map[string]int

	busOrder []busRecord
	branches []branchRecord
	loads    []loadRecord
	gens     []genRecord
	shunts   []shuntRecord
	hvdcs    []hvdcRecord
}

type busRecord struct {
	name string
	vnom float64
}

type branchRecord struct {
	name        string
	f, t        string
	r, x, b     float64
	tap, shift  float64
	rate        float64
	transformer bool
}

type loadRecord struct {
	name string
	bus  string
	p, q float64
}

type genRecord struct {
	name  string
	bus   string
	p     float64
	vset  float64
	slack bool
}

type shuntRecord struct {
	name string
	bus  string
	g, b float64
}

type hvdcRecord struct {
	name string
	f, t string
	p    float64
	loss float64
}

var unitMap = map[string]float64{
	"G": 1e9,
	"M": 1e6,
	"k": 1e3,
	"m": 1e-3,
	"u": 1e-6,
}

// Parse reads a grid description. The first line is the title; "*" and
// "#" start comments and "+" continues the previous line. Every other
// line is one device:
//
//	bus   <name> [vnom_kV]
//	line  <name> <from> <to> <r> <x> <b> [rate]
//	xfmr  <name> <from> <to> <r> <x> <b> <tap> <shift> [rate]
//	load  <name> <bus> <P> <Q>
//	gen   <name> <bus> <P> [vset] [slack]
//	shunt <name> <bus> <G> <B>
//	hvdc  <name> <from> <to> <P> <loss>
//	sbase <MVA>
func Parse(input string) (*GridData, error) {
	scanner := bufio.NewScanner(strings.NewReader(input))
	gd := &GridData{
		Sbase: 100,
		Buses: make(map[string]int),
	}

	if scanner.Scan() {
		gd.Title = strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "*"))
	}

	lineNo := 1
	var current string
	currentNo := 0

	flush := func() error {
		if current == "" {
			return nil
		}
		err := parseLine(gd, current)
		if err != nil {
			err = fmt.Errorf("line %d: %v", currentNo, err)
		}
		current = ""
		return err
	}

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if idx := strings.IndexAny(line, "*#"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)

		if line == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}

		if strings.HasPrefix(line, "+") {
			current += " " + strings.TrimSpace(line[1:])
			continue
		}

		if err := flush(); err != nil {
			return nil, err
		}
		current = line
		currentNo = lineNo
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return gd, nil
}

func parseLine(gd *GridData, line string) error {
	line = regexp.MustCompile(`\s+`).ReplaceAllString(line, " ")
	fields := strings.Fields(line)
	keyword := strings.ToLower(fields[0])
	args := fields[1:]

	switch keyword {
	case "sbase":
		if len(args) < 1 {
			return fmt.Errorf("sbase needs a value")
		}
		v, err := ParseValue(args[0])
		if err != nil {
			return fmt.Errorf("invalid sbase: %v", err)
		}
		if v <= 0 {
			return fmt.Errorf("sbase must be positive, got %g", v)
		}
		gd.Sbase = v

	case "bus":
		if len(args) < 1 {
			return fmt.Errorf("bus needs a name")
		}
		rec := busRecord{name: args[0]}
		if len(args) > 1 {
			v, err := ParseValue(args[1])
			if err != nil {
				return fmt.Errorf("invalid nominal voltage: %v", err)
			}
			rec.vnom = v
		}
		if _, exists := gd.Buses[rec.name]; exists {
			return fmt.Errorf("duplicate bus %s", rec.name)
		}
		gd.Buses[rec.name] = len(gd.busOrder)
		gd.busOrder = append(gd.busOrder, rec)

	case "line", "xfmr":
		min := 6
		if keyword == "xfmr" {
			min = 8
		}
		if len(args) < min {
			return fmt.Errorf("%s needs at least %d parameters", keyword, min)
		}
		rec := branchRecord{name: args[0], f: args[1], t: args[2], tap: 1, transformer: keyword == "xfmr"}
		vals, err := parseFloats(args[3:])
		if err != nil {
			return fmt.Errorf("%s %s: %v", keyword, rec.name, err)
		}
		rec.r, rec.x, rec.b = vals[0], vals[1], vals[2]
		rest := vals[3:]
		if rec.transformer {
			rec.tap, rec.shift = rest[0], rest[1]
			rest = rest[2:]
		}
		if len(rest) > 0 {
			rec.rate = rest[0]
		}
		gd.branches = append(gd.branches, rec)

	case "load":
		if len(args) < 4 {
			return fmt.Errorf("load needs name, bus, P and Q")
		}
		vals, err := parseFloats(args[2:4])
		if err != nil {
			return fmt.Errorf("load %s: %v", args[0], err)
		}
		gd.loads = append(gd.loads, loadRecord{name: args[0], bus: args[1], p: vals[0], q: vals[1]})

	case "gen":
		if len(args) < 3 {
			return fmt.Errorf("gen needs name, bus and P")
		}
		rec := genRecord{name: args[0], bus: args[1], vset: 1}
		p, err := ParseValue(args[2])
		if err != nil {
			return fmt.Errorf("gen %s: %v", rec.name, err)
		}
		rec.p = p
		for _, a := range args[3:] {
			if strings.EqualFold(a, "slack") {
				rec.slack = true
				continue
			}
			v, err := ParseValue(a)
			if err != nil {
				return fmt.Errorf("gen %s: %v", rec.name, err)
			}
			rec.vset = v
		}
		gd.gens = append(gd.gens, rec)

	case "shunt":
		if len(args) < 4 {
			return fmt.Errorf("shunt needs name, bus, G and B")
		}
		vals, err := parseFloats(args[2:4])
		if err != nil {
			return fmt.Errorf("shunt %s: %v", args[0], err)
		}
		gd.shunts = append(gd.shunts, shuntRecord{name: args[0], bus: args[1], g: vals[0], b: vals[1]})

	case "hvdc":
		if len(args) < 5 {
			return fmt.Errorf("hvdc needs name, from, to, P and loss")
		}
		vals, err := parseFloats(args[3:5])
		if err != nil {
			return fmt.Errorf("hvdc %s: %v", args[0], err)
		}
		gd.hvdcs = append(gd.hvdcs, hvdcRecord{name: args[0], f: args[1], t: args[2], p: vals[0], loss: vals[1]})

	default:
		return fmt.Errorf("unknown keyword %q", fields[0])
	}

	return nil
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := ParseValue(f)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Build converts the parsed records into a numerical circuit with one
// time step. Bus references are resolved here so every record can name
// buses declared anywhere in the file.
func (gd *GridData) Build() (*circuit.NumericalCircuit, error) {
	nc := circuit.New(circuit.Counts{
		Nbus:    len(gd.busOrder),
		Nbranch: len(gd.branches),
		Nload:   len(gd.loads),
		Ngen:    len(gd.gens),
		Nshunt:  len(gd.shunts),
		Nhvdc:   len(gd.hvdcs),
	}, gd.Sbase, 1)

	for i, b := range gd.busOrder {
		nc.Bus.Names[i] = b.name
		nc.Bus.Vnom[i] = b.vnom
	}

	lookup := func(kind, dev, name string) (int, error) {
		i, ok := gd.Buses[name]
		if !ok {
			return 0, fmt.Errorf("%s %s: unknown bus %q", kind, dev, name)
		}
		return i, nil
	}

	for k, br := range gd.branches {
		f, err := lookup("branch", br.name, br.f)
		if err != nil {
			return nil, err
		}
		t, err := lookup("branch", br.name, br.t)
		if err != nil {
			return nil, err
		}
		nc.Branch.Names[k] = br.name
		nc.Branch.F[k] = f
		nc.Branch.T[k] = t
		nc.Branch.R[k] = br.r
		nc.Branch.X[k] = br.x
		nc.Branch.B[k] = br.b
		nc.Branch.TapModule[k] = br.tap
		nc.Branch.TapAngle[k] = br.shift
		nc.Branch.Rates[k][0] = br.rate
		if br.transformer {
			nc.Branch.Kinds[k] = griddata.Transformer
		}
	}

	for k, ld := range gd.loads {
		b, err := lookup("load", ld.name, ld.bus)
		if err != nil {
			return nil, err
		}
		nc.Load.Names[k] = ld.name
		nc.Load.Bus[k] = b
		nc.Load.S[k][0] = complex(ld.p, ld.q)
	}

	for k, g := range gd.gens {
		b, err := lookup("gen", g.name, g.bus)
		if err != nil {
			return nil, err
		}
		nc.Gen.Names[k] = g.name
		nc.Gen.Bus[k] = b
		nc.Gen.P[k][0] = g.p
		nc.Gen.Vset[k][0] = g.vset
		nc.Gen.IsSlack[k] = g.slack
	}

	for k, sh := range gd.shunts {
		b, err := lookup("shunt", sh.name, sh.bus)
		if err != nil {
			return nil, err
		}
		nc.Shunt.Names[k] = sh.name
		nc.Shunt.Bus[k] = b
		nc.Shunt.Admittance[k][0] = complex(sh.g, sh.b)
	}

	for k, h := range gd.hvdcs {
		f, err := lookup("hvdc", h.name, h.f)
		if err != nil {
			return nil, err
		}
		t, err := lookup("hvdc", h.name, h.t)
		if err != nil {
			return nil, err
		}
		nc.Hvdc.Names[k] = h.name
		nc.Hvdc.F[k] = f
		nc.Hvdc.T[k] = t
		nc.Hvdc.Pset[k][0] = h.p
		nc.Hvdc.LossFactor[k] = h.loss
	}

	return nc, nil
}

// ParseValue parses a number with an optional SI multiplier. 1k -> 1000
func ParseValue(val string) (float64, error) {
	re := regexp.MustCompile(`^([-+]?\d*\.?\d+(?:[eE][-+]?\d+)?)([GMkmu])?$`)
	matches := re.FindStringSubmatch(strings.TrimSpace(val))
	if matches == nil {
		return 0, fmt.Errorf("invalid value format: %s", val)
	}

	num, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, err
	}

	if matches[2] != "" {
		num *= unitMap[matches[2]]
	}
	return num, nil
}
