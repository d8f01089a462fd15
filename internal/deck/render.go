// Package deck renders configuration snapshots into the ordered text deck
// consumed by the external solver. Rendering is deterministic: identical
// snapshots produce byte-identical output. Sections appear in a fixed order
// with fixed key names, and enumerated fields are written through the field
// catalog tokens, so the consuming solver can pattern-match the file.
package deck

import (
	"fmt"
	"strings"

	"flowdeck/pkg/domain"
)

// DefaultFilename is the conventional name of a rendered deck.
const DefaultFilename = "inputFile.txt"

// Render validates the snapshot and, when no blocking finding exists, returns
// the deck text. The returned result carries every finding, including
// warnings and logged overrides, so callers can surface them alongside the
// output. On blocking findings no text is produced at all.
func Render(s domain.Snapshot) (string, domain.Result, error) {
	res := domain.ValidateSnapshot(s)
	if res.HasBlocking() {
		return "", res, domain.RuleViolationError{Result: res}
	}

	var b strings.Builder
	b.WriteString("// Input file for solver\n\n")
	writeGeometry(&b, s)
	writeSolver(&b, s.Solver)
	writeFluid(&b, s.Fluid)
	writeInitial(&b, s.Initial, s.Solver.Acoustic)
	writeConditionSection(&b, "Flow boundary conditions", domain.FamilyFlow, s)
	writeConditionSection(&b, "Mesh boundary conditions", domain.FamilyMesh, s)
	writeConditionSection(&b, "Acoustic boundary conditions", domain.FamilyAcoustic, s)
	writeMotions(&b, s)
	writeOutputList(&b, "Output time history details", probePaths(s))
	b.WriteString("\n")
	writeOutputList(&b, "Output integrated surface details", surfacePaths(s))
	b.WriteString("\n// End of input file\n")
	return b.String(), res, nil
}

func writeGeometry(b *strings.Builder, s domain.Snapshot) {
	b.WriteString("// Geometry details\n")
	fmt.Fprintf(b, "crdFile = %s\n", s.Geometry.CoordinateFile)
	fmt.Fprintf(b, "cnnFile = %s\n", s.Geometry.ConnectivityFile)
	fmt.Fprintf(b, "elemType = %s\n", s.Geometry.Element)
	for _, f := range s.BoundaryFiles {
		fmt.Fprintf(b, "bndFile = %s\n", f.Path)
	}
	b.WriteString("\n")
}

func writeSolver(b *strings.Builder, cfg domain.SolverSettings) {
	b.WriteString("// Solver details\n")
	fmt.Fprintf(b, "solverType = %s\n", cfg.Simulation)
	fmt.Fprintf(b, "fluidEqn = %s\n", cfg.Fluid)
	fmt.Fprintf(b, "meshEqn = %s\n", cfg.Mesh)
	fmt.Fprintf(b, "acousticEqn = %s\n", cfg.Acoustic)
	fmt.Fprintf(b, "nDims = %d\n", cfg.Dimensions)
	fmt.Fprintf(b, "nonLinearIterMin = %d\n", cfg.NonlinearIterMin)
	fmt.Fprintf(b, "nonLinearIterMax = %d\n", cfg.NonlinearIterMax)
	fmt.Fprintf(b, "nonLinearTolerance = %s\n", expNotation(cfg.NonlinearTolerance))
	fmt.Fprintf(b, "timeStepSize = %s\n", expNotation(cfg.TimeStepSize))
	fmt.Fprintf(b, "maxTimeSteps = %d\n", cfg.MaxTimeSteps)
	fmt.Fprintf(b, "rhoInfinity = %s\n", expNotation(cfg.RhoInfinity))
	fmt.Fprintf(b, "linearSolver = %s\n", cfg.Linear)
	fmt.Fprintf(b, "linearSolverTol = %s\n", expNotation(cfg.LinearTolerance))
	fmt.Fprintf(b, "linearSolverIterMax = %d\n", cfg.LinearIterMax)
	fmt.Fprintf(b, "linearSolverRstIter = %d\n", cfg.LinearRestartIter)
	fmt.Fprintf(b, "restartFlag = %d\n", boolFlag(cfg.RestartEnabled))
	fmt.Fprintf(b, "restartTsId = %d\n", cfg.RestartStep)
	fmt.Fprintf(b, "restartOutFreq = %d\n", cfg.RestartOutputFreq)
	fmt.Fprintf(b, "outputFileType = %s\n", cfg.Output)
	fmt.Fprintf(b, "outputStartTimeStep = %d\n", cfg.OutputStartStep)
	fmt.Fprintf(b, "outFreq = %d\n", cfg.OutputFreq)
	fmt.Fprintf(b, "intOutFreq = %d\n", cfg.IntegratedOutputFreq)
	if cfg.Acoustic == domain.AcousticLPCE {
		fmt.Fprintf(b, "acousticNRBCCentreX = %s\n", plainFloat(cfg.NRBC.CentreX))
		fmt.Fprintf(b, "acousticNRBCCentreY = %s\n", plainFloat(cfg.NRBC.CentreY))
		fmt.Fprintf(b, "acousticNRBCCentreZ = %s\n", plainFloat(cfg.NRBC.CentreZ))
		fmt.Fprintf(b, "acousticNRBCInnerRadius = %d\n", truncInt(cfg.NRBC.InnerRadius))
		fmt.Fprintf(b, "acousticNRBCOuterRadius = %d\n", truncInt(cfg.NRBC.OuterRadius))
	}
	b.WriteString("\n")
}

func writeFluid(b *strings.Builder, p domain.FluidProperties) {
	b.WriteString("// Fluid properties\n")
	fmt.Fprintf(b, "fluidDens = %s\n", expNotation(p.Density))
	fmt.Fprintf(b, "fluidVisc = %s\n", expNotation(p.Viscosity))
	fmt.Fprintf(b, "fluidGamma = %s\n", plainFloat(p.Gamma))
	fmt.Fprintf(b, "fluidSpeedOfSound = %d\n", truncInt(p.SpeedOfSound))
	b.WriteString("\n")
}

func writeInitial(b *strings.Builder, ic domain.InitialConditions, acoustic domain.AcousticEquation) {
	b.WriteString("// Initial conditions\n")
	fmt.Fprintf(b, "initPres = %s\n", expNotation(ic.Pressure))
	fmt.Fprintf(b, "initXVel = %s\n", expNotation(ic.XVelocity))
	fmt.Fprintf(b, "initYVel = %s\n", expNotation(ic.YVelocity))
	fmt.Fprintf(b, "initZVel = %s\n", expNotation(ic.ZVelocity))
	fmt.Fprintf(b, "initXDisp = %s\n", expNotation(ic.XDisplacement))
	fmt.Fprintf(b, "initYDisp = %s\n", expNotation(ic.YDisplacement))
	fmt.Fprintf(b, "initZDisp = %s\n", expNotation(ic.ZDisplacement))
	if acoustic == domain.AcousticLPCE {
		fmt.Fprintf(b, "initPsi = %s\n", expNotation(ic.Potential))
	}
	b.WriteString("\n")
}

// writeConditionSection emits one family's boundary condition block. Entries
// whose effective kind is none are skipped entirely: they do not count toward
// numberBC and produce no index record. Indices restart from zero per section.
func writeConditionSection(b *strings.Builder, title string, family domain.VariableFamily, s domain.Snapshot) {
	var emit []domain.BoundaryCondition
	for _, v := range domain.FamilyVariables(family) {
		for _, c := range s.ConditionsFor(v) {
			if domain.EffectiveKind(c) == domain.KindNone {
				continue
			}
			emit = append(emit, c)
		}
	}

	fmt.Fprintf(b, "// %s\n", title)
	fmt.Fprintf(b, "numberBC = %d\n", len(emit))
	for i, c := range emit {
		kind := domain.EffectiveKind(c)
		fmt.Fprintf(b, "index = %d\n", i)
		fmt.Fprintf(b, "type = %s\n", kind)
		fmt.Fprintf(b, "var = %s\n", c.Variable)
		fmt.Fprintf(b, "nodes = %s\n", c.Boundary)
		switch kind {
		case domain.KindPrescribed:
			fmt.Fprintf(b, "tag = %d\n", c.MotionTag)
		case domain.KindMatchMeshVel:
			// matchmeshvel entries carry no value line
		default:
			fmt.Fprintf(b, "val = %s\n", plainFloat(c.Value))
		}
	}
	b.WriteString("\n")
}

// writeMotions emits every motion definition in ascending tag order. Tags
// without a referencing condition are still written; the section is tag
// driven, not reference driven.
func writeMotions(b *strings.Builder, s domain.Snapshot) {
	motions := s.MotionsByTag()
	b.WriteString("// Prescribed motion details\n")
	fmt.Fprintf(b, "numberBC = %d\n", len(motions))
	for _, m := range motions {
		fmt.Fprintf(b, "tag = %d\n", m.Tag)
		fmt.Fprintf(b, "heaveAmp = %s\n", plainFloat(m.Heave.Amplitude))
		fmt.Fprintf(b, "heaveFreq = %s\n", plainFloat(m.Heave.Frequency))
		fmt.Fprintf(b, "heavePhase = %d\n", truncInt(m.Heave.Phase))
		fmt.Fprintf(b, "pitchAmp = %d\n", truncInt(m.Pitch.Amplitude))
		fmt.Fprintf(b, "pitchFreq = %s\n", plainFloat(m.Pitch.Frequency))
		fmt.Fprintf(b, "pitchPhase = %d\n", truncInt(m.Pitch.Phase))
		b.WriteString("pitchAxisX = 0\n")
		b.WriteString("pitchAxisY = 0\n")
		fmt.Fprintf(b, "morphAmp = %d\n", truncInt(m.Morph.Amplitude))
		fmt.Fprintf(b, "morphFreq = %s\n", plainFloat(m.Morph.Frequency))
		fmt.Fprintf(b, "morphPhase = %d\n", truncInt(m.Morph.Phase))
		fmt.Fprintf(b, "morphPos = %d\n", truncInt(m.MorphPosition))
		fmt.Fprintf(b, "morphDiv = %d\n", m.MorphDivisions)
		fmt.Fprintf(b, "LEPosX = %d\n", truncInt(m.LeadingEdgeX))
		fmt.Fprintf(b, "LEPosY = %d\n", truncInt(m.LeadingEdgeY))
		b.WriteString("chordLength = 1\n")
	}
	b.WriteString("\n")
}

// writeOutputList emits a probe or surface section: a count followed by
// 1-based tag and nodes lines. Rows with an empty path are skipped and do not
// count.
func writeOutputList(b *strings.Builder, title string, paths []string) {
	fmt.Fprintf(b, "// %s\n", title)
	fmt.Fprintf(b, "numberFiles = %d\n", len(paths))
	for i, p := range paths {
		fmt.Fprintf(b, "tag = %d\n", i+1)
		fmt.Fprintf(b, "nodes = %s\n", p)
	}
}

func probePaths(s domain.Snapshot) []string {
	var out []string
	for _, p := range s.Probes {
		if p.Path == "" {
			continue
		}
		out = append(out, p.Path)
	}
	return out
}

func surfacePaths(s domain.Snapshot) []string {
	var out []string
	for _, sf := range s.Surfaces {
		if sf.Path == "" {
			continue
		}
		out = append(out, sf.Path)
	}
	return out
}
