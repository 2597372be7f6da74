// Command llir2pn translates an LLIR program into a labelled Petri net
// and exports it in one or more formats for external model checkers.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tebeka/atexit"

	"llir2pn/llir"
	"llir2pn/petrinet"
	"llir2pn/translator"
	"llir2pn/verify"
)

func main() {
	var (
		input      = flag.String("input", "", "comma-separated paths to the input LLIR program(s) (YAML)")
		formatsArg = flag.String("formats", "pnml,lola,dot", "comma-separated export formats: pnml, lola, dot")
		outDir     = flag.String("out", ".", "directory to write exported files into")
		dumpPath   = flag.String("dump", "", "optional path to dump the parsed LLIR program back out as JSON")
		verifyMax  = flag.Int("verify-states", 100000, "state-exploration bound used for the post-translation verification pass")
	)
	flag.Parse()

	log := newLogger()
	atexit.Register(func() { _ = os.Stdout.Sync() })

	if sysroot := os.Getenv("LLIR2PN_SYSROOT"); sysroot != "" {
		log.Debug("sysroot forwarded for front-end-shim parity only, unused by the translator", "sysroot", sysroot)
	}

	if *input == "" {
		log.Error("missing required flag", "flag", "-input")
		atexit.Exit(2)
		return
	}

	if err := run(log, *input, *formatsArg, *outDir, *dumpPath, *verifyMax); err != nil {
		log.Error("translation failed", "error", err)
		atexit.Exit(1)
		return
	}
	atexit.Exit(0)
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LLIR2PN_LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadProgram parses every comma-separated input path and merges their
// functions into one program. The entry point is the first non-empty
// "entry" field encountered, in file order.
func loadProgram(inputArg string) (llir.Program, error) {
	paths := strings.Split(inputArg, ",")
	merged := llir.Program{Functions: make(map[llir.FunctionID]llir.Function)}

	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		prog, err := llir.LoadProgramFileFromYAML(p)
		if err != nil {
			return llir.Program{}, fmt.Errorf("loading %s: %w", p, err)
		}
		for id, fn := range prog.Functions {
			merged.Functions[id] = fn
		}
		if merged.Entry == "" {
			merged.Entry = prog.Entry
		}
	}
	return merged, nil
}

func run(log *slog.Logger, inputArg, formatsArg, outDir, dumpPath string, verifyMax int) error {
	program, err := loadProgram(inputArg)
	if err != nil {
		return err
	}

	if dumpPath != "" {
		if err := dumpProgramJSON(program, dumpPath); err != nil {
			return fmt.Errorf("dumping parsed LLIR: %w", err)
		}
		log.Info("wrote LLIR dump", "path", dumpPath)
	}

	res, err := translator.Translate(program, log)
	if err != nil {
		return fmt.Errorf("translating program: %w", err)
	}

	formats := strings.Split(formatsArg, ",")
	base := filepath.Join(outDir, "net")

	for _, f := range formats {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if err := exportOne(res.Net, f, base); err != nil {
			return err
		}
		log.Info("exported", "format", f, "entry", string(program.Entry))
	}

	report := verify.Run(res.Net, res.ProgramEnd, res.SlotGroups, res.MutexGroups, verifyMax)
	log.Info("verification complete", "passed", report.Passed(), "states_explored", report.StatesExplored, "truncated", report.Truncated)
	if !report.Passed() {
		for _, c := range report.Checks {
			if !c.Passed {
				log.Warn("verification check failed", "check", c.Name, "detail", c.Detail)
			}
		}
	}

	return nil
}

func dumpProgramJSON(program llir.Program, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(program)
}

func exportOne(net *petrinet.PetriNet, format, base string) error {
	switch format {
	case "pnml":
		return writeExport(base+".pnml", net.ExportPNML)
	case "lola":
		return writeExport(base+".lola", net.ExportLoLA)
	case "dot":
		return writeExport(base+".dot", net.ExportDOT)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

func writeExport(path string, export func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	return export(f)
}
