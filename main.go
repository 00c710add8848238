// Command tbon compiles TBON notation source into Standard MIDI Files.
//
// Grounded on the retrieved original driver (original_source/tbon.py):
// each input produces three MIDI files (the compiled parts, a
// metronome-only file, and a combined file), the file extension
// (.tba/.tbn) records which pitch alphabet the source was written in,
// and, unless --quiet, the source text and each part's beat map are
// echoed to stdout before the files are written. Flags are parsed by
// hand (parseArgs) rather than through a flag-parsing library, matching
// how the command-line tools this one is adapted from do it.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"tbon/config"
	"tbon/display"
	"tbon/eval"
	"tbon/midi"
	"tbon/parser"
	"tbon/preeval"
	"tbon/transpose"
)

type options struct {
	firstBar  int
	quiet     bool
	verbose   bool
	transpose int
	profile   string
	inspect   bool
	files     []string
}

func main() {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Println("Error:", err)
		printUsage()
		os.Exit(1)
	}
	if len(opts.files) == 0 {
		printUsage()
		os.Exit(1)
	}

	for _, f := range opts.files {
		if err := processFile(f, opts); err != nil {
			fmt.Printf("Error processing %s: %v\n", f, err)
			os.Exit(1)
		}
	}
}

func parseArgs(args []string) (options, error) {
	opts := options{firstBar: 1}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-b" || arg == "--firstbar":
			n, err := nextIntArg(args, &i)
			if err != nil {
				return opts, err
			}
			opts.firstBar = n
		case strings.HasPrefix(arg, "--firstbar="):
			n, err := strconv.Atoi(strings.TrimPrefix(arg, "--firstbar="))
			if err != nil {
				return opts, fmt.Errorf("--firstbar requires an integer")
			}
			opts.firstBar = n
		case arg == "-q" || arg == "--quiet":
			opts.quiet = true
		case arg == "-v" || arg == "--verbose":
			opts.verbose = true
		case arg == "-i" || arg == "--inspect":
			opts.inspect = true
		case arg == "-t" || arg == "--transpose":
			n, err := nextIntArg(args, &i)
			if err != nil {
				return opts, err
			}
			opts.transpose = n
		case strings.HasPrefix(arg, "--transpose="):
			n, err := strconv.Atoi(strings.TrimPrefix(arg, "--transpose="))
			if err != nil {
				return opts, fmt.Errorf("--transpose requires an integer")
			}
			opts.transpose = n
		case arg == "-p" || arg == "--profile":
			if i+1 >= len(args) {
				return opts, fmt.Errorf("--profile requires a path")
			}
			i++
			opts.profile = args[i]
		case strings.HasPrefix(arg, "--profile="):
			opts.profile = strings.TrimPrefix(arg, "--profile=")
		case arg == "-h" || arg == "--help":
			printUsage()
			os.Exit(0)
		default:
			opts.files = append(opts.files, arg)
		}
	}
	return opts, nil
}

func nextIntArg(args []string, i *int) (int, error) {
	if *i+1 >= len(args) {
		return 0, fmt.Errorf("%s requires a value", args[*i])
	}
	*i++
	return strconv.Atoi(args[*i])
}

func processFile(filename string, opts options) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".tba" && ext != ".tbn" {
		return fmt.Errorf("file extension must be .tba or .tbn")
	}

	profile, err := config.Load(opts.profile)
	if err != nil {
		return fmt.Errorf("loading profile: %w", err)
	}

	source, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	if !opts.quiet && !profile.Quiet {
		fmt.Println(string(source))
	}

	root, err := parser.Parse(string(source))
	if err != nil {
		return fmt.Errorf("parsing: %w", err)
	}
	pre, err := preeval.Run(root)
	if err != nil {
		return fmt.Errorf("pre-evaluating: %w", err)
	}
	for _, w := range pre.Warnings {
		fmt.Println("warning:", w)
	}
	result, err := eval.Run(root, pre, profile.EvalDefaults())
	if err != nil {
		return fmt.Errorf("evaluating: %w", err)
	}

	shift := opts.transpose
	if shift == 0 {
		shift = profile.Transpose
	}
	if shift != 0 {
		result = transpose.Result(result, shift)
	}

	if opts.verbose || profile.Verbose {
		for n, out := range result.Parts {
			fmt.Printf("part %d: %+v\n", n, out.Notes)
		}
	}

	firstBar := opts.firstBar
	if firstBar == 1 && profile.FirstBar != 0 {
		firstBar = profile.FirstBar
	}
	sum := display.Summary{Name: filename, Parts: pre.Parts, Notes: result.Parts, Meta: pre.Meta}
	if opts.inspect {
		if err := display.RunInspector(sum, firstBar); err != nil {
			return fmt.Errorf("inspector: %w", err)
		}
	} else {
		display.PrintScore(sum, firstBar, opts.quiet || profile.Quiet)
	}

	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	outputs := []struct {
		suffix string
		mode   config.MetronomeMode
	}{
		{".mid", config.MetronomeMusic},
		{"_metronome_only.mid", config.MetronomeClick},
		{"_with_metronome.mid", config.MetronomeBoth},
	}
	for _, o := range outputs {
		smfFile, err := midi.Encode(result.Parts, result.Metronome, pre.Meta, o.mode)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", o.suffix, err)
		}
		outPath := base + o.suffix
		out, err := os.Create(outPath)
		if err != nil {
			return err
		}
		_, writeErr := smfFile.WriteTo(out)
		closeErr := out.Close()
		if writeErr != nil {
			return writeErr
		}
		if closeErr != nil {
			return closeErr
		}
		fmt.Printf("Created %s\n", outPath)
	}
	return nil
}

func printUsage() {
	fmt.Println("tbon — TBON notation compiler")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  tbon [options] <file.tba|file.tbn> ...")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -b, --firstbar <n>     Measure number of the first measure (aligns beat map output)")
	fmt.Println("  -q, --quiet            Don't print the source or beat map to stdout")
	fmt.Println("  -v, --verbose          Dump the evaluator's note output to stdout")
	fmt.Println("  -i, --inspect          Launch the interactive score inspector instead of printing")
	fmt.Println("  -t, --transpose <n>    Shift every compiled note by n semitones")
	fmt.Println("  -p, --profile <path>   Load a YAML compile profile")
	fmt.Println("  -h, --help             Show this help")
	fmt.Println()
	fmt.Println("Each input produces three files: <name>.mid, <name>_metronome_only.mid,")
	fmt.Println("and <name>_with_metronome.mid.")
}
