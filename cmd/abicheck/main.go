package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/stable-abi/check"
	"github.com/wippyai/stable-abi/layout"
	"github.com/wippyai/stable-abi/root"
	"github.com/wippyai/stable-abi/wire"
)

var (
	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#90EE90")).
		Bold(true)

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	typeNameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

func main() {
	var (
		manifestFile = flag.String("manifest", "", "Path to the library's manifest file")
		againstFile  = flag.String("against", "", "Path to the host's expected manifest file")
		list         = flag.Bool("list", false, "List exports and types and exit")
		jsonOut      = flag.Bool("json", false, "Machine-readable verdict")
		interactive  = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *manifestFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: abicheck -manifest <lib.manifest> -against <host.manifest>")
		fmt.Fprintln(os.Stderr, "       abicheck -manifest <lib.manifest> -list")
		fmt.Fprintln(os.Stderr, "       abicheck -manifest <lib.manifest> [-against <host.manifest>] -i")
		os.Exit(1)
	}

	if *interactive {
		if err := runInteractive(*manifestFile, *againstFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	compatible, err := run(*manifestFile, *againstFile, *list, *jsonOut)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if !compatible {
		os.Exit(1)
	}
}

func loadManifest(path string) (*wire.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	m, err := wire.DecodeManifest(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return m, nil
}

func run(manifestFile, againstFile string, listOnly, jsonOut bool) (bool, error) {
	lib, err := loadManifest(manifestFile)
	if err != nil {
		return false, err
	}

	if !jsonOut {
		fmt.Printf("Module:  %s\n", lib.ModuleName)
		fmt.Printf("Version: %s\n", lib.Version)
		fmt.Printf("Exports: %d\n", len(lib.Exports))
		fmt.Printf("Types:   %d\n", len(lib.Layouts))
	}

	if listOnly {
		fmt.Printf("\nExported functions:\n")
		for _, e := range lib.Exports {
			fmt.Printf("  %s\n", formatExport(e))
		}
		fmt.Printf("\nTypes:\n")
		for _, l := range lib.Layouts {
			fmt.Printf("  %s %s\n", typeNameStyle.Render(l.Name), dimStyle.Render(describeLayout(l)))
		}
		return true, nil
	}

	if againstFile == "" {
		return true, nil
	}

	host, err := loadManifest(againstFile)
	if err != nil {
		return false, err
	}

	verdict := compare(host, lib)
	if jsonOut {
		out, err := json.MarshalIndent(verdict, "", "  ")
		if err != nil {
			return false, err
		}
		fmt.Println(string(out))
		return verdict.Compatible, nil
	}

	fmt.Println()
	if verdict.Compatible {
		fmt.Println(okStyle.Render("COMPATIBLE"), dimStyle.Render(fmt.Sprintf("(host %s, library %s)", host.Version, lib.Version)))
		return true, nil
	}

	fmt.Println(failStyle.Render("INCOMPATIBLE"))
	for _, p := range verdict.Problems {
		fmt.Printf("  %s\n", p)
	}
	return false, nil
}

// Verdict is the comparison outcome, shaped for both styled and -json output.
type Verdict struct {
	Module     string   `json:"module"`
	Host       string   `json:"host_version"`
	Library    string   `json:"library_version"`
	Compatible bool     `json:"compatible"`
	Problems   []string `json:"problems,omitempty"`
}

// compare runs the same gates the loader does: module name, version triple,
// additive export table, then a layout check per export.
func compare(host, lib *wire.Manifest) Verdict {
	v := Verdict{
		Module:     host.ModuleName,
		Host:       host.Version.String(),
		Library:    lib.Version.String(),
		Compatible: true,
	}
	problem := func(format string, args ...any) {
		v.Compatible = false
		v.Problems = append(v.Problems, fmt.Sprintf(format, args...))
	}

	if lib.ModuleName != host.ModuleName {
		problem("library declares module %q, host expects %q", lib.ModuleName, host.ModuleName)
		return v
	}
	if !root.Compatible(host.Version, lib.Version) {
		problem("version %s does not satisfy host %s", lib.Version, host.Version)
		return v
	}
	if len(lib.Exports) < len(host.Exports) {
		problem("library declares %d exports, host expects %d", len(lib.Exports), len(host.Exports))
		return v
	}

	checker := check.NewChecker()
	for i := range host.Exports {
		he, le := &host.Exports[i], &lib.Exports[i]
		if he.Name != le.Name {
			problem("export %d renamed or reordered: %q vs %q", i, he.Name, le.Name)
			continue
		}
		if len(he.Params) != len(le.Params) {
			problem("export %s: %d parameters declared, %d expected", he.Name, len(le.Params), len(he.Params))
			continue
		}
		for j := range he.Params {
			if err := checker.Check(he.Params[j], le.Params[j]); err != nil {
				problem("export %s parameter %d: %v", he.Name, j, err)
			}
		}
		switch {
		case (he.Result == nil) != (le.Result == nil):
			problem("export %s: result presence differs", he.Name)
		case he.Result != nil:
			if err := checker.Check(he.Result, le.Result); err != nil {
				problem("export %s result: %v", he.Name, err)
			}
		}
	}
	return v
}

func formatExport(e wire.Export) string {
	var params []string
	for _, p := range e.Params {
		params = append(params, typeNameStyle.Render(p.Name))
	}
	s := e.Name + "(" + strings.Join(params, ", ") + ")"
	if e.Result != nil {
		s += " -> " + typeNameStyle.Render(e.Result.Name)
	}
	if e.Kind == root.ExportConstructor {
		s += dimStyle.Render("  [constructor]")
	}
	return s
}

func describeLayout(l *layout.TypeLayout) string {
	switch l.Kind {
	case layout.KindEnum:
		mode := "exhaustive"
		if l.Nonexhaustive {
			mode = "nonexhaustive"
		}
		return fmt.Sprintf("enum, %d variants, %s, %d bytes", len(l.Variants), mode, l.Size)
	case layout.KindStruct:
		return fmt.Sprintf("struct, %d fields, %d bytes, align %d", len(l.Fields), l.Size, l.Align)
	case layout.KindPointer:
		return "pointer, 8 bytes"
	case layout.KindParam:
		return "type parameter"
	default:
		return fmt.Sprintf("%s, %d bytes", l.Prim, l.Size)
	}
}
