// Command liquid renders Liquid templates from the command line.
//
// Usage:
//
//	liquid                       start an interactive REPL
//	liquid <template> [vars.json] render a template file, optionally with variables from a JSON file
//	liquid --help
//	liquid --version
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/liquidgo/liquid"
)

var (
	redColor   = color.New(color.FgRed)
	greenColor = color.New(color.FgGreen)
	cyanColor  = color.New(color.FgCyan)
)

const version = "v0.1.0"

func main() {
	if len(os.Args) < 2 {
		startRepl()
		return
	}

	switch os.Args[1] {
	case "--help", "-h":
		showHelp()
	case "--version", "-v":
		cyanColor.Printf("liquid %s\n", version)
	default:
		runFile(os.Args[1], os.Args[2:])
	}
}

func showHelp() {
	cyanColor.Println("liquid - a Liquid template renderer")
	fmt.Println("USAGE:")
	fmt.Println("  liquid                        start an interactive REPL")
	fmt.Println("  liquid <template> [vars.json] render a template, optionally with variables")
	fmt.Println("  liquid --help                 show this message")
	fmt.Println("  liquid --version              show version information")
}

func runFile(path string, rest []string) {
	env := liquid.NewEnvironment(liquid.NewFileSystemLoader(filepath.Dir(path)))

	tpl, err := env.FromFile(filepath.Base(path))
	if err != nil {
		redColor.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	vars := map[string]liquid.Value{}
	if len(rest) > 0 {
		vars, err = loadVars(rest[0])
		if err != nil {
			redColor.Fprintf(os.Stderr, "%s\n", err)
			os.Exit(1)
		}
	}

	out, err := tpl.Render(vars)
	if err != nil {
		redColor.Fprintf(os.Stderr, "%s\n", err)
		fmt.Print(out)
		os.Exit(1)
	}
	fmt.Print(out)
}

// loadVars reads a JSON object from path and converts it into the
// engine's Value type via jsonToValue.
func loadVars(path string) (map[string]liquid.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	out := make(map[string]liquid.Value, len(raw))
	for k, v := range raw {
		out[k] = jsonToValue(v)
	}
	return out, nil
}

func jsonToValue(v any) liquid.Value {
	switch val := v.(type) {
	case nil:
		return liquid.Nil
	case bool:
		return liquid.BoolValue(val)
	case float64:
		if val == float64(int64(val)) {
			return liquid.IntValue(int64(val))
		}
		return liquid.FloatValue(val)
	case string:
		return liquid.StringValue(val)
	case []any:
		arr := make([]liquid.Value, len(val))
		for i, el := range val {
			arr[i] = jsonToValue(el)
		}
		return liquid.ArrayValue(arr)
	case map[string]any:
		m := liquid.NewMap()
		for k, el := range val {
			m.Set(k, jsonToValue(el))
		}
		return liquid.MapValue(m)
	default:
		return liquid.Nil
	}
}
