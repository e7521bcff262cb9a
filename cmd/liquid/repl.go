package main

import (
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/liquidgo/liquid"
)

const banner = `liquid REPL - type Liquid source, press enter to render it
type '.exit' to quit; every other line is rendered as Liquid
`

// startRepl runs an interactive loop, rendering each line of input
// against one persistent Context so that assign/increment/capture state
// carries over between lines.
func startRepl() {
	greenColor.Println(banner)

	rl, err := readline.New("liquid> ")
	if err != nil {
		redColor.Fprintf(os.Stderr, "%v\n", err)
		return
	}
	defer rl.Close()

	env := liquid.NewEnvironment(liquid.NewDictLoader(nil))
	ctx := liquid.NewContext(env, "<repl>", nil)

	for {
		line, err := rl.Readline()
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == ".exit" {
			break
		}
		execLine(env, ctx, line)
	}
}

func execLine(env *liquid.Environment, ctx *liquid.Context, line string) {
	tpl, err := env.FromString(line)
	if err != nil {
		redColor.Printf("%s\n", err)
		return
	}

	var buf strings.Builder
	if err := tpl.RenderContext(ctx, &buf); err != nil {
		redColor.Printf("%s\n", err)
	}
	if buf.Len() > 0 {
		cyanColor.Println(buf.String())
	}
}
