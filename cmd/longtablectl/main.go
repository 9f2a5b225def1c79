package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/gloudx/longtable/compiler"
	"github.com/gloudx/longtable/lexer"
	"github.com/gloudx/longtable/parser"
	"github.com/gloudx/longtable/printer"
	"github.com/gloudx/longtable/value"
	"github.com/gloudx/longtable/vm"
	"github.com/gloudx/longtable/world"
)

func readSource(c *cli.Context) (string, error) {
	path := c.Args().First()
	if path == "" {
		return "", fmt.Errorf("usage: %s <file.lt>", c.Command.Name)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("не удалось прочитать файл: %v", err)
	}
	return string(data), nil
}

// runAction compiles and executes every top-level form in the source
// file against a fresh World, in order, threading the Session and VM
// across forms the way a REPL would.
func runAction(c *cli.Context) error {
	src, err := readSource(c)
	if err != nil {
		return err
	}
	forms, err := parser.ParseAll(src)
	if err != nil {
		return fmt.Errorf("ошибка разбора: %v", err)
	}

	w := world.NewWorld(uint64(c.Int64("seed")))
	session := compiler.NewSession(w.Interner())
	machine := vm.New(w)

	var last value.Value
	for _, form := range forms {
		prog, err := compiler.Compile(session, form)
		if err != nil {
			return fmt.Errorf("ошибка компиляции: %v", err)
		}
		last, err = machine.Run(prog)
		if err != nil {
			return fmt.Errorf("ошибка выполнения: %v", err)
		}
	}
	if !last.IsNil() {
		fmt.Println(last.String())
	}
	return nil
}

// printAction parses the source file and re-emits it as canonical,
// round-trippable text — one line per top-level form.
func printAction(c *cli.Context) error {
	src, err := readSource(c)
	if err != nil {
		return err
	}
	forms, err := parser.ParseAll(src)
	if err != nil {
		return fmt.Errorf("ошибка разбора: %v", err)
	}
	for _, form := range forms {
		fmt.Println(printer.Print(form))
	}
	return nil
}

// tokensAction dumps the lexer's token stream, one per line, for
// diagnosing a source file the parser rejects.
func tokensAction(c *cli.Context) error {
	src, err := readSource(c)
	if err != nil {
		return err
	}
	for _, t := range lexer.Tokens(src) {
		fmt.Println(t.String())
	}
	return nil
}

func main() {
	app := &cli.App{
		Name:  "longtablectl",
		Usage: "компиляция и выполнение программ на longtable",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:  "seed",
				Usage: "PRNG seed для нового World",
				Value: 0,
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "скомпилировать и выполнить файл",
				Action: runAction,
			},
			{
				Name:   "print",
				Usage:  "разобрать файл и вывести канонический текст",
				Action: printAction,
			},
			{
				Name:   "tokens",
				Usage:  "вывести поток токенов файла",
				Action: tokensAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
