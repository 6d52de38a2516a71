// cmd/tvmdump/main.go
package main

import (
	"flag"
	"fmt"
	"os"

	"tvm/internal/disasm"
	"tvm/internal/lower"
	"tvm/internal/target/llvmtarget"
	"tvm/internal/tvm"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

const version = "0.1.0"

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		return
	}

	cmd := args[0]
	switch cmd {
	case "--help", "-h", "help":
		if len(args) > 1 {
			showCommandHelp(args[1])
		} else {
			showUsage()
		}
	case "--version", "-v", "version":
		fmt.Printf("tvmdump %s\n", version)
	case "list":
		listExamples()
	case "disasm":
		if err := runDisasm(args[1:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "lower":
		if err := runLower(args[1:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		showUsage()
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println("tvmdump - build, disassemble, and lower in-process tvm modules")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  tvmdump list                    List the in-process example modules")
	fmt.Println("  tvmdump disasm <example>         Disassemble an example module")
	fmt.Println("  tvmdump lower <example> [flags]  Run the aggregate-lowering pass and disassemble the result")
	fmt.Println("  tvmdump help <command>           Show detailed help for a command")
	fmt.Println("  tvmdump --version                Show version")
	fmt.Println()
	fmt.Println("lower flags:")
	fmt.Println("  --split-arrays     split array-typed values into one lowered value per element")
	fmt.Println("  --split-structs    split struct-typed values into one lowered value per field")
	fmt.Println("  --remove-unions    force union types to blob mode")
	fmt.Println("  --llvm             print the mirrored github.com/llir/llvm IR alongside the lowered module")
}

func showCommandHelp(command string) {
	help := map[string]string{
		"disasm": `tvmdump disasm - disassemble an in-process example module

USAGE:
  tvmdump disasm <example>

Run 'tvmdump list' to see available example names.`,
		"lower": `tvmdump lower - run the aggregate-lowering pass over an example module

USAGE:
  tvmdump lower <example> [--split-arrays] [--split-structs] [--remove-unions] [--llvm]

The lowering pass always uses the reference internal/target/llvmtarget
Callback (a System-V-x86-64-style ABI over github.com/llir/llvm).`,
		"list": `tvmdump list - list the in-process example modules

USAGE:
  tvmdump list`,
	}
	if text, ok := help[command]; ok {
		fmt.Println(text)
		return
	}
	fmt.Printf("No detailed help available for %q\n", command)
}

func listExamples() {
	for _, ex := range examples {
		fmt.Printf("  %-12s %s\n", ex.name, ex.descr)
	}
}

func colorEnabled() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func runDisasm(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: tvmdump disasm <example>")
	}
	ex := lookupExample(args[0])
	if ex == nil {
		return fmt.Errorf("unknown example %q (run 'tvmdump list')", args[0])
	}
	_, m, err := ex.build()
	if err != nil {
		return err
	}
	printModule(m, ex.name)
	return nil
}

func runLower(args []string) error {
	fs := flag.NewFlagSet("lower", flag.ContinueOnError)
	splitArrays := fs.Bool("split-arrays", true, "split array-typed values")
	splitStructs := fs.Bool("split-structs", true, "split struct-typed values")
	removeUnions := fs.Bool("remove-unions", true, "force union types to blob mode")
	printLLVM := fs.Bool("llvm", false, "also print the mirrored LLVM IR")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return fmt.Errorf("usage: tvmdump lower <example> [flags]")
	}
	ex := lookupExample(rest[0])
	if ex == nil {
		return fmt.Errorf("unknown example %q (run 'tvmdump list')", rest[0])
	}
	ctx, m, err := ex.build()
	if err != nil {
		return err
	}

	cb := llvmtarget.New()
	l, err := lower.New(ctx, cb, lower.Config{
		SplitArrays:              *splitArrays,
		SplitStructs:             *splitStructs,
		RemoveUnions:             *removeUnions,
		RemoveSizeof:             true,
		PointerArithmeticToBytes: true,
		FlattenGlobals:           false,
	})
	if err != nil {
		return err
	}
	lowered, err := l.LowerModule(m)
	if err != nil {
		return err
	}

	fmt.Printf("; %s: run %s, %d global(s) lowered\n", ex.name, l.RunID(), len(lowered.Globals))
	for _, name := range m.SortedNames() {
		lt, ok := lowered.Globals[name]
		if !ok {
			continue
		}
		fmt.Printf(";   %-12s mode=%-8s size=%-10s align=%s\n",
			name, lt.Mode, humanize.Bytes(lt.Size), humanize.Bytes(lt.Align))
	}
	printModule(lowered.Module, ex.name+".lowered")

	if *printLLVM {
		fmt.Println()
		fmt.Println("; mirrored github.com/llir/llvm IR")
		fmt.Println(cb.LLVMModule().String())
	}
	return nil
}

// printModule disassembles m (§4.8) and prints it, setting the module
// header in ANSI bold when stdout is a terminal (go-isatty's usual CLI
// terminal-detection role) and plainly otherwise.
func printModule(m *tvm.Module, label string) {
	text := disasm.NewPrinter().Module(m)
	if colorEnabled() {
		fmt.Printf("\x1b[1m; %s\x1b[0m\n%s", label, text)
		return
	}
	fmt.Printf("; %s\n%s", label, text)
}
