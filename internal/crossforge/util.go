package crossforge

import (
	"fmt"

	"github.com/gookit/color"
)

// color-compatible printer interface (works with *color.Theme and *color.Style)
type colorPrinter interface {
	Printf(format string, a ...any)
	Println(a ...any)
}

// cPrintf prints with a colored style or falls back to fmt.Printf when nil
func cPrintf(p colorPrinter, format string, a ...any) {
	if p == nil {
		fmt.Printf(format, a...)
		return
	}
	p.Printf(format, a...)
}

// cPrintln prints a line with the given style or falls back to fmt.Println when nil
func cPrintln(p colorPrinter, a ...any) {
	if p == nil {
		fmt.Println(a...)
		return
	}
	p.Println(a...)
}

// debugf prints debug messages when Debug is true
func debugf(format string, args ...any) {
	if Debug {
		color.Magenta.Print("[DEBUG] ")
		fmt.Printf(format, args...)
	}
}

// infof/warnf/errorf print with the leveled prefixes every command uses.
func infof(format string, args ...any) {
	cPrintf(colInfo, "[INFO] ")
	fmt.Printf(format, args...)
}

func warnf(format string, args ...any) {
	cPrintf(colWarn, "[WARN] ")
	fmt.Printf(format, args...)
}

func errorf(format string, args ...any) {
	cPrintf(colError, "[ERROR] ")
	fmt.Printf(format, args...)
}

// stepf announces a new build stage, e.g. [GCC] Building GCC 13.2.0.
func stepf(step string, format string, args ...any) {
	fmt.Println()
	colStep.Printf("[%s] ", step)
	color.Bold.Printf(format+"\n", args...)
}
