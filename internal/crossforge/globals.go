package crossforge

import (
	"runtime"
	"sync"

	"github.com/gookit/color"
)

// Global variables
var (
	ConfigFile           = "/etc/crossforge.conf"
	Debug                bool
	Verbose              bool
	gnuMirrorURL         string
	gnuOriginalURL       = "https://ftp.gnu.org/gnu"
	gnuMirrorMessageOnce sync.Once
	version              = "dev" // overridden at build time
	buildDate            = "unknown"
	hostGoArch           = runtime.GOARCH
)

// color helpers
var (
	colInfo    = color.Info // style provided by gookit/color
	colWarn    = color.Warn
	colError   = color.Error
	colSuccess = color.HEX("#1976D2")
	colArrow   = color.HEX("#FFEB3B")
	colStep    = color.Cyan
)
