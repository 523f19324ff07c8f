// ansi.go - ANSI-Steuersequenzen fuer die Live-Ansicht
package display

import (
	"fmt"
	"image/color"
)

const (
	CursorHide = "\033[?25l"
	CursorShow = "\033[?25h"
	CursorBOL  = "\033[1G"
	ClearToEOL = "\033[K"

	ColorDefault = "\033[0m"
	ColorGrey    = "\033[38;5;245m"
	ColorBold    = "\033[1m"
	ColorRed     = "\033[31m"
	ColorBlue    = "\033[34m"
)

func CursorUpN(n int) string {
	return fmt.Sprintf("\033[%dA", n)
}

// fg setzt eine 24-Bit-Vordergrundfarbe
func fg(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("\033[38;2;%d;%d;%dm", r>>8, g>>8, b>>8)
}

// bg setzt eine 24-Bit-Hintergrundfarbe
func bg(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("\033[48;2;%d;%d;%dm", r>>8, g>>8, b>>8)
}
