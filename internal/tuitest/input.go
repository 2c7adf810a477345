package tuitest

var (
	// KeyEnter sends a carriage return to the PTY.
	KeyEnter = []byte{'\r'}
	// KeyCtrlC requests the program to terminate.
	KeyCtrlC = []byte{3}
	// KeyEsc cancels the pending placement or closes help.
	KeyEsc = []byte{27}
	// KeyPageDown moves to the next page.
	KeyPageDown = []byte("\x1b[6~")
)

// X10 mouse button codes. Motion adds 32 to the held button.
const (
	mouseLeft    = 0
	mouseRelease = 3
	mouseMotion  = 32
)

// mouse encodes one X10 mouse report for the 0-based cell (x, y). Cells
// past column 222 cannot be encoded.
func mouse(button, x, y int) []byte {
	return []byte{0x1b, '[', 'M', byte(32 + button), byte(33 + x), byte(33 + y)}
}

// MouseClick presses and releases the left button on a cell.
func MouseClick(x, y int) []byte {
	return append(mouse(mouseLeft, x, y), mouse(mouseRelease, x, y)...)
}

// MouseDrag presses on one cell, moves with the button held and releases on
// another.
func MouseDrag(fromX, fromY, toX, toY int) []byte {
	out := mouse(mouseLeft, fromX, fromY)
	out = append(out, mouse(mouseMotion+mouseLeft, toX, toY)...)
	return append(out, mouse(mouseRelease, toX, toY)...)
}
