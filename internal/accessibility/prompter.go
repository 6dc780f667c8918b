package accessibility

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ConsolePrompter asks the operator to complete interactive sign-in on the
// terminal. Tests inject their own Prompter instead.
type ConsolePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewConsolePrompter creates a prompter over the given streams.
func NewConsolePrompter(in io.Reader, out io.Writer) *ConsolePrompter {
	return &ConsolePrompter{in: bufio.NewReader(in), out: out}
}

// ConfirmLogin prints sign-in guidance and waits for the operator. Returns
// false when the operator gives up.
func (p *ConsolePrompter) ConfirmLogin(attempt, maxAttempts int) bool {
	fmt.Fprintf(p.out, "\nBrowser session is not signed in (attempt %d of %d).\n", attempt, maxAttempts)
	fmt.Fprintln(p.out, "Complete the sign-in in the automated browser window, including any SSO or 2FA steps.")
	fmt.Fprint(p.out, "Press Enter when done, or type 'skip' to continue without UI access: ")

	line, err := p.in.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer != "skip" && answer != "n" && answer != "no"
}
