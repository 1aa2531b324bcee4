package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/lagrangedao/go-compute-to-data/internal/credential"
	"github.com/lagrangedao/go-compute-to-data/internal/models"
	"github.com/lagrangedao/go-compute-to-data/wallet"
)

// stdinPrompter asks the credential and signing questions on the terminal.
type stdinPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

var stdin = bufio.NewReader(os.Stdin)

func newStdinPrompter() *stdinPrompter {
	return &stdinPrompter{in: stdin, out: os.Stdout}
}

func (p *stdinPrompter) readLine(prompt string) string {
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	return strings.TrimSpace(line)
}

// yes treats an empty answer as def.
func (p *stdinPrompter) yes(prompt string, def bool) bool {
	suffix := " [y/N]: "
	if def {
		suffix = " [Y/n]: "
	}
	switch strings.ToLower(p.readLine(prompt + suffix)) {
	case "":
		return def
	case "y", "yes":
		return true
	}
	return false
}

func (p *stdinPrompter) SelectCredentials(missing []string, matched []models.Credential) (map[string][]string, bool) {
	selected := credential.GroupByDescriptor(missing, matched)
	fmt.Fprintln(p.out, "The asset requires these credentials:")
	for _, id := range missing {
		ids := selected[id]
		if len(ids) == 0 {
			fmt.Fprintf(p.out, "  %s: %s\n", id, color.RedString("no matching credential"))
			continue
		}
		fmt.Fprintf(p.out, "  %s: %s\n", id, strings.Join(ids, ", "))
	}
	if !p.yes("Present these credentials?", true) {
		return nil, false
	}
	return selected, true
}

func (p *stdinPrompter) ConfirmDid(dids []models.Did, defaultDid string) (string, bool) {
	if len(dids) == 1 {
		return defaultDid, p.yes(fmt.Sprintf("Sign the presentation with %s?", defaultDid), true)
	}
	fmt.Fprintln(p.out, "Choose the DID that signs the presentation:")
	for i, d := range dids {
		mark := " "
		if d.Did == defaultDid {
			mark = "*"
		}
		fmt.Fprintf(p.out, " %s %d) %s %s\n", mark, i+1, d.Did, d.Alias)
	}
	answer := p.readLine("DID number (empty for default, q to abort): ")
	switch answer {
	case "":
		return defaultDid, true
	case "q", "Q":
		return "", false
	}
	n, err := strconv.Atoi(answer)
	if err != nil || n < 1 || n > len(dids) {
		color.Red("invalid choice: %s", answer)
		return "", false
	}
	return dids[n-1].Did, true
}

func (p *stdinPrompter) Confirmer() wallet.Confirmer {
	return func(action string) bool {
		return p.yes(fmt.Sprintf("Sign transaction: %s?", action), true)
	}
}

func autoConfirm(string) bool {
	return true
}

func printStep(text string) {
	color.Green(text)
}
