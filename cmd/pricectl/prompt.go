package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yerevan-pricing/backend/internal/catalog"
)

var errNoInput = errors.New("input closed")

// prompter asks questions on a line-oriented terminal.
type prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewScanner(in), out: out}
}

func (p *prompter) ask(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", errNoInput
	}
	return strings.TrimSpace(p.in.Text()), nil
}

// choice reads one of options, matched case-insensitively. An unknown value
// offers the closest option for confirmation. With no options any non-empty
// value is accepted. An empty def means the field has no default.
func (p *prompter) choice(label string, options []string, def string) (string, error) {
	prompt := "  " + label + examples(options)
	if def != "" {
		prompt += " [" + def + "]"
	}
	prompt += ": "

	for {
		value, err := p.ask(prompt)
		if err != nil {
			return "", err
		}
		if value == "" {
			if def != "" {
				return def, nil
			}
			fmt.Fprintln(p.out, "    Please enter a value.")
			continue
		}
		if len(options) == 0 {
			return value, nil
		}
		if v, ok := catalog.MatchFold(options, value); ok {
			return v, nil
		}

		suggestion, ok := catalog.SuggestFrom(options, value)
		if !ok {
			fmt.Fprintf(p.out, "    '%s' is not recognized. Please try again.\n", value)
			continue
		}
		yes, err := p.confirm(fmt.Sprintf("    '%s' is not a known %s. Use '%s' instead? [Y/n]: ", value, label, suggestion), true)
		if err != nil {
			return "", err
		}
		if yes {
			return suggestion, nil
		}
		fmt.Fprintln(p.out, "    Let's try again.")
	}
}

func (p *prompter) number(label string, def float64) (float64, error) {
	prompt := fmt.Sprintf("  %s [%s]: ", label, strconv.FormatFloat(def, 'f', -1, 64))
	for {
		value, err := p.ask(prompt)
		if err != nil {
			return 0, err
		}
		if value == "" {
			return def, nil
		}
		v, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return v, nil
		}
		fmt.Fprintln(p.out, "    Please enter a numeric value (e.g. 250 or 3990).")
	}
}

func (p *prompter) confirm(prompt string, def bool) (bool, error) {
	value, err := p.ask(prompt)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(value) {
	case "":
		return def, nil
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func examples(options []string) string {
	switch {
	case len(options) == 0:
		return ""
	case len(options) <= 3:
		return " (" + strings.Join(options, ", ") + ")"
	}
	return " (e.g. " + strings.Join(options[:3], ", ") + ")"
}
