package cli

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fourbar/fourbar/pkg/errors"
	"github.com/fourbar/fourbar/pkg/layout"
	"github.com/fourbar/fourbar/pkg/widget"
)

// validateCommand creates the validate command.
func (c *CLI) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [layout.json]",
		Short: "Check a layout file without rendering it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			l, err := layout.ReadFile(path)
			if err != nil {
				return err
			}

			problems := validateLayout(widget.Builtin(), l)
			if len(problems) > 0 {
				for _, p := range problems {
					printError("%v", p)
				}
				return fmt.Errorf("%s: %d problem(s)", filepath.Base(path), len(problems))
			}

			printSuccess("%s is valid", filepath.Base(path))
			printKeyValue("Community", orDash(l.CommunityID))
			printKeyValue("Version", strconv.FormatInt(l.Version, 10))
			printKeyValue("Widgets", strconv.Itoa(len(l.Widgets)))
			printKeyValue("Available", strconv.Itoa(len(l.Available)))
			printNextStep("Render it", "fourbar render "+path)
			return nil
		},
	}
}

// validateLayout returns every problem found in l: grid shape, unregistered
// widget types and payloads the widget rejects.
func validateLayout(reg *widget.Registry, l layout.Layout) []error {
	var problems []error
	if l.Background != "" {
		if err := errors.ValidateURL(l.Background); err != nil {
			problems = append(problems, fmt.Errorf("background: %w", err))
		}
	}
	if err := layout.Validate(l.Widgets); err != nil {
		problems = append(problems, err)
	}

	for _, d := range l.Widgets {
		if _, ok := reg.Lookup(d.Type); !ok {
			problems = append(problems, fmt.Errorf("%s: %w", d.Position(), &widget.UnknownTypeError{Type: d.Type}))
			continue
		}
		if d.Data == nil {
			continue
		}
		if err := reg.Validate(d.Template()); err != nil {
			problems = append(problems, fmt.Errorf("%s: %w", d.Position(), err))
		}
	}

	for _, t := range l.Available {
		if err := reg.Validate(t); err != nil {
			problems = append(problems, fmt.Errorf("available %s: %w", t.Key(), err))
		}
	}
	return problems
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
