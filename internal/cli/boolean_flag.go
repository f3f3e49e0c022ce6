package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	toggleFlagTypeName       = "toggle"
	toggleFlagTrueLiteral    = "true"
	toggleFlagAcceptedValues = "true, false, yes, no, on, off, 1, 0"
	toggleFlagInvalidFormat  = "invalid value %q for --%s; accepted values: %s"
)

var toggleFlagLiterals = map[string]bool{
	"true":  true,
	"t":     true,
	"1":     true,
	"yes":   true,
	"y":     true,
	"on":    true,
	"false": false,
	"f":     false,
	"0":     false,
	"no":    false,
	"n":     false,
	"off":   false,
}

func parseToggleLiteral(input string) (bool, bool) {
	parsed, known := toggleFlagLiterals[strings.ToLower(strings.TrimSpace(input))]
	return parsed, known
}

// toggleFlag is a boolean flag that accepts a bare form (--copy), an assignment
// (--copy=no) and a separate literal (--copy off).
type toggleFlag struct {
	target *bool
	name   string
}

func (flag *toggleFlag) Set(input string) error {
	if strings.TrimSpace(input) == "" {
		*flag.target = true
		return nil
	}
	parsed, known := parseToggleLiteral(input)
	if !known {
		return fmt.Errorf(toggleFlagInvalidFormat, input, flag.name, toggleFlagAcceptedValues)
	}
	*flag.target = parsed
	return nil
}

func (flag *toggleFlag) String() string {
	if flag == nil || flag.target == nil {
		return strconv.FormatBool(false)
	}
	return strconv.FormatBool(*flag.target)
}

func (flag *toggleFlag) Type() string {
	return toggleFlagTypeName
}

func registerToggleFlag(flagSet *pflag.FlagSet, target *bool, name string, defaultValue bool, usage string) {
	*target = defaultValue
	flagSet.Var(&toggleFlag{target: target, name: name}, name, usage)
	registered := flagSet.Lookup(name)
	registered.DefValue = strconv.FormatBool(defaultValue)
	registered.NoOptDefVal = toggleFlagTrueLiteral
}

// expandToggleArguments rewrites "--flag literal" pairs into "--flag=literal" for every
// toggle flag known to command or its subcommands. pflag would otherwise treat the
// literal as a positional argument.
func expandToggleArguments(command *cobra.Command, arguments []string) []string {
	toggleNames := map[string]struct{}{}
	collectToggleNames(command, toggleNames)
	if len(toggleNames) == 0 {
		return arguments
	}

	expanded := make([]string, 0, len(arguments))
	for index := 0; index < len(arguments); index++ {
		argument := arguments[index]
		if argument == "--" {
			expanded = append(expanded, arguments[index:]...)
			break
		}
		if strings.HasPrefix(argument, "--") && !strings.Contains(argument, "=") && index+1 < len(arguments) {
			name := strings.TrimPrefix(argument, "--")
			if _, isToggle := toggleNames[name]; isToggle {
				if _, known := parseToggleLiteral(arguments[index+1]); known {
					expanded = append(expanded, argument+"="+arguments[index+1])
					index++
					continue
				}
			}
		}
		expanded = append(expanded, argument)
	}
	return expanded
}

func collectToggleNames(command *cobra.Command, names map[string]struct{}) {
	visit := func(flag *pflag.Flag) {
		if flag.Value.Type() == toggleFlagTypeName {
			names[flag.Name] = struct{}{}
		}
	}
	command.PersistentFlags().VisitAll(visit)
	command.Flags().VisitAll(visit)
	for _, child := range command.Commands() {
		collectToggleNames(child, names)
	}
}
