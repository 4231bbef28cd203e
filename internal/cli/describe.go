// Package cli holds helpers shared by consultbot and consultbotd.
package cli

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const helpJSONFlag = "help-json"

// EnvAnnotation names the environment variables a flag falls back to.
const EnvAnnotation = "consultbot_env"

// FlagSchema describes one flag for machine readers.
type FlagSchema struct {
	Name        string   `json:"name"`
	Shorthand   string   `json:"shorthand,omitempty"`
	Type        string   `json:"type"`
	Default     string   `json:"default,omitempty"`
	Description string   `json:"description,omitempty"`
	Required    bool     `json:"required"`
	Env         []string `json:"env,omitempty"`
}

// CommandSchema describes a command and its visible subcommands.
type CommandSchema struct {
	Name        string          `json:"name"`
	Path        string          `json:"path"`
	Use         string          `json:"use,omitempty"`
	Description string          `json:"description,omitempty"`
	Long        string          `json:"long,omitempty"`
	Example     string          `json:"example,omitempty"`
	Flags       []FlagSchema    `json:"flags,omitempty"`
	Inherited   []FlagSchema    `json:"inheritedFlags,omitempty"`
	Subcommands []CommandSchema `json:"subcommands,omitempty"`
}

// Describe builds the schema of cmd. Hidden commands and flags and the help
// flags are left out.
func Describe(cmd *cobra.Command) CommandSchema {
	schema := CommandSchema{
		Name:        cmd.Name(),
		Path:        cmd.CommandPath(),
		Use:         cmd.Use,
		Description: cmd.Short,
		Long:        cmd.Long,
		Example:     cmd.Example,
		Flags:       describeFlags(cmd.LocalFlags()),
		Inherited:   describeFlags(cmd.InheritedFlags()),
	}
	for _, sub := range cmd.Commands() {
		if sub.Hidden || sub.Name() == "help" || sub.Name() == "completion" {
			continue
		}
		schema.Subcommands = append(schema.Subcommands, Describe(sub))
	}
	return schema
}

func describeFlags(set *pflag.FlagSet) []FlagSchema {
	var flags []FlagSchema
	set.VisitAll(func(f *pflag.Flag) {
		if f.Hidden || f.Name == "help" || f.Name == helpJSONFlag {
			return
		}
		flags = append(flags, FlagSchema{
			Name:        f.Name,
			Shorthand:   f.Shorthand,
			Type:        f.Value.Type(),
			Default:     f.DefValue,
			Description: f.Usage,
			Required:    annotated(f, cobra.BashCompOneRequiredFlag, "true"),
			Env:         f.Annotations[EnvAnnotation],
		})
	})
	return flags
}

func annotated(f *pflag.Flag, key, want string) bool {
	vals := f.Annotations[key]
	return len(vals) > 0 && vals[0] == want
}

// AddHelpJSONFlag registers --help-json on root and every command below it.
func AddHelpJSONFlag(root *cobra.Command) {
	root.PersistentFlags().Bool(helpJSONFlag, false, "Print the command schema as JSON")
}

// BindEnv records the environment variables flag name falls back to, so they
// show up in --help-json output.
func BindEnv(flags *pflag.FlagSet, name string, env ...string) {
	_ = flags.SetAnnotation(name, EnvAnnotation, env)
}

// HelpJSON writes the schema of the command addressed by args when args
// contain --help-json. It reports whether it handled the invocation. It runs
// before cobra parses args so missing positional arguments do not get in the
// way.
func HelpJSON(root *cobra.Command, args []string, w io.Writer) (bool, error) {
	for i, arg := range args {
		if arg != "--"+helpJSONFlag {
			continue
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(Describe(resolve(root, args[:i])))
	}
	return false, nil
}

// resolve walks subcommand names in args, skipping flags, and stops at the
// first word that is not a subcommand.
func resolve(cmd *cobra.Command, args []string) *cobra.Command {
	for _, arg := range args {
		if strings.HasPrefix(arg, "-") {
			continue
		}
		next := child(cmd, arg)
		if next == nil {
			break
		}
		cmd = next
	}
	return cmd
}

func child(cmd *cobra.Command, name string) *cobra.Command {
	for _, sub := range cmd.Commands() {
		if sub.Name() == name || sub.HasAlias(name) {
			return sub
		}
	}
	return nil
}
