package shell

import (
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/samber/lo"
)

// ShellCompleter provides context-aware autocomplete for shell commands
type ShellCompleter struct {
	sc *ShellController
}

func NewShellCompleter(sc *ShellController) *ShellCompleter {
	return &ShellCompleter{sc: sc}
}

// CommandMetadata holds autocomplete information for a command
type CommandMetadata struct {
	Options []string
	Args    []string
}

var commandMetadata = map[string]CommandMetadata{
	"create": {Options: []string{"-type", "-name"}},
	"join":   {Options: []string{"-name"}},
	"help":   {Args: []string{"click", "play", "lobby", "script"}},
}

var commandNames = []string{
	"help", "s", "board", "status", "options", "poll", "click", "cell", "sq",
	"play", "reset", "list", "create", "join", "kill", "history", "script",
	"exit", "bye",
}

var gameTypes = []string{"PVP", "PVC"}

// squareCompletions offers the squares the next click could usefully hit.
func (c *ShellCompleter) squareCompletions() []string {
	s := c.sc.sync.Session()
	if !s.CanAct() {
		return nil
	}
	var ids []int
	if cand := s.Candidate(); len(cand) > 0 {
		for _, o := range s.Options.Continuations(cand) {
			for _, v := range o[len(cand):] {
				if v > 0 {
					ids = append(ids, v)
					break
				}
			}
		}
	} else {
		for _, id := range s.Options.Starts() {
			ids = append(ids, int(id))
		}
	}
	return lo.Map(lo.Uniq(ids), func(id int, _ int) string { return strconv.Itoa(id) })
}

// Do implements the readline.AutoComplete interface
func (c *ShellCompleter) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line[:pos])

	fields, err := shellquote.Split(text)
	if err != nil {
		fields = strings.Fields(text)
	}
	endsWithSpace := len(text) > 0 && text[len(text)-1] == ' '

	var prefix string
	var completions []string

	if len(fields) == 0 || (len(fields) == 1 && !endsWithSpace) {
		if len(fields) == 1 {
			prefix = fields[0]
		}
		completions = commandNames
	} else {
		cmdName := fields[0]
		if !endsWithSpace {
			prefix = fields[len(fields)-1]
		}
		var lastCompleteField string
		if endsWithSpace {
			lastCompleteField = fields[len(fields)-1]
		} else if len(fields) > 1 {
			lastCompleteField = fields[len(fields)-2]
		}

		if lastCompleteField == "-type" {
			completions = gameTypes
		}
		if completions == nil && (cmdName == "sq" || cmdName == "play") {
			completions = c.squareCompletions()
		}
		if completions == nil {
			if metadata, exists := commandMetadata[cmdName]; exists {
				if strings.HasPrefix(prefix, "-") || len(metadata.Args) == 0 {
					completions = metadata.Options
				} else {
					completions = metadata.Args
				}
			}
		}
	}

	var matches [][]rune
	for _, completion := range completions {
		if strings.HasPrefix(completion, prefix) {
			suffix := completion[len(prefix):]
			matches = append(matches, []rune(suffix))
		}
	}
	return matches, len(prefix)
}
