package relay

import "strings"

// Command is the closed set of recognized slash commands. Parsing happens
// once; dispatch is an exhaustive type switch, never prefix chains.
type Command interface{ isCommand() }

type (
	// StartCommand and HelpCommand both show the welcome flow.
	StartCommand struct{}
	HelpCommand  struct{}

	// ChangeNameCommand puts the sender back into the awaiting-name mode.
	ChangeNameCommand struct{}

	// BlockCommand and UnblockCommand are operator-only moderation.
	BlockCommand   struct{ Pseudonym string }
	UnblockCommand struct{ Pseudonym string }

	// Template maintenance, operator-only.
	ResetTemplateCommand     struct{ Key string }
	ResetAllTemplatesCommand struct{}
	ListTemplatesCommand     struct{}
)

func (StartCommand) isCommand()             {}
func (HelpCommand) isCommand()              {}
func (ChangeNameCommand) isCommand()        {}
func (BlockCommand) isCommand()             {}
func (UnblockCommand) isCommand()           {}
func (ResetTemplateCommand) isCommand()     {}
func (ResetAllTemplatesCommand) isCommand() {}
func (ListTemplatesCommand) isCommand()     {}

// ParseCommand maps text to a Command, or reports false for anything that
// is not a recognized command for the sender's role. Prefixes are exact
// and case-sensitive. Operator-only forms parse to nothing for end-users
// so their text is treated as a regular message.
func ParseCommand(text string, operator bool) (Command, bool) {
	text = strings.TrimSpace(text)
	switch {
	case text == "/start" || strings.HasPrefix(text, "/start "):
		return StartCommand{}, true
	case text == "/help" || strings.HasPrefix(text, "/help "):
		return HelpCommand{}, true
	case text == "/changename":
		return ChangeNameCommand{}, true
	}
	if !operator {
		return nil, false
	}
	switch {
	case strings.HasPrefix(text, "/block "):
		arg := strings.TrimSpace(strings.TrimPrefix(text, "/block "))
		if arg == "" {
			return nil, false
		}
		return BlockCommand{Pseudonym: arg}, true
	case strings.HasPrefix(text, "/unblock "):
		arg := strings.TrimSpace(strings.TrimPrefix(text, "/unblock "))
		if arg == "" {
			return nil, false
		}
		return UnblockCommand{Pseudonym: arg}, true
	case strings.HasPrefix(text, "/resetmsg "):
		arg := strings.TrimSpace(strings.TrimPrefix(text, "/resetmsg "))
		if arg == "" {
			return nil, false
		}
		return ResetTemplateCommand{Key: arg}, true
	case text == "/resetall":
		return ResetAllTemplatesCommand{}, true
	case text == "/templates":
		return ListTemplatesCommand{}, true
	}
	return nil, false
}
