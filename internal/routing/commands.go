package routing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wolfman30/sms-router/internal/identity"
)

// UnknownCommandMessage does not echo the command name back.
const UnknownCommandMessage = "Sorry, I don't know that command. Text /help to see what I can do."

type commandHandler struct {
	description string
	run         func(user *identity.UserIdentity, args string) string
}

// commandTable is resolved locally; none of these reach the agent. It is
// filled in init because help lists the table itself.
var commandTable map[string]commandHandler

func init() {
	commandTable = map[string]commandHandler{
		"help": {
			description: "list available commands",
			run:         func(*identity.UserIdentity, string) string { return helpText() },
		},
		"status": {
			description: "check whether this number is linked to your account",
			run:         statusText,
		},
	}
}

func dispatchCommand(name string, user *identity.UserIdentity, args string) (string, bool) {
	handler, ok := commandTable[strings.ToLower(name)]
	if !ok {
		return UnknownCommandMessage, false
	}
	return handler.run(user, args), true
}

func helpText() string {
	names := make([]string, 0, len(commandTable))
	for name := range commandTable {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Available commands:")
	for _, name := range names {
		fmt.Fprintf(&b, "\n/%s - %s", name, commandTable[name].description)
	}
	b.WriteString("\nAnything else goes straight to your assistant.")
	return b.String()
}

func statusText(user *identity.UserIdentity, _ string) string {
	if user == nil {
		return "Assistant is online. This number isn't linked to an account yet, so replies are general."
	}
	greeting := "Hi"
	if name := user.FirstName(); name != "" {
		greeting = "Hi " + name
	}
	if !user.IsActive {
		return greeting + ", this number is linked to an inactive account. Assistant is online."
	}
	return fmt.Sprintf("%s, this number is linked to your account (%s number). Assistant is online.", greeting, user.MatchSource)
}
