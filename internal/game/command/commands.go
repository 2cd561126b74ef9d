// Package command provides the command registry, parser, and built-in command definitions.
package command

// Categories for organizing commands.
const (
	CategoryPlay     = "play"
	CategorySettings = "settings"
	CategorySystem   = "system"
)

// Handler identifiers mapping commands to REPL actions.
const (
	HandlerRoll       = "roll"
	HandlerSet        = "set"
	HandlerDismiss    = "dismiss"
	HandlerDice       = "dice"
	HandlerMode       = "mode"
	HandlerRule       = "rule"
	HandlerResetRules = "reset"
	HandlerSound      = "sound"
	HandlerHistory    = "history"
	HandlerRules      = "rules"
	HandlerStatus     = "status"
	HandlerHelp       = "help"
	HandlerQuit       = "quit"
)

// Command defines a player-invocable command.
type Command struct {
	// Name is the canonical command name.
	Name string
	// Aliases are alternate names for this command.
	Aliases []string
	// Usage shows the argument form, e.g. "set <total>".
	Usage string
	// Help is the short help text displayed to players.
	Help string
	// Category groups the command (play, settings, system).
	Category string
	// Handler maps to the REPL action.
	Handler string
}

// BuiltinCommands returns all built-in commands.
func BuiltinCommands() []Command {
	return []Command{
		// Play commands
		{Name: "roll", Aliases: []string{"r", "w", "wuerfeln"}, Usage: "roll", Help: "Würfeln (eine leere Zeile würfelt auch)", Category: CategoryPlay, Handler: HandlerRoll},
		{Name: "set", Aliases: []string{"s"}, Usage: "set <total>", Help: "Eine bestimmte Zahl würfeln", Category: CategoryPlay, Handler: HandlerSet},
		{Name: "dismiss", Aliases: []string{"ok", "d"}, Usage: "dismiss", Help: "Regel ausblenden, bereit für den nächsten Wurf", Category: CategoryPlay, Handler: HandlerDismiss},
		{Name: "history", Aliases: []string{"h"}, Usage: "history", Help: "Die letzten Würfe anzeigen, neuester zuerst", Category: CategoryPlay, Handler: HandlerHistory},

		// Settings commands
		{Name: "dice", Aliases: nil, Usage: "dice <1|2>", Help: "Zwischen einem und zwei Würfeln wechseln (neues Spiel)", Category: CategorySettings, Handler: HandlerDice},
		{Name: "mode", Aliases: nil, Usage: "mode [name]", Help: "Spielmodus anzeigen oder wechseln (neues Spiel)", Category: CategorySettings, Handler: HandlerMode},
		{Name: "rule", Aliases: nil, Usage: "rule <total> <text>", Help: "Die Regel für eine Zahl ändern", Category: CategorySettings, Handler: HandlerRule},
		{Name: "reset", Aliases: nil, Usage: "reset", Help: "Standardregeln des Modus wiederherstellen", Category: CategorySettings, Handler: HandlerResetRules},
		{Name: "sound", Aliases: nil, Usage: "sound <on|off>", Help: "Töne ein- oder ausschalten", Category: CategorySettings, Handler: HandlerSound},
		{Name: "rules", Aliases: []string{"table"}, Usage: "rules", Help: "Regeltabelle anzeigen", Category: CategorySettings, Handler: HandlerRules},

		// System commands
		{Name: "status", Aliases: []string{"st"}, Usage: "status", Help: "Spielstand anzeigen", Category: CategorySystem, Handler: HandlerStatus},
		{Name: "help", Aliases: []string{"?"}, Usage: "help", Help: "Verfügbare Befehle anzeigen", Category: CategorySystem, Handler: HandlerHelp},
		{Name: "quit", Aliases: []string{"q", "exit"}, Usage: "quit", Help: "Spiel beenden", Category: CategorySystem, Handler: HandlerQuit},
	}
}
