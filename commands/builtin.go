package commands

// Builtin returns the handler set shipped with the server, in the order
// /help reports them.
func Builtin() []Handler {
	return []Handler{
		HelpCommand{},
		StatusCommand{},
		LogsCommand{},
		ClearCommand{},
	}
}
