package i18n

// EnMessages English message catalog
var EnMessages = map[string]string{
	// App
	"app.title": "Library Risk Assistant",

	// Welcome screen
	"welcome.heading":  "Library Risk Assistant",
	"welcome.subtitle": "Describe a problem in your library and get its risk category and suggested solutions.",
	"welcome.login":    "Log in",
	"welcome.signup":   "Create account",

	// Login / signup screens
	"auth.name":            "Name",
	"auth.email":           "Email",
	"auth.password":        "Password",
	"auth.submit":          "Submit",
	"auth.connect_error":   "Could not connect to the server",
	"login.title":          "Log in",
	"login.pending":        "Logging in...",
	"login.failed":         "Login failed",
	"signup.title":         "Create account",
	"signup.pending":       "Creating account...",
	"signup.failed":        "Sign-up failed",
	"auth.fields_required": "All fields are required",

	// Chat
	"chat.greeting":      "Hello %s! 👋\nI'm your library risk management assistant 📚\nDescribe any problem and I'll help you classify it and find solutions.",
	"chat.placeholder":   "Describe a problem... (Enter to send)",
	"chat.typing":        "typing",
	"chat.connect_error": "Sorry, the server cannot be reached",
	"chat.error":         "Sorry, an error occurred",
	"chat.confidence":    "%.1f%% confidence",
	"chat.busy":          "Still waiting for the previous answer",
	"chat.you":           "You",
	"chat.bot":           "Assistant",

	// History overlay
	"history.title":         "Problem history",
	"history.loading":       "Loading...",
	"history.empty":         "No problems recorded yet",
	"history.failed":        "Failed to load history",
	"history.clear_confirm": "Are you sure you want to clear the history?",
	"history.clear_failed":  "Failed to clear history",
	"history.solutions":     "Solutions",

	// Status bar
	"status.ready":             "Ready",
	"status.waiting":           "Waiting for answer...",
	"status.backend_ok":        "backend online",
	"status.backend_down":      "backend unreachable",
	"status.model_unavailable": "classifier unavailable",
	"status.signed_in_as":      "Signed in as %s",
	"status.anonymous":         "Not signed in",

	// Keybindings (TUI)
	"keys.welcome": "l log in · s sign up · ctrl+c quit",
	"keys.auth":    "tab next field · enter submit · ctrl+c quit",
	"keys.chat":    "enter send · ctrl+r history · ctrl+x log out · pgup/pgdn scroll · ctrl+c quit",
	"keys.history": "esc close · c clear history · ↑/↓ scroll",
	"keys.confirm": "y yes · n no",

	// REPL
	"repl.banner":      "Type /help for commands.",
	"repl.help":        "Commands: /login /signup /history /clear /logout /status /help /quit",
	"repl.yes_no":      "[y/N]",
	"repl.not_in_chat": "Log in or sign up first (/login, /signup)",
	"repl.unknown_cmd": "Unknown command: %s",
	"repl.bye":         "Bye",
}
