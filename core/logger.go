package core

// Logger is any leveled logger the services report through.
// Implementations may inspect args for well-known types (eg. a logged-in
// user) before printing.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
