package logging

// Field names for structured logging.
const (
	FieldError    = "error"
	FieldPath     = "path"
	FieldRoot     = "root"
	FieldFiles    = "files"
	FieldInvalid  = "invalid"
	FieldDecls    = "decls"
	FieldModule   = "module"
	FieldDB       = "db"
	FieldListen   = "listen"
	FieldRoute    = "route"
	FieldMethod   = "method"
	FieldStatus   = "status"
	FieldDuration = "duration"
	FieldBytes    = "bytes"
	FieldScript   = "script"
	FieldConfig   = "config"
)
