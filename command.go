package dripfeed

import "fmt"

// Command is an instruction understood by the sender API.
type Command string

const (
	// CommandStart begins sending the file named in [Params].
	CommandStart Command = "start"

	// CommandStop aborts the current transfer.
	CommandStop Command = "stop"

	// CommandStatus asks the sender what it is doing.
	CommandStatus Command = "status"
)

// Commands lists every supported command in a stable order.
var Commands = []Command{CommandStart, CommandStop, CommandStatus}

// ParseCommand converts a string into a [Command].
//
// Returns an error if s is not one of "start", "stop" or "status".
func ParseCommand(s string) (Command, error) {
	c := Command(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown command %q (expected start, stop or status)", s)
	}
	return c, nil
}

// String returns the wire form of the command.
func (c Command) String() string {
	return string(c)
}

// Valid reports whether c is a supported command.
func (c Command) Valid() bool {
	switch c {
	case CommandStart, CommandStop, CommandStatus:
		return true
	}
	return false
}

// IsTransfer reports whether c controls a transfer (start or stop) rather
// than polling status.
func (c Command) IsTransfer() bool {
	return c == CommandStart || c == CommandStop
}

// Params carries optional command arguments.
type Params struct {
	// File names the uploaded file to send. Only used by [CommandStart].
	File string
}

// CommandResult is the sender's reply to a command.
//
// The sender encodes it as {"error": 0|1, "message": "..."}. Message is set
// on both success and failure.
type CommandResult struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// Failed reports whether the sender flagged the command as failed.
func (r CommandResult) Failed() bool {
	return r.Error != 0
}
