package console

import "github.com/robotalks/uartcon/pkg/uart"

// Command is an entry of the command table.
type Command struct {
	// Name is matched exactly and case-sensitively against the whole line.
	Name string
	// Run performs the side effect and returns the message to echo.
	Run func(uart.GPIO) string
}

// Table is an ordered, read-only set of commands.
type Table struct {
	cmds []Command
}

// NewTable builds a Table. Names must be unique.
func NewTable(cmds ...Command) *Table {
	t := &Table{cmds: make([]Command, 0, len(cmds))}
	for _, cmd := range cmds {
		if _, exists := t.Lookup(cmd.Name); exists {
			panic("duplicate command " + cmd.Name)
		}
		t.cmds = append(t.cmds, cmd)
	}
	return t
}

// Lookup finds the command named exactly line.
func (t *Table) Lookup(line string) (Command, bool) {
	for _, cmd := range t.cmds {
		if cmd.Name == line {
			return cmd, true
		}
	}
	return Command{}, false
}

// Names lists command names in table order.
func (t *Table) Names() []string {
	names := make([]string, len(t.cmds))
	for n, cmd := range t.cmds {
		names[n] = cmd.Name
	}
	return names
}
