// Package sh provides an interactive shell driving a device console.
package sh

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/uartcon/pkg/cli/port"
	"github.com/robotalks/uartcon/pkg/env"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool
	Timeout     time.Duration

	Shell  *ishell.Shell
	Config *env.Config
	Conn   *Conn
}

// Reply is the output of a device command.
type Reply struct {
	Command string `json:"command"`
	Reply   string `json:"reply"`
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool
	timeout    = DefaultTimeout

	// commands
	commands = []*ishell.Cmd{
		&PortsCmd,
		&ConnectCmd,
		&DisconnectCmd,
		&SendCmd,
		&LEDCmd,
		&ToggleCmd,
		&StatusCmd,
		&DeviceHelpCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.DurationVar(&timeout, "timeout", timeout, "Time to wait for the device prompt.")
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Timeout:     timeout,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Conn == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// DoCommand sends a command line and prints the reply.
func DoCommand(c *ishell.Context, line string) error {
	s := ShellFrom(c)
	if s.Conn == nil {
		err := fmt.Errorf("not connected")
		c.Err(err)
		return err
	}
	reply, err := s.Conn.DoCommand(line, s.Timeout)
	if err != nil {
		c.Err(err)
		return err
	}
	if s.OutputJSON {
		out, err := json.Marshal(&Reply{Command: line, Reply: reply})
		if err != nil {
			c.Err(err)
			return err
		}
		c.Println(string(out))
		return nil
	}
	c.Print(strings.Replace(reply, "\r\n", "\n", -1))
	return nil
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// Connect opens the named port.
func (s *Shell) Connect(name string) error {
	rw, err := port.Open(name, s.Config.BaudRate)
	if err != nil {
		return err
	}
	s.Disconnect()
	s.Conn = NewConn(name, rw)
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", name))
	return nil
}

// Disconnect closes the current port.
func (s *Shell) Disconnect() {
	if s.Conn != nil {
		s.Conn.Close()
		s.Conn = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect && s.Config.Port != "" {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Config.Port)
		}
		if err := s.Connect(s.Config.Port); err != nil {
			log.Fatalf("connect %q failed: %v", s.Config.Port, err)
		}
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// LEDLine maps the argument of the led command to the device command.
func LEDLine(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("ON or OFF required")
	}
	switch state := strings.ToUpper(args[0]); state {
	case "ON", "OFF":
		return "LED " + state, nil
	default:
		return "", fmt.Errorf("invalid LED state %q", args[0])
	}
}

var (
	// PortsCmd lists serial ports.
	PortsCmd = ishell.Cmd{
		Name:    "ports",
		Aliases: []string{"l"},
		Help:    "",
		Func: func(c *ishell.Context) {
			names, err := port.List()
			if err != nil {
				c.Err(err)
				return
			}
			if ShellFrom(c).OutputJSON {
				if names == nil {
					names = []string{}
				}
				out, err := json.Marshal(names)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(string(out))
				return
			}
			if len(names) == 0 {
				c.Println("No serial ports found")
				return
			}
			for _, name := range names {
				c.Println(name)
			}
		},
	}

	// ConnectCmd opens a port.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "PORT|ws://HOST:PORT",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("PORT required"))
				return
			}
			if err := ShellFrom(c).Connect(c.Args[0]); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd closes the current port.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// SendCmd sends a raw command line.
	SendCmd = ishell.Cmd{
		Name:    "send",
		Aliases: []string{"s"},
		Help:    "LINE",
		Func: MustBeConnected(func(c *ishell.Context) {
			DoCommand(c, strings.Join(c.Args, " "))
		}),
	}

	// LEDCmd switches the LED.
	LEDCmd = ishell.Cmd{
		Name: "led",
		Help: "on|off",
		Func: MustBeConnected(func(c *ishell.Context) {
			line, err := LEDLine(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			DoCommand(c, line)
		}),
	}

	// ToggleCmd toggles the LED.
	ToggleCmd = ishell.Cmd{
		Name:    "toggle",
		Aliases: []string{"t"},
		Help:    "",
		Func: MustBeConnected(func(c *ishell.Context) {
			DoCommand(c, "TOGGLE")
		}),
	}

	// StatusCmd queries the LED.
	StatusCmd = ishell.Cmd{
		Name: "status",
		Help: "",
		Func: MustBeConnected(func(c *ishell.Context) {
			DoCommand(c, "STATUS")
		}),
	}

	// DeviceHelpCmd prints the command list of the device.
	DeviceHelpCmd = ishell.Cmd{
		Name: "device-help",
		Help: "",
		Func: MustBeConnected(func(c *ishell.Context) {
			DoCommand(c, "HELP")
		}),
	}
)

// NewValidated validates conf and creates a shell with it.
func NewValidated(conf *env.Config) (*Shell, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return New(conf), nil
}

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	s, err := NewValidated(env.NewConfig())
	if err != nil {
		log.Fatalln(err)
	}
	s.WithAutoConnect(true).Run(flag.Args()...)
}
