package console

import "github.com/robotalks/uartcon/pkg/uart"

// Messages echoed by the built-in commands.
const (
	HelpText = "Available commands:\r\n" +
		"  HELP    - Show this help\r\n" +
		"  LED ON  - Turn LED on\r\n" +
		"  LED OFF - Turn LED off\r\n" +
		"  TOGGLE  - Toggle LED\r\n" +
		"  STATUS  - Show LED status\r\n"
	LEDOnText     = "LED turned ON\r\n"
	LEDOffText    = "LED turned OFF\r\n"
	ToggledText   = "LED toggled\r\n"
	StatusOnText  = "LED is ON\r\n"
	StatusOffText = "LED is OFF\r\n"
)

// Builtins returns the fixed command set driving the LED on pin led.
func Builtins(led uart.Pin) []Command {
	return []Command{
		{
			Name: "HELP",
			Run:  func(uart.GPIO) string { return HelpText },
		},
		{
			Name: "LED ON",
			Run: func(gpio uart.GPIO) string {
				gpio.SetOutput(led, true)
				return LEDOnText
			},
		},
		{
			Name: "LED OFF",
			Run: func(gpio uart.GPIO) string {
				gpio.SetOutput(led, false)
				return LEDOffText
			},
		},
		{
			Name: "TOGGLE",
			Run: func(gpio uart.GPIO) string {
				gpio.SetOutput(led, !gpio.GetOutput(led))
				return ToggledText
			},
		},
		{
			Name: "STATUS",
			Run: func(gpio uart.GPIO) string {
				if gpio.GetOutput(led) {
					return StatusOnText
				}
				return StatusOffText
			},
		},
	}
}

// DefaultTable is the compiled-in command table for the LED on pin led.
func DefaultTable(led uart.Pin) *Table {
	return NewTable(Builtins(led)...)
}
