// Command expanderctl is an interactive console for a pico-expander
// board attached over USB CDC or a serial header.
//
// Usage:
//
//	expanderctl -device /dev/ttyACM0
//
// Commands:
//
//	identify                 - show firmware version and features
//	status                   - show status flags, pending events, ticks
//	get <pin>                - read a digital pin
//	set <pin> <0|1>          - drive an output pin
//	config <pin> <in|out|analog> [none|up|down] [none|rise|fall|both]
//	read <reg>               - read a register (name or address)
//	write <reg> <value>      - write a register
//	regs                     - list the register map
//	poll [max]               - drain queued pin-change events
//	analog <pin>             - run an ADC conversion
//	pwm <pin> <freq> <duty>  - attach PWM (freq 0 disables)
//	led <ms>                 - set status LED blink half-period
//	quit                     - exit
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"pico-expander/core"
	"pico-expander/host/client"
)

var device = flag.String("device", "/dev/ttyACM0", "serial device path")

func main() {
	flag.Parse()

	c, err := client.Open(*device)
	if err != nil {
		log.Fatalf("open %s: %v", *device, err)
	}
	defer c.Close()

	info, err := c.Identify()
	if err != nil {
		log.Fatalf("identify: %v", err)
	}
	fmt.Printf("pico-expander %s (%d pins, features 0b%b) on %s\n",
		info.VersionString, info.PinCount, info.Features, *device)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "expander> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		log.Fatalf("readline: %v", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" {
			return
		}

		if err := run(rl.Stdout(), c, fields[0], fields[1:]); err != nil {
			fmt.Fprintf(rl.Stderr(), "error: %v\n", err)
		}
	}
}

func run(out io.Writer, c *client.Client, cmd string, args []string) error {
	switch cmd {
	case "identify":
		info, err := c.Identify()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "version:  %s (0x%04X)\n", info.VersionString, info.Version)
		fmt.Fprintf(out, "pins:     %d\n", info.PinCount)
		fmt.Fprintf(out, "features:%s\n", featureNames(info.Features))
		return nil

	case "status":
		st, err := c.GetStatus()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "flags: 0b%b  pending events: %d  ticks: %d\n",
			st.Flags, st.PendingEvents, st.Ticks)
		return nil

	case "get":
		pin, err := argUint(args, 0)
		if err != nil {
			return err
		}
		value, err := c.GetPin(pin)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "pin %d = %d\n", pin, boolInt(value))
		return nil

	case "set":
		pin, err := argUint(args, 0)
		if err != nil {
			return err
		}
		level, err := argUint(args, 1)
		if err != nil {
			return err
		}
		return c.SetPin(pin, level != 0)

	case "config":
		return runConfig(c, args)

	case "read":
		addr, err := regArg(args, 0)
		if err != nil {
			return err
		}
		value, err := c.ReadRegister(addr)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "[0x%02X] = 0x%08X\n", addr, value)
		return nil

	case "write":
		addr, err := regArg(args, 0)
		if err != nil {
			return err
		}
		value, err := argUint(args, 1)
		if err != nil {
			return err
		}
		return c.WriteRegister(addr, value)

	case "regs":
		for addr := uint8(0); int(addr) < core.RegCount; addr++ {
			def, err := core.RegisterDefOf(core.RegAddr(addr))
			if err != nil {
				continue
			}
			fmt.Fprintf(out, "0x%02X  %-8s %-3s mask 0x%08X\n",
				addr, def.Name, accessName(def.Access), def.Mask)
		}
		return nil

	case "poll":
		max := uint32(0)
		if len(args) > 0 {
			v, err := argUint(args, 0)
			if err != nil {
				return err
			}
			max = v
		}
		events, overflow, err := c.PollEvents(max)
		if err != nil {
			return err
		}
		if overflow {
			fmt.Fprintln(out, "warning: event queue overflowed, oldest events dropped")
		}
		for _, ev := range events {
			fmt.Fprintf(out, "pin %2d -> %d  %-7s @%d\n",
				ev.Pin, ev.Value, causeName(ev.Cause), ev.Ticks)
		}
		if len(events) == 0 {
			fmt.Fprintln(out, "no events")
		}
		return nil

	case "analog":
		pin, err := argUint(args, 0)
		if err != nil {
			return err
		}
		sample, err := c.ReadAnalog(pin)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "pin %d = %d (0x%04X)\n", pin, sample, sample)
		return nil

	case "pwm":
		pin, err := argUint(args, 0)
		if err != nil {
			return err
		}
		freq, err := argUint(args, 1)
		if err != nil {
			return err
		}
		duty, err := argUint(args, 2)
		if err != nil {
			return err
		}
		return c.SetPwm(pin, freq, uint16(duty))

	case "led":
		ms, err := argUint(args, 0)
		if err != nil {
			return err
		}
		return c.SetLedRate(ms)
	}

	return fmt.Errorf("unknown command %q", cmd)
}

func runConfig(c *client.Client, args []string) error {
	pin, err := argUint(args, 0)
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return fmt.Errorf("config needs a direction")
	}

	var dir core.PinDirection
	switch args[1] {
	case "in", "input":
		dir = core.DirInput
	case "out", "output":
		dir = core.DirOutput
	case "analog", "adc":
		dir = core.DirAnalog
	default:
		return fmt.Errorf("unknown direction %q", args[1])
	}

	pull := core.PullNone
	if len(args) > 2 {
		switch args[2] {
		case "none":
		case "up", "pullup":
			pull = core.PullUp
		case "down", "pulldown":
			pull = core.PullDown
		default:
			return fmt.Errorf("unknown pull %q", args[2])
		}
	}

	trigger := core.TriggerNone
	if len(args) > 3 {
		switch args[3] {
		case "none":
		case "rise", "rising":
			trigger = core.TriggerRising
		case "fall", "falling":
			trigger = core.TriggerFalling
		case "both":
			trigger = core.TriggerBoth
		default:
			return fmt.Errorf("unknown trigger %q", args[3])
		}
	}

	return c.ConfigurePin(pin, dir, pull, trigger)
}

func argUint(args []string, i int) (uint32, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("missing argument %d", i+1)
	}
	v, err := strconv.ParseUint(args[i], 0, 32)
	if err != nil {
		return 0, fmt.Errorf("bad number %q: %w", args[i], err)
	}
	return uint32(v), nil
}

// regArg accepts a register name ("IODIR") or a numeric address ("0x00").
func regArg(args []string, i int) (uint8, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("missing register argument")
	}

	name := strings.ToUpper(args[i])
	for addr := 0; addr < core.RegCount; addr++ {
		def, err := core.RegisterDefOf(core.RegAddr(addr))
		if err == nil && def.Name == name {
			return uint8(addr), nil
		}
	}

	v, err := strconv.ParseUint(args[i], 0, 8)
	if err != nil {
		return 0, fmt.Errorf("unknown register %q", args[i])
	}
	return uint8(v), nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func featureNames(features uint32) string {
	var s string
	if features&core.FeatureAnalog != 0 {
		s += " analog"
	}
	if features&core.FeaturePWM != 0 {
		s += " pwm"
	}
	if features&core.FeatureExpansion != 0 {
		s += " expansion"
	}
	if s == "" {
		s = " none"
	}
	return s
}

func accessName(a core.Access) string {
	switch a {
	case core.AccessRO:
		return "RO"
	case core.AccessWO:
		return "WO"
	}
	return "RW"
}

func causeName(cause core.EventCause) string {
	switch cause {
	case core.EventCauseRising:
		return "rising"
	case core.EventCauseFalling:
		return "falling"
	case core.EventCauseFault:
		return "fault"
	}
	return "unknown"
}
