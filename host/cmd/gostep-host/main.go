package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gostep/host/mcu"
)

var (
	device = flag.String("device", "/dev/ttyACM0", "Serial device path")
	baud   = flag.Int("baud", 250000, "Baud rate (ignored for USB CDC)")
)

func main() {
	flag.Parse()
	_ = baud

	boardConn := mcu.NewMCU()

	fmt.Printf("Connecting to motor board on %s...\n", *device)
	if err := boardConn.Connect(*device); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer boardConn.Close()

	if err := boardConn.RetrieveDictionary(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to retrieve dictionary: %v\n", err)
		os.Exit(1)
	}
	boardConn.PrintDictionary()

	fmt.Println("Enter commands (type 'help' for available commands, 'quit' to exit):")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		args := strings.Fields(line)
		if err := runCommand(boardConn, args); err != nil {
			if err == errQuit {
				return
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
}

var errQuit = fmt.Errorf("quit")

func runCommand(board *mcu.MCU, args []string) error {
	switch args[0] {
	case "quit", "exit", "q":
		return errQuit

	case "help", "?":
		printHelp()
		return nil

	case "dict":
		board.PrintDictionary()
		return nil

	case "raw":
		raw := board.GetDictionaryRaw()
		fmt.Printf("Raw dictionary data (%d bytes):\n%s\n", len(raw), string(raw))
		return nil

	case "clock":
		clock, err := board.GetClock()
		if err != nil {
			return err
		}
		fmt.Printf("clock = %d\n", clock)
		return nil

	case "config":
		// config <oid> <topology> <steps_per_rev> <pins...> [micro <n> <pwmA> <pwmB>]
		rest := args[1:]
		var microsteps, pwmA, pwmB uint8
		for i, a := range rest {
			if a == "micro" {
				mv, err := parseInts(rest[i+1:], 3, 3)
				if err != nil {
					return fmt.Errorf("micro options: %w", err)
				}
				microsteps, pwmA, pwmB = uint8(mv[0]), uint8(mv[1]), uint8(mv[2])
				rest = rest[:i]
				break
			}
		}

		vals, err := parseInts(rest, 4, 8)
		if err != nil {
			return err
		}
		oid, topology, stepsPerRev := uint8(vals[0]), uint8(vals[1]), uint32(vals[2])
		pins := make([]uint8, 0, 5)
		for _, v := range vals[3:] {
			pins = append(pins, uint8(v))
		}

		if err := board.ConfigMotor(oid, topology, pins, stepsPerRev, microsteps, pwmA, pwmB); err != nil {
			return err
		}
		fmt.Printf("motor %d configured\n", oid)
		return nil

	case "rpm":
		vals, err := parseInts(args[1:], 2, 2)
		if err != nil {
			return err
		}
		return board.SetSpeedRPM(uint8(vals[0]), int32(vals[1]))

	case "pps":
		vals, err := parseInts(args[1:], 2, 2)
		if err != nil {
			return err
		}
		return board.SetSpeedPPS(uint8(vals[0]), int32(vals[1]))

	case "move":
		vals, err := parseInts(args[1:], 2, 2)
		if err != nil {
			return err
		}
		return board.Move(uint8(vals[0]), int32(vals[1]))

	case "off":
		vals, err := parseInts(args[1:], 1, 1)
		if err != nil {
			return err
		}
		return board.MotorOff(uint8(vals[0]))

	case "release":
		vals, err := parseInts(args[1:], 2, 2)
		if err != nil {
			return err
		}
		return board.SetRelease(uint8(vals[0]), vals[1] != 0)

	case "pos":
		vals, err := parseInts(args[1:], 1, 1)
		if err != nil {
			return err
		}
		pos, err := board.GetPosition(uint8(vals[0]))
		if err != nil {
			return err
		}
		fmt.Printf("motor %d: step %d.%d, %d steps remaining\n",
			pos.OID, pos.StepIndex, pos.MicroStep, pos.StepsLeft)
		return nil

	case "estop":
		if err := board.EmergencyStop(); err != nil {
			return err
		}
		fmt.Println("all motors stopped")
		return nil

	default:
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", args[0])
	}
}

func parseInts(args []string, min, max int) ([]int64, error) {
	if len(args) < min || len(args) > max {
		return nil, fmt.Errorf("expected %d to %d arguments, got %d", min, max, len(args))
	}
	vals := make([]int64, len(args))
	for i, a := range args {
		v, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", a)
		}
		vals[i] = v
	}
	return vals, nil
}

func printHelp() {
	fmt.Println("\nAvailable commands:")
	fmt.Println("  help                               - Show this help message")
	fmt.Println("  dict                               - Print dictionary summary")
	fmt.Println("  raw                                - Print raw dictionary data")
	fmt.Println("  clock                              - Query the firmware clock")
	fmt.Println("  config <oid> <topo> <spr> <pins..> - Configure a motor")
	fmt.Println("                                       topo: 0=2wire 1=3wire 2=4wire 3=5wire 4=micro2 5=micro4")
	fmt.Println("  rpm <oid> <rpm>                    - Set speed in revolutions per minute")
	fmt.Println("  pps <oid> <pps>                    - Set speed in steps per second")
	fmt.Println("  move <oid> <steps>                 - Move relative (negative = reverse)")
	fmt.Println("  off <oid>                          - Stop and de-energize a motor")
	fmt.Println("  release <oid> <0|1>                - Hold or release coils after motion")
	fmt.Println("  pos <oid>                          - Query motor position")
	fmt.Println("  estop                              - Emergency stop all motors")
	fmt.Println("  quit/exit/q                        - Exit the program")
	fmt.Println()
}
