// Package mcu is the host-side client for the motor firmware: it opens
// the serial link, retrieves the data dictionary, and exposes typed
// wrappers for the motor commands.
package mcu

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gostep/host/serial"
	"gostep/protocol"
)

// MCU represents a connection to a motor controller board
type MCU struct {
	transport *protocol.HostTransport
	port      serial.Port

	dictionary     *Dictionary
	dictionaryData []byte

	// First-token command/response name indexes built from the dictionary
	commandIDs  map[string]uint16
	responseIDs map[uint16]string

	connected bool
}

// Dictionary is the parsed firmware data dictionary
type Dictionary struct {
	Version       string                    `json:"version"`
	BuildVersions string                    `json:"build_versions"`
	Config        map[string]string         `json:"config"`
	Commands      map[string]int            `json:"commands"`
	Responses     map[string]int            `json:"responses"`
	Enumerations  map[string]map[string]int `json:"enumerations,omitempty"`
}

// MotorPosition is a decoded motor_position response
type MotorPosition struct {
	OID       uint8
	StepIndex uint32
	MicroStep uint8
	StepsLeft uint32
}

// NewMCU creates an MCU client (not yet connected)
func NewMCU() *MCU {
	return &MCU{}
}

// Connect opens the serial link to the board
func (m *MCU) Connect(device string) error {
	return m.ConnectWithConfig(serial.DefaultConfig(device))
}

// ConnectWithConfig connects with a custom serial config
func (m *MCU) ConnectWithConfig(cfg *serial.Config) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open serial port: %w", err)
	}

	m.port = port
	m.transport = protocol.NewHostTransport(port)
	m.connected = true

	// Give the board time to enumerate if it just powered on
	time.Sleep(100 * time.Millisecond)

	return nil
}

// Close closes the connection
func (m *MCU) Close() error {
	if m.transport != nil {
		if err := m.transport.Close(); err != nil {
			return err
		}
	}
	m.connected = false
	return nil
}

// RetrieveDictionary pulls the complete dictionary from the board in
// identify chunks and parses it
func (m *MCU) RetrieveDictionary() error {
	if !m.connected {
		return fmt.Errorf("not connected")
	}

	var dictBuffer bytes.Buffer
	offset := uint32(0)
	chunkSize := uint8(40)
	maxIterations := 1000

	for i := 0; i < maxIterations; i++ {
		chunk, err := m.sendIdentify(offset, chunkSize)
		if err != nil {
			return fmt.Errorf("failed to retrieve dictionary chunk at offset %d: %w", offset, err)
		}

		if len(chunk) == 0 {
			break
		}

		dictBuffer.Write(chunk)
		offset += uint32(len(chunk))

		if len(chunk) < int(chunkSize) {
			break
		}
	}

	m.dictionaryData = dictBuffer.Bytes()

	if err := m.parseDictionary(); err != nil {
		return fmt.Errorf("failed to parse dictionary: %w", err)
	}

	return nil
}

// sendIdentify requests one dictionary chunk. The identify pair sits at
// fixed bootstrap IDs: identify=1, identify_response=0.
func (m *MCU) sendIdentify(offset uint32, count uint8) ([]byte, error) {
	err := m.transport.SendCommand(1, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQUint(output, uint32(count))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send identify: %w", err)
	}

	resp, err := m.transport.ReceiveResponse(1 * time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to receive identify response: %w", err)
	}

	payload := resp.Payload

	cmdID, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response command ID: %w", err)
	}
	if cmdID != 0 {
		return nil, fmt.Errorf("unexpected response command ID: %d (expected 0)", cmdID)
	}

	respOffset, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response offset: %w", err)
	}
	if respOffset != offset {
		return nil, fmt.Errorf("offset mismatch: expected %d, got %d", offset, respOffset)
	}

	data, err := protocol.DecodeVLQBytes(&payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response data: %w", err)
	}

	return data, nil
}

// parseDictionary parses the JSON and builds the name indexes. Dictionary
// keys carry the full format string ("motor_move oid=%c steps=%i"); the
// command name is the first token.
func (m *MCU) parseDictionary() error {
	dict := &Dictionary{}
	if err := json.Unmarshal(m.dictionaryData, dict); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	m.dictionary = dict
	m.commandIDs = make(map[string]uint16, len(dict.Commands))
	for format, id := range dict.Commands {
		name, _, _ := strings.Cut(format, " ")
		m.commandIDs[name] = uint16(id)
	}
	m.responseIDs = make(map[uint16]string, len(dict.Responses))
	for format, id := range dict.Responses {
		name, _, _ := strings.Cut(format, " ")
		m.responseIDs[uint16(id)] = name
	}
	return nil
}

// GetDictionary returns the parsed dictionary
func (m *MCU) GetDictionary() *Dictionary {
	return m.dictionary
}

// GetDictionaryRaw returns the raw dictionary bytes
func (m *MCU) GetDictionaryRaw() []byte {
	return m.dictionaryData
}

// PrintDictionary prints a summary of the dictionary
func (m *MCU) PrintDictionary() {
	if m.dictionary == nil {
		fmt.Println("No dictionary loaded")
		return
	}

	fmt.Println("\n=== Firmware Dictionary ===")
	fmt.Printf("Version: %s\n", m.dictionary.Version)
	fmt.Printf("Build: %s\n", m.dictionary.BuildVersions)

	fmt.Println("\nConfig:")
	for k, v := range m.dictionary.Config {
		fmt.Printf("  %s = %s\n", k, v)
	}

	fmt.Printf("\nCommands (%d):\n", len(m.dictionary.Commands))
	for name, id := range m.dictionary.Commands {
		fmt.Printf("  [%d] %s\n", id, name)
	}

	fmt.Printf("\nResponses (%d):\n", len(m.dictionary.Responses))
	for name, id := range m.dictionary.Responses {
		fmt.Printf("  [%d] %s\n", id, name)
	}

	fmt.Println("===========================")
}

// SendCommand sends a command looked up by name from the dictionary
func (m *MCU) SendCommand(name string, args func(output protocol.OutputBuffer)) error {
	if !m.connected {
		return fmt.Errorf("not connected")
	}
	if m.dictionary == nil {
		return fmt.Errorf("dictionary not loaded")
	}

	cmdID, ok := m.commandIDs[name]
	if !ok {
		return fmt.Errorf("unknown command: %s", name)
	}

	return m.transport.SendCommand(cmdID, args)
}

// IsConnected returns whether the board is connected
func (m *MCU) IsConnected() bool {
	return m.connected
}

// ConfigMotor configures a motor. Pin slots beyond the topology's pin
// count are sent as zero; pwmA/pwmB only matter for microstepping
// topologies.
func (m *MCU) ConfigMotor(oid, topology uint8, pins []uint8, stepsPerRev uint32, microsteps, pwmA, pwmB uint8) error {
	return m.SendCommand("config_motor", func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, uint32(oid))
		protocol.EncodeVLQUint(out, uint32(topology))
		for i := 0; i < 5; i++ {
			var pin uint8
			if i < len(pins) {
				pin = pins[i]
			}
			protocol.EncodeVLQUint(out, uint32(pin))
		}
		protocol.EncodeVLQUint(out, stepsPerRev)
		protocol.EncodeVLQUint(out, uint32(microsteps))
		protocol.EncodeVLQUint(out, uint32(pwmA))
		protocol.EncodeVLQUint(out, uint32(pwmB))
	})
}

// SetSpeedRPM sets a motor's pacing from revolutions per minute
func (m *MCU) SetSpeedRPM(oid uint8, rpm int32) error {
	return m.SendCommand("motor_set_speed_rpm", func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, uint32(oid))
		protocol.EncodeVLQInt(out, rpm)
	})
}

// SetSpeedPPS sets a motor's pacing from pulses per second
func (m *MCU) SetSpeedPPS(oid uint8, pps int32) error {
	return m.SendCommand("motor_set_speed_pps", func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, uint32(oid))
		protocol.EncodeVLQInt(out, pps)
	})
}

// Move arms a relative move; negative steps run in reverse
func (m *MCU) Move(oid uint8, steps int32) error {
	return m.SendCommand("motor_move", func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, uint32(oid))
		protocol.EncodeVLQInt(out, steps)
	})
}

// MotorOff cancels motion and de-energizes a motor's coils
func (m *MCU) MotorOff(oid uint8) error {
	return m.SendCommand("motor_off", func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, uint32(oid))
	})
}

// SetRelease selects hold (false) or release (true) on motion completion
func (m *MCU) SetRelease(oid uint8, release bool) error {
	return m.SendCommand("motor_set_release", func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, uint32(oid))
		if release {
			protocol.EncodeVLQUint(out, 1)
		} else {
			protocol.EncodeVLQUint(out, 0)
		}
	})
}

// EmergencyStop de-energizes every motor immediately
func (m *MCU) EmergencyStop() error {
	return m.SendCommand("emergency_stop", nil)
}

// GetPosition queries a motor's position and decodes the response
func (m *MCU) GetPosition(oid uint8) (*MotorPosition, error) {
	err := m.SendCommand("motor_get_position", func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, uint32(oid))
	})
	if err != nil {
		return nil, err
	}

	resp, err := m.transport.ReceiveResponse(1 * time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to receive position response: %w", err)
	}

	payload := resp.Payload
	cmdID, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return nil, err
	}
	if name := m.responseIDs[uint16(cmdID)]; name != "motor_position" {
		return nil, fmt.Errorf("unexpected response %d (%s)", cmdID, name)
	}

	respOID, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return nil, err
	}
	step, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return nil, err
	}
	micro, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return nil, err
	}
	left, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return nil, err
	}

	return &MotorPosition{
		OID:       uint8(respOID),
		StepIndex: step,
		MicroStep: uint8(micro),
		StepsLeft: left,
	}, nil
}

// GetClock queries the firmware clock
func (m *MCU) GetClock() (uint32, error) {
	if err := m.SendCommand("get_clock", nil); err != nil {
		return 0, err
	}

	resp, err := m.transport.ReceiveResponse(1 * time.Second)
	if err != nil {
		return 0, fmt.Errorf("failed to receive clock response: %w", err)
	}

	payload := resp.Payload
	cmdID, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return 0, err
	}
	if name := m.responseIDs[uint16(cmdID)]; name != "clock" {
		return 0, fmt.Errorf("unexpected response %d (%s)", cmdID, name)
	}

	return protocol.DecodeVLQUint(&payload)
}
