package core

import (
	"errors"
	"sync/atomic"

	"gostep/protocol"
)

// FirmwareState holds the global firmware state
type FirmwareState struct {
	configCRC  uint32 // atomic
	isShutdown uint32 // atomic bool
	moveCount  uint16
}

var globalState = &FirmwareState{
	moveCount: 16, // Command queue size reported to the host
}

// InitCoreCommands registers the core protocol commands
// IMPORTANT: Command registration order matters! The host bootstraps
// with a hardcoded dictionary:
//
//	identify_response = ID 0
//	identify = ID 1
func InitCoreCommands() {
	// Bootstrap messages, always first
	RegisterResponse("identify_response", "offset=%u data=%*s")        // ID 0
	RegisterCommand("identify", "offset=%u count=%c", handleIdentify)  // ID 1

	RegisterCommand("get_uptime", "", handleGetUptime)
	RegisterCommand("get_clock", "", handleGetClock)
	RegisterCommand("get_config", "", handleGetConfig)
	RegisterCommand("config_reset", "", handleConfigReset)
	RegisterCommand("finalize_config", "crc=%u", handleFinalizeConfig)
	RegisterCommand("allocate_oids", "count=%c", handleAllocateOids)
	RegisterCommand("emergency_stop", "", handleEmergencyStop)
	RegisterCommand("reset", "", handleReset)

	// Response messages (MCU -> host)
	RegisterResponse("clock", "clock=%u")
	RegisterResponse("uptime", "high=%u clock=%u")
	RegisterResponse("config", "is_config=%c crc=%u is_shutdown=%c move_count=%hu")

	// Note: MCU and CLOCK_FREQ are platform-specific and registered in targets/*/clock.go
	RegisterConstant("STEPPER_MAX_COUNT", uint32(MotorMaxCount))
}

// handleIdentify returns chunks of the data dictionary
func handleIdentify(data *[]byte) error {
	// Decode arguments: offset (uint32), count (uint8)
	offset, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	count8, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	count := uint8(count8)

	chunk := GetGlobalDictionary().GetChunk(offset, count)

	SendResponse("identify_response", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQBytes(output, chunk)
	})

	return nil
}

// handleGetUptime returns the system uptime
func handleGetUptime(data *[]byte) error {
	uptime := GetUptime()
	high := uint32(uptime >> 32)
	low := uint32(uptime & 0xFFFFFFFF)

	SendResponse("uptime", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, high)
		protocol.EncodeVLQUint(output, low)
	})

	return nil
}

// handleGetClock returns the current clock value
func handleGetClock(data *[]byte) error {
	clock := GetTime()

	SendResponse("clock", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, clock)
	})

	return nil
}

// handleGetConfig returns the configuration state
func handleGetConfig(data *[]byte) error {
	crc := atomic.LoadUint32(&globalState.configCRC)
	isShutdown := atomic.LoadUint32(&globalState.isShutdown) != 0
	isConfig := crc != 0

	SendResponse("config", func(output protocol.OutputBuffer) {
		if isConfig {
			protocol.EncodeVLQUint(output, 1)
		} else {
			protocol.EncodeVLQUint(output, 0)
		}
		protocol.EncodeVLQUint(output, crc)
		if isShutdown {
			protocol.EncodeVLQUint(output, 1)
		} else {
			protocol.EncodeVLQUint(output, 0)
		}
		protocol.EncodeVLQUint(output, uint32(globalState.moveCount))
	})

	return nil
}

// handleConfigReset clears the configuration state and all motors
func handleConfigReset(data *[]byte) error {
	atomic.StoreUint32(&globalState.configCRC, 0)
	ResetMotors()
	return nil
}

// handleFinalizeConfig finalizes the configuration with a CRC
func handleFinalizeConfig(data *[]byte) error {
	crc, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	atomic.StoreUint32(&globalState.configCRC, crc)
	return nil
}

// handleAllocateOids reserves object IDs (sizing hint only)
func handleAllocateOids(data *[]byte) error {
	count, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	if count > MotorMaxCount {
		return errors.New("oid count exceeds maximum")
	}
	return nil
}

// handleEmergencyStop de-energizes every motor immediately
func handleEmergencyStop(data *[]byte) error {
	atomic.StoreUint32(&globalState.isShutdown, 1)
	StopAllMotors()
	return nil
}

// TryShutdown triggers a firmware shutdown with a reason message
func TryShutdown(reason string) {
	atomic.StoreUint32(&globalState.isShutdown, 1)
	StopAllMotors()
	DebugPrintln("shutdown: " + reason)
}

// IsShutdown returns true if the firmware is in shutdown state
func IsShutdown() bool {
	return atomic.LoadUint32(&globalState.isShutdown) != 0
}

// ResetFirmwareState resets the firmware state for reconnection
// This is called when USB reconnects or a firmware restart is requested
func ResetFirmwareState() {
	atomic.StoreUint32(&globalState.configCRC, 0)
	atomic.StoreUint32(&globalState.isShutdown, 0)
	// moveCount is not reset, it's a firmware constant
}

// SendResponse sends a response message using the global transport
func SendResponse(responseName string, args func(output protocol.OutputBuffer)) {
	if globalTransport != nil {
		cmd, ok := globalRegistry.GetCommandByName(responseName)
		if !ok {
			// All responses should be pre-registered
			panic("Response not registered: " + responseName)
		}

		globalTransport.SendCommand(cmd.ID, args)
	}
}

// Global transport for sending responses (set by main)
var globalTransport *protocol.Transport

// SetGlobalTransport sets the global transport for sending responses
func SetGlobalTransport(transport *protocol.Transport) {
	globalTransport = transport
}

// Global reset handler (set by target-specific code)
var globalResetHandler func()

// resetPending is set when a reset command is received
// The actual reset happens in the main loop after the ACK is sent
var resetPending uint32 // atomic bool

// SetResetHandler sets the platform-specific reset handler
func SetResetHandler(handler func()) {
	globalResetHandler = handler
}

// handleReset triggers a hardware reset of the MCU
// NOTE: the reset is deferred until after the ACK is sent to the host
func handleReset(_ *[]byte) error {
	atomic.StoreUint32(&resetPending, 1)
	return nil
}

// CheckPendingReset executes a requested reset
// Call from the main loop after all pending messages are sent
func CheckPendingReset() {
	if atomic.LoadUint32(&resetPending) != 0 {
		if globalResetHandler != nil {
			globalResetHandler()
			// Should never return
		}
	}
}
