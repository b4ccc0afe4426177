//go:build rp2040

package main

import (
	"machine"
	"time"

	"gostep/core"
	"gostep/protocol"
	coilbank "gostep/targets/pio"
)

var (
	inputBuffer  *protocol.FifoBuffer
	outputBuffer *protocol.ScratchOutput
	transport    *protocol.Transport

	msgErrors uint32
)

// ledBlink signals boot progress on the onboard LED
func ledBlink(count int) {
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for i := 0; i < count; i++ {
		led.High()
		time.Sleep(150 * time.Millisecond)
		led.Low()
		time.Sleep(150 * time.Millisecond)
	}
	time.Sleep(500 * time.Millisecond)
}

func main() {
	InitUSB()

	// Clear any watchdog state left over from a previous soft reset
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	InitClock()
	core.TimerInit()
	core.SetUptimeSource(GetHardwareUptime)

	core.InitCoreCommands()
	core.RegisterMotorCommands()

	// Coil bank factory must be registered before any config_motor arrives
	coilbank.InitCoilBanks()

	// Pin enumeration must be registered before BuildDictionary
	registerRP2040Pins()

	core.SetGPIODriver(NewRP2040GPIO())
	core.SetPWMDriver(NewRP2040PWM())
	core.SetDebugWriter(func(s string) {
		USBWriteBytes([]byte("# " + s + "\n"))
	})

	dict := core.GetGlobalDictionary()
	dict.BuildDictionary()

	ledBlink(1)

	inputBuffer = protocol.NewFifoBuffer(256)
	outputBuffer = protocol.NewScratchOutput()

	transport = protocol.NewTransport(outputBuffer, handleCommand)
	transport.SetResetCallback(func() {
		inputBuffer.Reset()
		outputBuffer.Reset()
		core.ResetFirmwareState()
		coilbank.ResetPIOAllocations()
	})
	// The host expects the ACK on the wire before the response it covers
	transport.SetFlushCallback(func() {
		writeUSB()
	})
	core.SetGlobalTransport(transport)

	// Watchdog reset handles USB re-enumeration more reliably than
	// SYSRESETREQ on the RP2040
	core.SetResetHandler(func() {
		err = machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 1})
		if err != nil {
			return
		}
		err = machine.Watchdog.Start()
		if err != nil {
			return
		}
		for {
			time.Sleep(1 * time.Millisecond)
		}
	})

	go usbReaderLoop()

	ledBlink(2)

	for {
		func() {
			defer func() {
				if r := recover(); r != nil {
					msgErrors++
					inputBuffer.Reset()
					outputBuffer.Reset()
				}
			}()

			UpdateSystemTime()

			if inputBuffer.Available() > 0 {
				data := inputBuffer.Data()
				originalLen := len(data)
				inputBuf := protocol.NewSliceInputBuffer(data)

				transport.Receive(inputBuf)

				consumed := originalLen - inputBuf.Available()
				if consumed > 0 {
					inputBuffer.Pop(consumed)
				}
			}

			writeUSB()

			// Reset only after the acknowledging bytes have gone out
			core.CheckPendingReset()

			core.ProcessTimers()
		}()

		time.Sleep(10 * time.Microsecond)
	}
}

// usbReaderLoop drains the USB endpoint into the input FIFO
func usbReaderLoop() {
	defer func() {
		if r := recover(); r != nil {
			msgErrors++
			time.Sleep(100 * time.Millisecond)
			go usbReaderLoop()
		}
	}()

	for {
		if USBAvailable() > 0 {
			b, err := USBRead()
			if err != nil {
				msgErrors++
				time.Sleep(1 * time.Millisecond)
				continue
			}

			if inputBuffer.Write([]byte{b}) == 0 {
				msgErrors++
				time.Sleep(10 * time.Millisecond)
			}
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// writeUSB flushes pending output frames to the host
func writeUSB() {
	data := outputBuffer.Result()
	if len(data) == 0 {
		return
	}
	if _, err := USBWriteBytes(data); err != nil {
		msgErrors++
		return
	}
	outputBuffer.Reset()
}

// handleCommand dispatches received commands to the command registry
func handleCommand(cmdID uint16, data *[]byte) error {
	return core.DispatchCommand(cmdID, data)
}

// registerRP2040Pins registers the pin name enumeration (gpio0-gpio29)
func registerRP2040Pins() {
	pinNames := make([]string, 30)
	for i := 0; i < 30; i++ {
		pinNames[i] = "gpio" + itoa(i)
	}
	core.RegisterEnumeration("pin", pinNames)
}

// itoa converts int to string without pulling in strconv
func itoa(i int) string {
	if i == 0 {
		return "0"
	}

	negative := i < 0
	if negative {
		i = -i
	}

	var buf [12]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}

	if negative {
		pos--
		buf[pos] = '-'
	}

	return string(buf[pos:])
}
