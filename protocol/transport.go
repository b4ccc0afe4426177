package protocol

import "sync/atomic"

const (
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10
	MessageSeqMask     = 0x0F
)

// CommandHandler is a function type for handling decoded commands
type CommandHandler func(cmdID uint16, data *[]byte) error

// Transport is the MCU-side framing layer. It validates incoming frames,
// tracks the sequence window, and encodes outgoing responses.
type Transport struct {
	isSynchronized uint32 // atomic bool
	// nextSequence doubles as the expected sequence from the host and the
	// sequence stamped on our ACKs and responses (atomic uint8 in a uint32)
	nextSequence  uint32
	output        OutputBuffer
	handler       CommandHandler
	resetCallback func() // Called when a host reset is detected
	flushCallback func() // Called to push an ACK to the wire immediately
}

// NewTransport creates a new Transport instance
func NewTransport(output OutputBuffer, handler CommandHandler) *Transport {
	return &Transport{
		isSynchronized: 1,
		nextSequence:   MessageDest,
		output:         output,
		handler:        handler,
	}
}

// Receive processes incoming bytes. Complete valid frames are dispatched
// to the command handler; framing errors drop to resync mode, which scans
// for the next sync byte.
func (t *Transport) Receive(input InputBuffer) {
	data := input.Data()

	for len(data) > 0 {
		if !t.getSynchronized() {
			syncPos := -1
			for i, b := range data {
				if b == MessageValueSync {
					syncPos = i
					break
				}
			}

			if syncPos >= 0 {
				// Skip garbage up to and including the sync byte
				data = data[syncPos+1:]
				t.setSynchronized(true)
				t.encodeAckNak()
			} else {
				data = nil
			}
		} else {
			// Skip leading sync bytes
			if data[0] == MessageValueSync {
				data = data[1:]
				continue
			}

			if len(data) < MessageLengthMin {
				break
			}

			msgLen := int(data[MessagePositionLen])
			if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
				t.setSynchronized(false)
				continue
			}

			seq := data[MessagePositionSeq]
			if seq&^MessageSeqMask != MessageDest {
				t.setSynchronized(false)
				continue
			}

			// Wait for the full frame to arrive
			if len(data) < msgLen {
				break
			}

			if data[msgLen-MessageTrailerSync] != MessageValueSync {
				t.setSynchronized(false)
				continue
			}

			frameCRC := uint16(data[msgLen-MessageTrailerCRC])<<8 |
				uint16(data[msgLen-MessageTrailerCRC+1])
			actualCRC := CRC16(data[:msgLen-MessageTrailerSize])

			if frameCRC != actualCRC {
				t.setSynchronized(false)
				continue
			}

			frame := data[MessageHeaderSize : msgLen-MessageTrailerSize]
			data = data[msgLen:]

			// A frame at MessageDest when we expected a later sequence
			// means the host restarted its side of the link
			expectedSeq := uint8(atomic.LoadUint32(&t.nextSequence))
			if seq == MessageDest && expectedSeq != MessageDest {
				atomic.StoreUint32(&t.nextSequence, MessageDest)
				expectedSeq = MessageDest
				if t.resetCallback != nil {
					t.resetCallback()
				}
			}

			if seq == expectedSeq {
				nextSeq := ((seq + 1) & MessageSeqMask) | MessageDest
				atomic.StoreUint32(&t.nextSequence, uint32(nextSeq))
				_ = t.parseFrame(frame)
			}
			// The ACK goes out even for an out-of-sequence frame; it then
			// carries the expected sequence and acts as a NAK
			t.encodeAckNak()
		}
	}

	consumed := input.Available() - len(data)
	if consumed > 0 {
		input.Pop(consumed)
	}
}

// parseFrame extracts and dispatches commands from a frame
func (t *Transport) parseFrame(frame []byte) (err error) {
	// A panicking handler must not take the firmware down; drop to resync
	defer func() {
		if r := recover(); r != nil {
			t.setSynchronized(false)
		}
	}()

	for len(frame) > 0 {
		cmdID, err := DecodeVLQUint(&frame)
		if err != nil {
			t.setSynchronized(false)
			return err
		}

		if t.handler != nil {
			if err := t.handler(uint16(cmdID), &frame); err != nil {
				// Handler errors stop this frame but do not desync the link
				return err
			}
		}
	}
	return nil
}

// encodeAckNak sends an ACK frame. The host's send queue blocks on the
// ACK before it accepts responses, so the ACK is flushed immediately
// rather than batched with response data.
func (t *Transport) encodeAckNak() {
	ns := uint8(atomic.LoadUint32(&t.nextSequence))
	crc := CRC16([]byte{5, ns})

	ackMsg := []byte{
		5,
		ns,
		uint8(crc >> 8),
		uint8(crc & 0xFF),
		MessageValueSync,
	}

	t.output.Output(ackMsg)

	if t.flushCallback != nil {
		t.flushCallback()
	}
}

// EncodeFrame encodes and sends a frame with the given contents.
// ACKs and responses share the same sequence value; it only advances
// when a valid frame is received, so several responses may carry one
// sequence number.
func (t *Transport) EncodeFrame(frameData func(output OutputBuffer)) {
	cursor := t.output.CurPosition()

	seq := uint8(atomic.LoadUint32(&t.nextSequence))
	t.output.Output([]byte{0, seq})

	frameData(t.output)

	// Patch the length placeholder now that the payload size is known
	changed := len(t.output.DataSince(cursor))
	t.output.Update(cursor, uint8(changed+MessageTrailerSize))

	crc := CRC16(t.output.DataSince(cursor))
	t.output.Output([]byte{
		uint8(crc >> 8),
		uint8(crc & 0xFF),
		MessageValueSync,
	})
}

// SendCommand sends a command with arguments
func (t *Transport) SendCommand(cmdID uint16, args func(output OutputBuffer)) {
	t.EncodeFrame(func(output OutputBuffer) {
		EncodeVLQUint(output, uint32(cmdID))
		if args != nil {
			args(output)
		}
	})
}

// Reset restores the initial transport state, for use after a USB
// disconnect and reconnect
func (t *Transport) Reset() {
	atomic.StoreUint32(&t.isSynchronized, 1)
	atomic.StoreUint32(&t.nextSequence, MessageDest)

	if t.resetCallback != nil {
		t.resetCallback()
	}
}

// SetResetCallback sets a callback invoked when a host reset is detected
func (t *Transport) SetResetCallback(callback func()) {
	t.resetCallback = callback
}

// SetFlushCallback sets a callback that pushes buffered ACK bytes to the
// wire immediately
func (t *Transport) SetFlushCallback(callback func()) {
	t.flushCallback = callback
}

func (t *Transport) getSynchronized() bool {
	return atomic.LoadUint32(&t.isSynchronized) != 0
}

func (t *Transport) setSynchronized(val bool) {
	if val {
		atomic.StoreUint32(&t.isSynchronized, 1)
	} else {
		atomic.StoreUint32(&t.isSynchronized, 0)
	}
}
