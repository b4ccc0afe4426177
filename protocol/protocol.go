// Package protocol implements the framed serial protocol between the
// motor firmware and its host: VLQ-encoded command frames carrying a
// sequence number and a CRC16 trailer
package protocol

// MessageMax is the output scratch buffer size, sized for batched responses
const MessageMax = 512
