package core

import (
	"errors"
	"sync"
)

// CommandHandler is a function that handles a command with raw frame data
// The handler is responsible for decoding its own arguments from the data pointer
type CommandHandler func(data *[]byte) error

// Command represents a registered wire-protocol command
type Command struct {
	ID      uint16
	Name    string
	Format  string // Format string for the dictionary (e.g., "oid=%c steps=%i")
	Handler CommandHandler
}

// CommandRegistry holds all registered commands
type CommandRegistry struct {
	mu       sync.RWMutex
	commands map[uint16]*Command
	nameToID map[string]uint16
	nextID   uint16
}

var globalRegistry = NewCommandRegistry()

// NewCommandRegistry creates a new command registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[uint16]*Command),
		nameToID: make(map[string]uint16),
		nextID:   0,
	}
}

// RegisterCommand registers a command handler on the global registry
func RegisterCommand(name string, format string, handler CommandHandler) uint16 {
	return globalRegistry.Register(name, format, handler)
}

// RegisterResponse registers a response message (MCU -> Host)
// This is a convenience wrapper around RegisterCommand with a nil handler
func RegisterResponse(name string, format string) uint16 {
	return globalRegistry.Register(name, format, nil)
}

// Register adds a command to the registry
func (r *CommandRegistry) Register(name string, format string, handler CommandHandler) uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check if already registered
	if id, exists := r.nameToID[name]; exists {
		return id
	}

	id := r.nextID
	r.nextID++

	r.commands[id] = &Command{
		ID:      id,
		Name:    name,
		Format:  format,
		Handler: handler,
	}
	r.nameToID[name] = id

	return id
}

// GetCommand retrieves a command by ID
func (r *CommandRegistry) GetCommand(id uint16) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[id]
	return cmd, ok
}

// GetCommandByName retrieves a command by name
func (r *CommandRegistry) GetCommandByName(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.nameToID[name]
	if !ok {
		return nil, false
	}
	return r.commands[id], true
}

// Count returns the number of registered commands
func (r *CommandRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Dispatch calls the appropriate command handler
func (r *CommandRegistry) Dispatch(cmdID uint16, data *[]byte) error {
	cmd, ok := r.GetCommand(cmdID)
	if !ok {
		return errors.New("unknown command ID: " + itoa(int(cmdID)))
	}
	if cmd.Handler == nil {
		return errors.New("command has no handler: " + cmd.Name)
	}

	return cmd.Handler(data)
}

// GetCommandsAndResponses returns commands and responses for the dictionary
// Commands have handlers (host->MCU), responses have nil handlers (MCU->host)
func (r *CommandRegistry) GetCommandsAndResponses() (map[string]int, map[string]int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	commands := make(map[string]int)
	responses := make(map[string]int)

	for i := uint16(0); i < r.nextID; i++ {
		cmd, ok := r.commands[i]
		if !ok {
			continue
		}

		// Build format string: "name param1=%type param2=%type"
		formatStr := cmd.Name
		if cmd.Format != "" {
			formatStr = cmd.Name + " " + cmd.Format
		}

		if cmd.Handler != nil {
			commands[formatStr] = int(cmd.ID)
		} else {
			responses[formatStr] = int(cmd.ID)
		}
	}

	return commands, responses
}

// DispatchCommand is a convenience function using the global registry
func DispatchCommand(cmdID uint16, data *[]byte) error {
	return globalRegistry.Dispatch(cmdID, data)
}

// GetGlobalRegistry returns the global command registry
func GetGlobalRegistry() *CommandRegistry {
	return globalRegistry
}
