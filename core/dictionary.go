package core

import (
	"sync"
)

// Constant represents a firmware constant exposed to the host
type Constant struct {
	Name  string
	Value interface{} // Can be string, int, etc.
}

// Enumeration represents an enumeration of values (like pin names)
type Enumeration struct {
	Name   string
	Values []string
}

// Dictionary manages the data dictionary sent to the host
type Dictionary struct {
	mu            sync.RWMutex
	constants     map[string]*Constant
	enumerations  map[string]*Enumeration
	commandReg    *CommandRegistry
	version       string
	buildVersions string
	cachedDict    []byte
}

var globalDictionary = NewDictionary(globalRegistry)

// NewDictionary creates a new dictionary
func NewDictionary(cmdReg *CommandRegistry) *Dictionary {
	return &Dictionary{
		constants:     make(map[string]*Constant),
		enumerations:  make(map[string]*Enumeration),
		commandReg:    cmdReg,
		version:       "gostep-0.1.0",
		buildVersions: "go-tinygo",
	}
}

// RegisterConstant registers a constant in the dictionary
func RegisterConstant(name string, value interface{}) {
	globalDictionary.AddConstant(name, value)
}

// RegisterEnumeration registers an enumeration in the dictionary
func RegisterEnumeration(name string, values []string) {
	globalDictionary.AddEnumeration(name, values)
}

// AddConstant adds a constant to the dictionary
func (d *Dictionary) AddConstant(name string, value interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.constants[name] = &Constant{
		Name:  name,
		Value: value,
	}
}

// AddEnumeration adds an enumeration to the dictionary
func (d *Dictionary) AddEnumeration(name string, values []string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Copy the values slice so the dictionary does not alias caller memory.
	// TinyGo's GC can be aggressive about reclaiming slices after the
	// caller's function returns
	valuesCopy := make([]string, len(values))
	copy(valuesCopy, values)

	d.enumerations[name] = &Enumeration{
		Name:   name,
		Values: valuesCopy,
	}
}

// SetVersion sets the firmware version string
func (d *Dictionary) SetVersion(version string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.version = version
	d.cachedDict = nil
}

// SetBuildVersions sets the build versions string
func (d *Dictionary) SetBuildVersions(versions string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buildVersions = versions
	d.cachedDict = nil
}

// BuildDictionary builds and caches the dictionary (call after all commands registered)
func (d *Dictionary) BuildDictionary() {
	// Fetch commands/responses BEFORE acquiring the dictionary lock.
	// Acquiring the registry lock inside the dictionary lock can deadlock
	// against a goroutine that grabs them in the opposite order
	commands, responses := d.commandReg.GetCommandsAndResponses()

	d.mu.Lock()
	defer d.mu.Unlock()

	jsonData := d.buildJSONLockedWithData(commands, responses)
	DebugPrintln("[dict] built, size: " + itoa(len(jsonData)) + " bytes")

	d.cachedDict = make([]byte, len(jsonData))
	copy(d.cachedDict, jsonData)
}

// Generate generates the complete dictionary in JSON format
func (d *Dictionary) Generate() []byte {
	// Return cached dictionary if available
	if d.cachedDict != nil {
		return d.cachedDict
	}

	// Otherwise generate on-the-fly
	return d.generateJSON()
}

// generateJSON builds the JSON dictionary (acquires read lock)
func (d *Dictionary) generateJSON() []byte {
	d.mu.RLock()
	defer d.mu.RUnlock()
	commands, responses := d.commandReg.GetCommandsAndResponses()
	return d.buildJSONLockedWithData(commands, responses)
}

// buildJSONLockedWithData builds the JSON dictionary with pre-fetched command
// data (caller must hold the dictionary lock)
func (d *Dictionary) buildJSONLockedWithData(commands map[string]int, responses map[string]int) []byte {
	result := make([]byte, 0, 1024)

	// Build JSON manually to avoid pulling encoding/json into the firmware
	result = append(result, []byte(`{"version":"`)...)
	result = append(result, []byte(d.version)...)
	result = append(result, []byte(`","build_versions":"`)...)
	result = append(result, []byte(d.buildVersions)...)
	result = append(result, []byte(`","config":{`)...)

	// Constants, sorted for a stable dictionary
	constNames := make([]string, 0, len(d.constants))
	for name := range d.constants {
		constNames = append(constNames, name)
	}
	sortStrings(constNames)

	first := true
	for _, name := range constNames {
		c := d.constants[name]
		if !first {
			result = append(result, ',')
		}
		result = append(result, '"')
		result = append(result, []byte(name)...)
		result = append(result, []byte(`":"`)...)
		result = append(result, []byte(valueToString(c.Value))...)
		result = append(result, '"')
		first = false
	}
	result = append(result, []byte(`},"commands":{`)...)
	result = appendFormatMap(result, commands)
	result = append(result, []byte(`},"responses":{`)...)
	result = appendFormatMap(result, responses)
	result = append(result, '}')

	if len(d.enumerations) > 0 {
		result = append(result, []byte(`,"enumerations":{`)...)

		enumNames := make([]string, 0, len(d.enumerations))
		for name := range d.enumerations {
			enumNames = append(enumNames, name)
		}
		sortStrings(enumNames)

		firstEnum := true
		for _, name := range enumNames {
			enum := d.enumerations[name]
			if !firstEnum {
				result = append(result, ',')
			}
			result = append(result, '"')
			result = append(result, []byte(name)...)
			result = append(result, []byte(`":{`)...)

			// Values become name: index pairs; empty names are gaps
			firstValue := true
			for i, value := range enum.Values {
				if value != "" {
					if !firstValue {
						result = append(result, ',')
					}
					result = append(result, '"')
					result = append(result, []byte(value)...)
					result = append(result, []byte(`":`)...)
					result = append(result, []byte(itoa(i))...)
					firstValue = false
				}
			}
			result = append(result, '}')
			firstEnum = false
		}
		result = append(result, '}')
	}

	result = append(result, '}')
	return result
}

// appendFormatMap appends "format":id pairs sorted by ID
func appendFormatMap(result []byte, formats map[string]int) []byte {
	ids := make([]int, 0, len(formats))
	for _, id := range formats {
		ids = append(ids, id)
	}
	// Insertion sort keeps this dependency-free for embedded builds
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}

	first := true
	for _, id := range ids {
		for format, fid := range formats {
			if fid == id {
				if !first {
					result = append(result, ',')
				}
				result = append(result, '"')
				result = append(result, []byte(format)...)
				result = append(result, []byte(`":`)...)
				result = append(result, []byte(itoa(fid))...)
				first = false
				break
			}
		}
	}
	return result
}

// sortStrings sorts in place without pulling in the sort package
func sortStrings(names []string) {
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j-1] > names[j]; j-- {
			names[j-1], names[j] = names[j], names[j-1]
		}
	}
}

// GetChunk returns a chunk of the dictionary starting at offset
func (d *Dictionary) GetChunk(offset uint32, count uint8) []byte {
	// Generate() handles its own locking
	data := d.Generate()

	if len(data) == 0 || offset >= uint32(len(data)) {
		return []byte{}
	}

	end := offset + uint32(count)
	if end > uint32(len(data)) {
		end = uint32(len(data))
	}
	if end <= offset {
		return []byte{}
	}

	// Return a copy so transmission never aliases the cached dictionary
	chunk := make([]byte, end-offset)
	copy(chunk, data[offset:end])
	return chunk
}

// GetGlobalDictionary returns the global dictionary instance
func GetGlobalDictionary() *Dictionary {
	return globalDictionary
}
